// SPDX-License-Identifier: MIT

// Package cache persists transcript and summary records as JSON files under
// a single root directory. Writes are atomic-replace so concurrent readers
// never observe partial records; corrupt entries are treated as misses.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"captiond/internal/fsutil"
	"captiond/internal/log"
	"captiond/internal/metrics"
	"captiond/internal/types"
	"captiond/internal/ytid"
)

// ErrInvalidKey reports a key component that failed validation. This is the
// path-traversal defense: a malformed component never reaches the
// filesystem layer.
var ErrInvalidKey = errors.New("invalid cache key")

// Store is a filesystem-backed record store. A disabled store misses on
// every get and ignores puts and invalidations.
type Store struct {
	root    string
	enabled bool
	logger  zerolog.Logger
}

// New creates a store rooted at dir, creating it when enabled.
func New(dir string, enabled bool) (*Store, error) {
	s := &Store{
		root:    dir,
		enabled: enabled,
		logger:  log.WithComponent("cache"),
	}
	if enabled {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create cache root: %w", err)
		}
	}
	return s, nil
}

// TranscriptKey derives the cache filename for a transcript entry.
// Components must already be validated.
func TranscriptKey(videoID, lang string) string {
	return videoID + "_" + lang + ".json"
}

// SummaryKey derives the cache filename for a summary entry.
func SummaryKey(videoID, lang string, length types.SummaryLength) string {
	return videoID + "_" + lang + "_summary_" + length.String() + ".json"
}

// entryPath validates key components, derives the entry filename and
// confines it under the store root. Both layers must pass.
func (s *Store) entryPath(videoID, lang, filename string) (string, error) {
	if !ytid.ValidID(videoID) {
		return "", fmt.Errorf("%w: video id %q", ErrInvalidKey, videoID)
	}
	if !ytid.ValidLanguage(lang) {
		return "", fmt.Errorf("%w: language %q", ErrInvalidKey, lang)
	}
	path, err := fsutil.ConfineRelPath(s.root, filename)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return path, nil
}

// GetTranscript returns the cached transcript record, or nil on a miss.
// Deserialization failures are recovered as misses, never surfaced.
func (s *Store) GetTranscript(ctx context.Context, videoID, lang string) (*types.TranscriptRecord, error) {
	if !s.enabled {
		return nil, nil
	}
	path, err := s.entryPath(videoID, lang, TranscriptKey(videoID, lang))
	if err != nil {
		metrics.RecordCacheOp("transcript", "invalid_key")
		return nil, err
	}

	var rec types.TranscriptRecord
	ok, err := s.readEntry(ctx, path, "transcript", &rec)
	if err != nil || !ok {
		return nil, err
	}
	// An entry whose embedded key disagrees with its filename is corrupt.
	if rec.VideoID != videoID || rec.Language != lang || len(rec.Segments) == 0 {
		s.warnCorrupt(ctx, path, "transcript", nil)
		return nil, nil
	}
	metrics.RecordCacheOp("transcript", "hit")
	return &rec, nil
}

// PutTranscript stores the record, replacing any prior entry for its key.
func (s *Store) PutTranscript(ctx context.Context, rec *types.TranscriptRecord) error {
	if !s.enabled {
		return nil
	}
	path, err := s.entryPath(rec.VideoID, rec.Language, TranscriptKey(rec.VideoID, rec.Language))
	if err != nil {
		metrics.RecordCacheOp("transcript", "invalid_key")
		return err
	}
	if err := s.writeEntry(ctx, path, rec); err != nil {
		return err
	}
	metrics.RecordCacheOp("transcript", "write")
	logger := log.WithComponentFromContext(ctx, "cache")
	logger.Info().
		Str("video_id", rec.VideoID).
		Str("language", rec.Language).
		Int("segments", len(rec.Segments)).
		Msg("cached transcript")
	return nil
}

// GetSummary returns the cached summary record, or nil on a miss.
func (s *Store) GetSummary(ctx context.Context, videoID, lang string, length types.SummaryLength) (*types.SummaryRecord, error) {
	if !s.enabled {
		return nil, nil
	}
	if !length.IsValid() {
		return nil, fmt.Errorf("%w: length %q", ErrInvalidKey, length)
	}
	path, err := s.entryPath(videoID, lang, SummaryKey(videoID, lang, length))
	if err != nil {
		metrics.RecordCacheOp("summary", "invalid_key")
		return nil, err
	}

	var rec types.SummaryRecord
	ok, err := s.readEntry(ctx, path, "summary", &rec)
	if err != nil || !ok {
		return nil, err
	}
	if rec.VideoID != videoID || rec.Language != lang || rec.Length != length || rec.Text == "" {
		s.warnCorrupt(ctx, path, "summary", nil)
		return nil, nil
	}
	metrics.RecordCacheOp("summary", "hit")
	return &rec, nil
}

// PutSummary stores the record, replacing any prior entry for its key.
func (s *Store) PutSummary(ctx context.Context, rec *types.SummaryRecord) error {
	if !s.enabled {
		return nil
	}
	if !rec.Length.IsValid() {
		return fmt.Errorf("%w: length %q", ErrInvalidKey, rec.Length)
	}
	path, err := s.entryPath(rec.VideoID, rec.Language, SummaryKey(rec.VideoID, rec.Language, rec.Length))
	if err != nil {
		metrics.RecordCacheOp("summary", "invalid_key")
		return err
	}
	if err := s.writeEntry(ctx, path, rec); err != nil {
		return err
	}
	metrics.RecordCacheOp("summary", "write")
	logger := log.WithComponentFromContext(ctx, "cache")
	logger.Info().
		Str("video_id", rec.VideoID).
		Str("language", rec.Language).
		Str("length", rec.Length.String()).
		Msg("cached summary")
	return nil
}

// readEntry loads and decodes one entry. Returns (false, nil) on a miss,
// including corrupt files.
func (s *Store) readEntry(ctx context.Context, path, kind string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			metrics.RecordCacheOp(kind, "miss")
			return false, nil
		}
		s.warnCorrupt(ctx, path, kind, err)
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.warnCorrupt(ctx, path, kind, err)
		return false, nil
	}
	return true, nil
}

// writeEntry serialises v and atomically replaces the entry at path. The
// pending file lives in the same directory, so the rename never crosses a
// filesystem boundary.
func (s *Store) writeEntry(ctx context.Context, path string, v any) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending cache file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger := log.WithComponentFromContext(ctx, "cache")
			logger.Debug().Err(err).Msg("cleanup pending cache file")
		}
	}()

	enc := json.NewEncoder(pending)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace cache entry: %w", err)
	}
	return nil
}

func (s *Store) warnCorrupt(ctx context.Context, path, kind string, err error) {
	metrics.RecordCacheOp(kind, "corrupt")
	logger := log.WithComponentFromContext(ctx, "cache")
	logger.Warn().
		Err(err).
		Str("path", filepath.Base(path)).
		Msg("unreadable cache entry, treating as miss")
}

// Invalidate removes cache entries. With both id and lang, exactly one
// transcript entry; with only id, every entry for that video including all
// summary variants.
func (s *Store) Invalidate(videoID, lang string) error {
	if !s.enabled {
		return nil
	}
	if !ytid.ValidID(videoID) {
		return fmt.Errorf("%w: video id %q", ErrInvalidKey, videoID)
	}

	if lang != "" {
		path, err := s.entryPath(videoID, lang, TranscriptKey(videoID, lang))
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove cache entry: %w", err)
		}
		s.logger.Info().Str("video_id", videoID).Str("language", lang).Msg("invalidated cache entry")
		return nil
	}

	// The ID alphabet contains no glob metacharacters, so this pattern is
	// safe to build by concatenation.
	matches, err := filepath.Glob(filepath.Join(s.root, videoID+"_*.json"))
	if err != nil {
		return fmt.Errorf("glob cache entries: %w", err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove cache entry: %w", err)
		}
	}
	s.logger.Info().Str("video_id", videoID).Int("entries", len(matches)).Msg("invalidated video cache entries")
	return nil
}

// InvalidateAll removes every entry in the store.
func (s *Store) InvalidateAll() error {
	if !s.enabled {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(s.root, "*.json"))
	if err != nil {
		return fmt.Errorf("glob cache entries: %w", err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove cache entry: %w", err)
		}
	}
	s.logger.Info().Int("entries", len(matches)).Msg("cleared cache")
	return nil
}
