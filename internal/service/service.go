// SPDX-License-Identifier: MIT

// Package service is the core facade: it resolves identifiers, consults the
// caches and coalesces concurrent misses onto single extraction and
// summarization runs.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"captiond/internal/cache"
	"captiond/internal/log"
	"captiond/internal/types"
	"captiond/internal/vtt"
	"captiond/internal/ytid"
)

// CaptionExtractor retrieves timed caption data for one video.
type CaptionExtractor interface {
	Extract(ctx context.Context, videoID, lang, watchURL string) (*types.TranscriptRecord, error)
}

// TextSummarizer condenses transcript text to a length-bounded summary.
type TextSummarizer interface {
	Summarize(ctx context.Context, text string, length types.SummaryLength) (string, error)
}

// Options wires the service's collaborators. Transcripts and Summaries may
// share a directory; they are separate handles so the two caches can be
// enabled independently.
type Options struct {
	Transcripts *cache.Store
	Summaries   *cache.Store
	Extractor   CaptionExtractor
	Summarizer  TextSummarizer

	// DefaultLanguage substitutes for an empty language argument.
	DefaultLanguage string
	// Model is recorded in summary records for provenance.
	Model string
}

// Service exposes the operations the API layer consumes. Concurrent misses
// for the same cache key share one extraction or summarization run.
type Service struct {
	opts  Options
	group singleflight.Group
}

func New(opts Options) *Service {
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = "en"
	}
	return &Service{opts: opts}
}

// ResolveIdentifier normalizes a URL or bare ID to the canonical video ID.
func (s *Service) ResolveIdentifier(input string) (string, error) {
	return ytid.Resolve(input)
}

// Transcript returns the transcript for urlOrID, from cache when possible.
// An empty lang selects the configured default language.
func (s *Service) Transcript(ctx context.Context, urlOrID, lang string) (*types.TranscriptRecord, error) {
	videoID, err := ytid.Resolve(urlOrID)
	if err != nil {
		return nil, err
	}
	lang = s.language(lang)
	if !ytid.ValidLanguage(lang) {
		return nil, fmt.Errorf("%w: %q", ytid.ErrInvalidLanguage, lang)
	}

	if rec, err := s.opts.Transcripts.GetTranscript(ctx, videoID, lang); err != nil {
		return nil, err
	} else if rec != nil {
		return rec, nil
	}

	key := cache.TranscriptKey(videoID, lang)
	v, err, shared := s.group.Do(key, func() (any, error) {
		rec, err := s.opts.Extractor.Extract(ctx, videoID, lang, ytid.WatchURL(videoID))
		if err != nil {
			return nil, err
		}
		// A failed write only costs a re-extraction next time.
		if err := s.opts.Transcripts.PutTranscript(ctx, rec); err != nil {
			logger := log.WithComponentFromContext(ctx, "service")
			logger.Warn().
				Err(err).
				Str("video_id", videoID).
				Msg("transcript cache write failed")
		}
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger := log.WithComponentFromContext(ctx, "service")
		logger.Debug().
			Str("key", key).
			Msg("extraction shared with concurrent request")
	}
	return v.(*types.TranscriptRecord), nil
}

// Summary returns a summary of the video's transcript, generating and
// caching one if needed.
func (s *Service) Summary(ctx context.Context, urlOrID, lang string, length types.SummaryLength) (*types.SummaryRecord, error) {
	if !length.IsValid() {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidLength, length)
	}
	videoID, err := ytid.Resolve(urlOrID)
	if err != nil {
		return nil, err
	}
	lang = s.language(lang)
	if !ytid.ValidLanguage(lang) {
		return nil, fmt.Errorf("%w: %q", ytid.ErrInvalidLanguage, lang)
	}

	if rec, err := s.opts.Summaries.GetSummary(ctx, videoID, lang, length); err != nil {
		return nil, err
	} else if rec != nil {
		return rec, nil
	}

	key := cache.SummaryKey(videoID, lang, length)
	v, err, _ := s.group.Do(key, func() (any, error) {
		transcript, err := s.Transcript(ctx, videoID, lang)
		if err != nil {
			return nil, err
		}
		text, err := s.opts.Summarizer.Summarize(ctx, vtt.PlainText(transcript.Segments), length)
		if err != nil {
			return nil, err
		}
		rec := &types.SummaryRecord{
			VideoID:     videoID,
			Language:    lang,
			Length:      length,
			Text:        text,
			IsGenerated: transcript.IsGenerated,
			Model:       s.opts.Model,
			GeneratedAt: time.Now().UTC(),
		}
		if err := s.opts.Summaries.PutSummary(ctx, rec); err != nil {
			logger := log.WithComponentFromContext(ctx, "service")
			logger.Warn().
				Err(err).
				Str("video_id", videoID).
				Msg("summary cache write failed")
		}
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.SummaryRecord), nil
}

// Invalidate removes cached entries for a video, or for one language when
// lang is non-empty.
func (s *Service) Invalidate(videoID, lang string) error {
	if !ytid.ValidID(videoID) {
		return fmt.Errorf("%w: %q", ytid.ErrInvalidIdentifier, videoID)
	}
	if lang != "" && !ytid.ValidLanguage(lang) {
		return fmt.Errorf("%w: %q", ytid.ErrInvalidLanguage, lang)
	}
	if err := s.opts.Transcripts.Invalidate(videoID, lang); err != nil {
		return err
	}
	return s.opts.Summaries.Invalidate(videoID, lang)
}

// InvalidateAll empties both caches.
func (s *Service) InvalidateAll() error {
	if err := s.opts.Transcripts.InvalidateAll(); err != nil {
		return err
	}
	return s.opts.Summaries.InvalidateAll()
}

func (s *Service) language(lang string) string {
	if strings.TrimSpace(lang) == "" {
		return s.opts.DefaultLanguage
	}
	return lang
}
