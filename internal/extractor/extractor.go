// SPDX-License-Identifier: MIT

// Package extractor orchestrates the external caption downloader (yt-dlp)
// behind a bounded worker pool and parses its WebVTT output into transcript
// records.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"captiond/internal/log"
	"captiond/internal/metrics"
	"captiond/internal/runner"
	"captiond/internal/telemetry"
	"captiond/internal/types"
	"captiond/internal/vtt"
)

var (
	// ErrNoCaptions reports a video without captions in the requested
	// language. Not an operational failure.
	ErrNoCaptions = errors.New("no captions found")

	// ErrExtractionTimeout reports a downloader that exceeded the wall-clock
	// budget and was killed.
	ErrExtractionTimeout = errors.New("caption extraction timed out")

	// ErrExtractionFailed reports any other downloader failure.
	ErrExtractionFailed = errors.New("caption extraction failed")

	// ErrExtractorNotFound reports a missing downloader binary. Operator
	// actionable, still returned as an ordinary failure.
	ErrExtractorNotFound = errors.New("caption downloader binary not found")
)

// outputTemplate is the basename yt-dlp expands per language, producing
// files like "captions.en.vtt" in the working directory.
const outputTemplate = "captions"

// Options configures an Extractor.
type Options struct {
	YtdlpPath     string        // downloader binary, default "yt-dlp"
	Timeout       time.Duration // hard per-extraction wall clock
	MaxConcurrent int           // pool size, minimum 1
	MinInterval   time.Duration // optional spacing between downloader launches
}

// Extractor runs at most MaxConcurrent downloader processes at a time.
// Additional callers block on the pool until a slot frees.
type Extractor struct {
	opts    Options
	slots   chan struct{}
	limiter *rate.Limiter
}

// New creates an extractor with its own slot pool.
func New(opts Options) *Extractor {
	if opts.YtdlpPath == "" {
		opts.YtdlpPath = "yt-dlp"
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	var limiter *rate.Limiter
	if opts.MinInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.MinInterval), 1)
	}
	return &Extractor{
		opts:    opts,
		slots:   make(chan struct{}, opts.MaxConcurrent),
		limiter: limiter,
	}
}

// Extract downloads and parses captions for an already-resolved video ID.
// The video ID and language must be validated by the caller before any slot
// or subprocess work happens here.
func (e *Extractor) Extract(ctx context.Context, videoID, lang, watchURL string) (*types.TranscriptRecord, error) {
	ctx, span := telemetry.Tracer("extractor").Start(ctx, "extractor.Extract")
	defer span.End()
	span.SetAttributes(attribute.String("video_id", videoID), attribute.String("language", lang))

	logger := log.WithComponentFromContext(ctx, "extractor")

	select {
	case e.slots <- struct{}{}:
		defer func() { <-e.slots }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	workDir, err := os.MkdirTemp("", "captiond-extract-*")
	if err != nil {
		return nil, fmt.Errorf("%w: create working directory: %v", ErrExtractionFailed, err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn().Err(err).Str("dir", workDir).Msg("remove extraction working directory")
		}
	}()

	logger.Info().Str("video_id", videoID).Str("language", lang).Msg("extracting captions")

	start := time.Now()
	metrics.ExtractionStarted()
	res, runErr := runner.Run(ctx, runner.Spec{
		Path: e.opts.YtdlpPath,
		Args: []string{
			"--write-subs",
			"--write-auto-subs",
			"--skip-download",
			"--sub-langs", lang,
			"--sub-format", "vtt",
			"--no-warnings",
			"-o", filepath.Join(workDir, outputTemplate),
			watchURL,
		},
	}, e.opts.Timeout)
	metrics.ExtractionFinished()

	if runErr != nil {
		switch {
		case errors.Is(runErr, runner.ErrTimeout):
			metrics.RecordExtraction("timeout", time.Since(start))
			return nil, fmt.Errorf("%w after %s", ErrExtractionTimeout, e.opts.Timeout)
		case errors.Is(runErr, exec.ErrNotFound):
			metrics.RecordExtraction("failure", time.Since(start))
			return nil, fmt.Errorf("%w: %s", ErrExtractorNotFound, e.opts.YtdlpPath)
		case errors.Is(runErr, context.Canceled):
			return nil, runErr
		}

		// Non-zero exit: raw diagnostics are logged, never surfaced.
		stderr := ""
		if res != nil {
			stderr = res.Stderr
		}
		logger.Error().
			Str("video_id", videoID).
			Str("stderr", runner.Tail(stderr, 10)).
			Msg("caption downloader failed")
		if captionsAbsent(stderr) {
			metrics.RecordExtraction("no_captions", time.Since(start))
			return nil, fmt.Errorf("%w for video %s in language %s", ErrNoCaptions, videoID, lang)
		}
		metrics.RecordExtraction("failure", time.Since(start))
		return nil, fmt.Errorf("%w: downloader exited abnormally", ErrExtractionFailed)
	}

	captionFile, err := findCaptionFile(workDir)
	if err != nil {
		metrics.RecordExtraction("no_captions", time.Since(start))
		return nil, fmt.Errorf("%w for video %s in language %s", ErrNoCaptions, videoID, lang)
	}

	content, err := os.ReadFile(captionFile)
	if err != nil {
		metrics.RecordExtraction("failure", time.Since(start))
		return nil, fmt.Errorf("%w: read caption file: %v", ErrExtractionFailed, err)
	}

	segments, err := vtt.Parse(string(content))
	if err != nil {
		// Zero cues means the captions are effectively unavailable.
		if errors.Is(err, vtt.ErrNoSegments) {
			metrics.RecordExtraction("no_captions", time.Since(start))
			return nil, fmt.Errorf("%w for video %s in language %s", ErrNoCaptions, videoID, lang)
		}
		metrics.RecordExtraction("failure", time.Since(start))
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	generated := isGenerated(filepath.Base(captionFile))
	metrics.RecordExtraction("success", time.Since(start))
	logger.Info().
		Str("video_id", videoID).
		Int("segments", len(segments)).
		Bool("is_generated", generated).
		Dur("duration", time.Since(start)).
		Msg("captions extracted")

	return &types.TranscriptRecord{
		VideoID:     videoID,
		Language:    lang,
		IsGenerated: generated,
		Segments:    segments,
	}, nil
}

// captionsAbsent sniffs downloader diagnostics for caption-absence phrases.
func captionsAbsent(stderr string) bool {
	if strings.Contains(stderr, "No video subtitles") {
		return true
	}
	lower := strings.ToLower(stderr)
	return strings.Contains(lower, "no subtitles") ||
		strings.Contains(lower, "unable to download video subtitles")
}

// findCaptionFile locates the produced .vtt file in the working directory.
func findCaptionFile(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.vtt"))
	if err != nil || len(matches) == 0 {
		return "", errors.New("no caption file produced")
	}
	return matches[0], nil
}

// isGenerated applies the downloader's filename convention: auto captions
// carry an "-auto" marker or a bare stem without a language infix.
func isGenerated(name string) bool {
	if strings.Contains(name, "-auto") {
		return true
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return !strings.Contains(stem, ".")
}
