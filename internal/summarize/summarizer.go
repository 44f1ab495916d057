// SPDX-License-Identifier: MIT

// Package summarize orchestrates the external text-generation tool behind
// its own bounded pool and validates the returned output against prompt
// injection artifacts.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"captiond/internal/log"
	"captiond/internal/metrics"
	"captiond/internal/runner"
	"captiond/internal/telemetry"
	"captiond/internal/types"
)

var (
	// ErrToolNotFound reports a missing text-generation binary.
	ErrToolNotFound = errors.New("summarization tool not found")

	// ErrSummarizationTimeout reports a tool run that exceeded the
	// wall-clock budget and was killed.
	ErrSummarizationTimeout = errors.New("summarization timed out")

	// ErrSummarizationFailed reports any other summarization failure,
	// including output rejected by the injection defense.
	ErrSummarizationFailed = errors.New("summarization failed")
)

// Options configures a Summarizer.
type Options struct {
	CLIPath       string        // text-generation binary, default "copilot"
	Model         string        // model identifier handed to the tool
	Timeout       time.Duration // hard per-summarization wall clock
	MaxConcurrent int           // pool size, minimum 1
	MaxInputLen   int           // input characters beyond this are truncated
}

// Summarizer runs at most MaxConcurrent tool processes at a time, sized
// independently from the extraction pool.
type Summarizer struct {
	opts  Options
	slots chan struct{}
}

// New creates a summarizer with its own slot pool. A missing tool binary is
// logged at construction but only fails actual summarize calls.
func New(opts Options) *Summarizer {
	if opts.CLIPath == "" {
		opts.CLIPath = "copilot"
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if _, err := exec.LookPath(opts.CLIPath); err != nil {
		logger := log.WithComponent("summarize")
		logger.Warn().
			Str("path", opts.CLIPath).
			Msg("summarization tool not on PATH, summarize calls will fail")
	}
	return &Summarizer{
		opts:  opts,
		slots: make(chan struct{}, opts.MaxConcurrent),
	}
}

// Summarize produces a length-bounded summary of text via the external
// tool. The input travels through a temp file so it never appears in argv
// or the process list.
func (s *Summarizer) Summarize(ctx context.Context, text string, length types.SummaryLength) (string, error) {
	ctx, span := telemetry.Tracer("summarize").Start(ctx, "summarize.Summarize")
	defer span.End()
	span.SetAttributes(attribute.String("length", length.String()))

	logger := log.WithComponentFromContext(ctx, "summarize")

	if !length.IsValid() {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidLength, length)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty input", ErrSummarizationFailed)
	}
	if s.opts.MaxInputLen > 0 && len(text) > s.opts.MaxInputLen {
		text = truncateAtWord(text, s.opts.MaxInputLen)
		logger.Warn().Int("max_len", s.opts.MaxInputLen).Msg("input truncated for summarization")
	}

	tmp, err := os.CreateTemp("", "captiond-transcript-*.txt")
	if err != nil {
		return "", fmt.Errorf("%w: create transcript file: %v", ErrSummarizationFailed, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("file", tmpPath).Msg("remove transcript temp file")
		}
	}()
	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("%w: write transcript file: %v", ErrSummarizationFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: close transcript file: %v", ErrSummarizationFailed, err)
	}

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	logger.Info().
		Str("length", length.String()).
		Int("input_chars", len(text)).
		Str("model", s.opts.Model).
		Msg("summarizing transcript")

	var env []string
	if s.opts.Model != "" {
		env = append(env, "GITHUB_COPILOT_MODEL="+s.opts.Model)
	}

	start := time.Now()
	metrics.SummaryStarted()
	res, runErr := runner.Run(ctx, runner.Spec{
		Path: s.opts.CLIPath,
		Args: []string{"-p", buildPrompt(tmpPath, length)},
		Env:  env,
	}, s.opts.Timeout)
	metrics.SummaryFinished()

	if runErr != nil {
		switch {
		case errors.Is(runErr, runner.ErrTimeout):
			metrics.RecordSummary("timeout", time.Since(start))
			return "", fmt.Errorf("%w after %s", ErrSummarizationTimeout, s.opts.Timeout)
		case errors.Is(runErr, exec.ErrNotFound):
			metrics.RecordSummary("tool_missing", time.Since(start))
			return "", fmt.Errorf("%w: %s", ErrToolNotFound, s.opts.CLIPath)
		case errors.Is(runErr, context.Canceled):
			return "", runErr
		}
		stderr := ""
		if res != nil {
			stderr = res.Stderr
		}
		logger.Error().
			Str("stderr", runner.Tail(stderr, 10)).
			Msg("summarization tool failed")
		metrics.RecordSummary("failure", time.Since(start))
		return "", fmt.Errorf("%w: tool exited abnormally", ErrSummarizationFailed)
	}

	summary := extractSummary(res.Stdout)
	if summary == "" {
		metrics.RecordSummary("failure", time.Since(start))
		return "", fmt.Errorf("%w: tool produced no summary", ErrSummarizationFailed)
	}

	summary, err = validateOutput(summary)
	if err != nil {
		logger.Warn().Msg("summary rejected by injection defense")
		metrics.RecordSummary("failure", time.Since(start))
		return "", err
	}

	metrics.RecordSummary("success", time.Since(start))
	logger.Info().
		Int("output_chars", len(summary)).
		Dur("duration", time.Since(start)).
		Msg("summary generated")
	return summary, nil
}

// truncateAtWord cuts s to at most max bytes, backing up to the last space
// so no word is split.
func truncateAtWord(s string, max int) string {
	cut := s[:max]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut
}
