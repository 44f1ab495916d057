// SPDX-License-Identifier: MIT

// captiond serves YouTube transcript extraction and summarization over
// HTTP, backed by yt-dlp and an external text-generation CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"captiond/internal/api"
	"captiond/internal/cache"
	"captiond/internal/config"
	"captiond/internal/extractor"
	"captiond/internal/log"
	"captiond/internal/service"
	"captiond/internal/summarize"
	"captiond/internal/telemetry"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg := config.Load()
	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Service: "captiond",
	})
	logger := log.WithComponent("main")

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg.Telemetry.ServiceVersion = version
	provider, err := telemetry.NewProvider(ctx, cfg.Telemetry)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown")
		}
	}()

	transcripts, err := cache.New(cfg.CacheDir, cfg.CacheEnabled)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.CacheDir).Msg("open transcript cache")
	}
	summaries, err := cache.New(cfg.CacheDir, cfg.SummaryCacheEnabled)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.CacheDir).Msg("open summary cache")
	}

	svc := service.New(service.Options{
		Transcripts: transcripts,
		Summaries:   summaries,
		Extractor: extractor.New(extractor.Options{
			YtdlpPath:     cfg.YtdlpPath,
			Timeout:       cfg.YtdlpTimeout,
			MaxConcurrent: cfg.MaxConcurrentExtractions,
			MinInterval:   cfg.ExtractionMinInterval,
		}),
		Summarizer: summarize.New(summarize.Options{
			CLIPath:       cfg.SummarizerPath,
			Model:         cfg.SummarizerModel,
			Timeout:       cfg.SummarizerTimeout,
			MaxConcurrent: cfg.MaxConcurrentSummaries,
			MaxInputLen:   cfg.MaxTranscriptLength,
		}),
		DefaultLanguage: cfg.DefaultLanguage,
		Model:           cfg.SummarizerModel,
	})

	server := &http.Server{
		Addr: cfg.Listen,
		Handler: api.NewServer(api.Options{
			Service:            svc,
			CacheEnabled:       cfg.CacheEnabled,
			CacheDir:           cfg.CacheDir,
			RateLimitPerMinute: 600,
		}).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("listen", cfg.Listen).
			Str("version", version).
			Bool("cache_enabled", cfg.CacheEnabled).
			Msg("server starting")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed, forcing close")
		_ = server.Close()
	}
	logger.Info().Msg("server stopped")
}
