// SPDX-License-Identifier: MIT

// Package config assembles the daemon configuration from environment
// variables with logged defaults and a single validation pass.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"captiond/internal/telemetry"
	"captiond/internal/ytid"
)

// Config is the complete runtime configuration of the daemon.
type Config struct {
	// Listen is the HTTP bind address, host:port or :port.
	Listen string

	// CacheDir is the root of the JSON cache tree.
	CacheDir string
	// CacheEnabled gates the transcript cache; disabled means every
	// request extracts fresh.
	CacheEnabled bool
	// SummaryCacheEnabled gates the summary cache independently.
	SummaryCacheEnabled bool

	// YtdlpPath is the caption extraction binary.
	YtdlpPath string
	// YtdlpTimeout is the per-extraction wall clock.
	YtdlpTimeout time.Duration
	// MaxConcurrentExtractions bounds simultaneous yt-dlp processes.
	MaxConcurrentExtractions int
	// ExtractionMinInterval spaces extraction starts; zero disables
	// the rate limit.
	ExtractionMinInterval time.Duration

	// SummarizerPath is the text-generation CLI binary.
	SummarizerPath string
	// SummarizerModel is exported to the tool via GITHUB_COPILOT_MODEL.
	SummarizerModel string
	// SummarizerTimeout is the per-summarization wall clock.
	SummarizerTimeout time.Duration
	// MaxConcurrentSummaries bounds simultaneous tool processes.
	MaxConcurrentSummaries int
	// MaxTranscriptLength truncates summarizer input, in characters.
	MaxTranscriptLength int

	// DefaultLanguage is used when a request omits the language.
	DefaultLanguage string

	// LogLevel is a zerolog level name; empty means info.
	LogLevel string

	Telemetry telemetry.Config
}

// Load reads the configuration from the environment. Values are not
// validated here; call Validate before use.
func Load() Config {
	return Config{
		Listen:                   ParseString("CAPTIOND_LISTEN", ":8000"),
		CacheDir:                 ParseString("CACHE_DIR", "./cache"),
		CacheEnabled:             ParseBool("CACHE_ENABLED", true),
		SummaryCacheEnabled:      ParseBool("SUMMARY_CACHE_ENABLED", true),
		YtdlpPath:                ParseString("YTDLP_PATH", "yt-dlp"),
		YtdlpTimeout:             ParseDuration("YTDLP_TIMEOUT", 30*time.Second),
		MaxConcurrentExtractions: ParseInt("MAX_CONCURRENT_EXTRACTIONS", 2),
		ExtractionMinInterval:    ParseDuration("EXTRACTION_MIN_INTERVAL", 0),
		SummarizerPath:           ParseString("SUMMARIZER_PATH", "copilot"),
		SummarizerModel:          ParseString("SUMMARIZER_MODEL", "gpt-5-mini"),
		SummarizerTimeout:        ParseDuration("SUMMARIZER_TIMEOUT", 120*time.Second),
		MaxConcurrentSummaries:   ParseInt("MAX_CONCURRENT_SUMMARIES", 1),
		MaxTranscriptLength:      ParseInt("MAX_TRANSCRIPT_LENGTH", 100000),
		DefaultLanguage:          ParseString("DEFAULT_LANGUAGE", "en"),
		LogLevel:                 ParseString("LOG_LEVEL", "info"),
		Telemetry: telemetry.Config{
			Enabled:      ParseBool("OTEL_ENABLED", false),
			ServiceName:  "captiond",
			ExporterType: ParseString("OTEL_EXPORTER", "grpc"),
			Endpoint:     ParseString("OTEL_ENDPOINT", "localhost:4317"),
			SamplingRate: ParseFloat("OTEL_SAMPLING_RATE", 1.0),
		},
	}
}

// Validate checks the configuration for values that would misbehave at
// runtime and ensures the cache directory exists.
func (c Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.Listen, err)
	}
	if c.MaxConcurrentExtractions < 1 {
		return fmt.Errorf("MAX_CONCURRENT_EXTRACTIONS must be at least 1, got %d", c.MaxConcurrentExtractions)
	}
	if c.MaxConcurrentSummaries < 1 {
		return fmt.Errorf("MAX_CONCURRENT_SUMMARIES must be at least 1, got %d", c.MaxConcurrentSummaries)
	}
	if c.YtdlpTimeout <= 0 {
		return fmt.Errorf("YTDLP_TIMEOUT must be positive, got %s", c.YtdlpTimeout)
	}
	if c.SummarizerTimeout <= 0 {
		return fmt.Errorf("SUMMARIZER_TIMEOUT must be positive, got %s", c.SummarizerTimeout)
	}
	if c.ExtractionMinInterval < 0 {
		return fmt.Errorf("EXTRACTION_MIN_INTERVAL must not be negative, got %s", c.ExtractionMinInterval)
	}
	if c.MaxTranscriptLength < 0 {
		return fmt.Errorf("MAX_TRANSCRIPT_LENGTH must not be negative, got %d", c.MaxTranscriptLength)
	}
	if !ytid.ValidLanguage(c.DefaultLanguage) {
		return fmt.Errorf("DEFAULT_LANGUAGE %q is not a valid language tag", c.DefaultLanguage)
	}
	if c.CacheEnabled || c.SummaryCacheEnabled {
		if err := os.MkdirAll(c.CacheDir, 0o755); err != nil {
			return fmt.Errorf("create cache directory %s: %w", c.CacheDir, err)
		}
	}
	return nil
}
