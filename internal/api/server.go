// SPDX-License-Identifier: MIT

// Package api is the HTTP surface: a thin chi router over the core service
// operations.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"captiond/internal/service"
)

// Options configures the HTTP server.
type Options struct {
	Service *service.Service

	// CacheEnabled and CacheDir are reported by the health endpoint.
	CacheEnabled bool
	CacheDir     string

	// RateLimitPerMinute bounds /api requests per client IP; zero
	// disables the limiter.
	RateLimitPerMinute int
}

// Server handles the HTTP API.
type Server struct {
	opts Options
}

func NewServer(opts Options) *Server {
	return &Server{opts: opts}
}

// Router builds the full handler chain. Tracing wraps everything; with a
// disabled telemetry provider the spans are no-ops.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(requestID)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if s.opts.RateLimitPerMinute > 0 {
			r.Use(rateLimit(s.opts.RateLimitPerMinute, time.Minute))
		}
		r.Get("/transcript", s.handleTranscript)
		r.Get("/summary", s.handleSummary)
		r.Delete("/cache", s.handleCacheClear)
		r.Delete("/cache/{videoID}", s.handleCacheInvalidate)
		r.Delete("/cache/{videoID}/{lang}", s.handleCacheInvalidate)
	})

	return otelhttp.NewHandler(r, "captiond.http")
}
