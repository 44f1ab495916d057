// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus instrumentation for the cache store
// and the two external-tool pools.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "captiond_cache_operations_total",
		Help: "Cache operations by kind and outcome",
	}, []string{"kind", "outcome"}) // kind=transcript|summary, outcome=hit|miss|corrupt|write|invalid_key

	extractions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "captiond_extractions_total",
		Help: "Caption extraction attempts by outcome",
	}, []string{"outcome"}) // outcome=success|no_captions|timeout|failure

	extractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "captiond_extraction_duration_seconds",
		Help:    "Wall-clock duration of caption extractions",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	extractionsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "captiond_extractions_in_flight",
		Help: "External downloader processes currently running",
	})

	summaries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "captiond_summaries_total",
		Help: "Summarization attempts by outcome",
	}, []string{"outcome"}) // outcome=success|timeout|failure|tool_missing

	summaryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "captiond_summary_duration_seconds",
		Help:    "Wall-clock duration of summarizations",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	summariesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "captiond_summaries_in_flight",
		Help: "External summarizer processes currently running",
	})

	injectionDetections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "captiond_injection_detections_total",
		Help: "Summary outputs rejected or redacted by the injection defense",
	}, []string{"rule"}) // rule=url_redacted|shell_pattern|meta_instruction|truncated
)

// RecordCacheOp counts one cache operation.
func RecordCacheOp(kind, outcome string) {
	cacheOps.WithLabelValues(kind, outcome).Inc()
}

// RecordExtraction counts one extraction attempt and its duration.
func RecordExtraction(outcome string, d time.Duration) {
	extractions.WithLabelValues(outcome).Inc()
	extractionDuration.Observe(d.Seconds())
}

// ExtractionStarted marks a downloader process entering execution.
func ExtractionStarted() { extractionsInFlight.Inc() }

// ExtractionFinished marks a downloader process leaving execution.
func ExtractionFinished() { extractionsInFlight.Dec() }

// RecordSummary counts one summarization attempt and its duration.
func RecordSummary(outcome string, d time.Duration) {
	summaries.WithLabelValues(outcome).Inc()
	summaryDuration.Observe(d.Seconds())
}

// SummaryStarted marks a summarizer process entering execution.
func SummaryStarted() { summariesInFlight.Inc() }

// SummaryFinished marks a summarizer process leaving execution.
func SummaryFinished() { summariesInFlight.Dec() }

// RecordInjectionDetection counts one injection-defense trigger.
func RecordInjectionDetection(rule string) {
	injectionDetections.WithLabelValues(rule).Inc()
}
