// Package metrics 定義服務的 Prometheus 指標.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 指標
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// 管線指標
	CandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_candidates_total",
			Help: "Candidate records extracted from webhook payloads",
		},
		[]string{"category"},
	)

	ResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_results_total",
			Help: "Per-candidate persistence outcomes",
		},
		[]string{"outcome"}, // "success" 或 "error"
	)

	DroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_dropped_total",
			Help: "Candidates dropped before persistence",
		},
		[]string{"reason"},
	)

	QueueFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_queue_failures_total",
			Help: "Media jobs that could not be published",
		},
	)
)
