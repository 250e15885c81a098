package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ClonesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clones_in_flight",
			Help: "Clone pipelines currently running.",
		},
	)

	// status: done, error. error_type is empty on success.
	ClonesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clones_total",
			Help: "Total number of finished clone pipelines.",
		},
		[]string{"status", "error_type"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clone_stage_duration_seconds",
			Help:    "Duration of each clone pipeline stage.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"stage"},
	)

	ExtractionStepFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_step_failures_total",
			Help: "Extraction sub-steps that degraded to a default value.",
		},
		[]string{"step"},
	)

	AgentFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "generation_agent_failures_total",
			Help: "Parallel generation agents that produced no output.",
		},
	)

	GenerationTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_tokens_total",
			Help: "Tokens consumed by generation calls.",
		},
		[]string{"direction"}, // in, out
	)

	// result: success, failure, timeout, killed
	BuildAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "build_attempts_total",
			Help: "Sandbox build attempts by result.",
		},
		[]string{"result"},
	)
)
