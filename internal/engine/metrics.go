package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("ashc.engine")

var (
	samplesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ashc_samples_total",
			Help: "Samples appended to evidence, by outcome",
		},
		[]string{"outcome"},
	)

	sessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ashc_sessions_total",
			Help: "Completed compile sessions",
		},
		[]string{"verified", "stop_reason"},
	)

	lateResultsDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ashc_late_results_discarded_total",
			Help: "Sample results that arrived after a stop decision",
		},
	)

	sampleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ashc_sample_duration_seconds",
			Help:    "Generation plus verification time per sample",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		},
	)
)
