package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GenerationsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_requests_completed_total",
			Help: "Total number of successful generation calls",
		},
		[]string{"variant_count"},
	)
	GenerationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_requests_failed_total",
			Help: "Total number of failed generation calls",
		},
		[]string{"error_code"},
	)
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_duration_seconds",
			Help:    "Wall time of one generation call including the provider round trip",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"path"},
	)
	UsageLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usage_limit_rejections_total",
			Help: "Requests rejected because the user hit a generation quota",
		},
		[]string{"window"},
	)
)
