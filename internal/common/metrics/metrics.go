// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_requests_total",
			Help: "Total number of match requests by outcome",
		},
		[]string{"outcome"},
	)

	MatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "matching_pipeline_duration_seconds",
			Help: "Duration of the matching pipeline in seconds",
		},
		[]string{"source"},
	)

	SearchFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_search_fallbacks_total",
			Help: "Total number of searches served by the Postgres fallback",
		},
	)

	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_cache_operations_total",
			Help: "Total cache operations by namespace and result",
		},
		[]string{"namespace", "result"},
	)

	AssignmentAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_assignment_attempts_total",
			Help: "Total ticket assignment attempts by outcome",
		},
		[]string{"outcome"},
	)

	AssignmentContentionTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_assignment_contention_total",
			Help: "Total assignment attempts that lost a concurrency race",
		},
	)

	ActiveAssignments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matching_active_assignments",
			Help: "Number of currently active ticket assignments",
		},
	)
)
