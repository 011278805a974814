// Package metrics exposes Prometheus collectors for the resolution pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	StrategyAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidsrc_strategy_attempts_total",
			Help: "Extraction attempts by strategy and outcome.",
		},
		[]string{"strategy", "outcome"},
	)
	StrategyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidsrc_strategy_duration_seconds",
			Help:    "Duration of one strategy attempt in seconds.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"strategy"},
	)
	ManifestsCaptured = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vidsrc_manifests_captured",
			Help:    "Number of manifests captured per successful attempt.",
			Buckets: []float64{1, 2, 3, 5, 8},
		},
	)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidsrc_cache_lookups_total",
			Help: "Resolution cache lookups, labeled hit or miss.",
		},
		[]string{"result"},
	)
	SolverTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidsrc_solver_tasks_total",
			Help: "Challenge solving tasks by outcome.",
		},
		[]string{"outcome"},
	)
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vidsrc_browser_sessions_active",
			Help: "Browser sessions currently open.",
		},
	)
)

func init() {
	prometheus.MustRegister(StrategyAttempts)
	prometheus.MustRegister(StrategyDuration)
	prometheus.MustRegister(ManifestsCaptured)
	prometheus.MustRegister(CacheLookups)
	prometheus.MustRegister(SolverTasks)
	prometheus.MustRegister(ActiveSessions)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
