// Package metrics holds the Prometheus collectors of the planner.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry of the planner.
	Registry = prometheus.NewRegistry()
	// PlanSolves counts optimizations by outcome (solver status, "invalid", "cached" or "abandoned").
	PlanSolves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "plan_solves_total", Help: "Trajectory optimizations by outcome."},
		[]string{"status"},
	)
	// SolveDuration records optimization durations in seconds.
	SolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "plan_solve_duration_seconds", Help: "Trajectory optimization duration in seconds.", Buckets: prometheus.ExponentialBuckets(0.001, 4, 10)},
	)
	// TimeSegments records the requested number of time steps.
	TimeSegments = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "plan_time_segments", Help: "Requested time segments per plan.", Buckets: []float64{1, 10, 50, 100, 250, 500, 1000, 5000}},
	)
	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
)

// RegisterDefault registers the collectors to Registry, once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(PlanSolves)
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(TimeSegments)
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
