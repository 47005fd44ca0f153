// Package metrics provides Prometheus metrics for request/response cycles.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects cycle, polling and upstream metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	cyclesTotal    *prometheus.CounterVec
	cycleDuration  *prometheus.HistogramVec
	pollsTotal     prometheus.Counter
	runsAwaited    prometheus.Counter
	runConflicts   prometheus.Counter
	upstreamErrors *prometheus.CounterVec
	threadsCreated prometheus.Counter
}

// New creates a Metrics instance on its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "insights_cycles_total",
			Help: "Total number of request/response cycles by kind and outcome",
		}, []string{"kind", "status"}),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "insights_cycle_duration_seconds",
			Help:    "Duration of request/response cycles in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		}, []string{"kind", "status"}),
		pollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "insights_run_polls_total",
			Help: "Total number of run status checks",
		}),
		runsAwaited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "insights_runs_awaited_total",
			Help: "Active runs found on a thread and waited for before appending input",
		}),
		runConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "insights_run_conflicts_total",
			Help: "Run starts rejected because the thread already had an active run",
		}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "insights_upstream_errors_total",
			Help: "Errors returned by the assistants API by operation",
		}, []string{"operation"}),
		threadsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "insights_threads_created_total",
			Help: "Remote threads created",
		}),
	}

	registry.MustRegister(
		m.cyclesTotal,
		m.cycleDuration,
		m.pollsTotal,
		m.runsAwaited,
		m.runConflicts,
		m.upstreamErrors,
		m.threadsCreated,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveCycle records the outcome of one cycle.
func (m *Metrics) ObserveCycle(kind, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.cyclesTotal.WithLabelValues(kind, status).Inc()
	m.cycleDuration.WithLabelValues(kind, status).Observe(d.Seconds())
}

// ObservePoll records one run status check.
func (m *Metrics) ObservePoll() {
	if m == nil {
		return
	}
	m.pollsTotal.Inc()
}

// ObserveRunAwaited records a pre-existing active run the cycle waited for.
func (m *Metrics) ObserveRunAwaited() {
	if m == nil {
		return
	}
	m.runsAwaited.Inc()
}

// ObserveRunConflict records a rejected run start.
func (m *Metrics) ObserveRunConflict() {
	if m == nil {
		return
	}
	m.runConflicts.Inc()
}

// ObserveUpstreamError records a failed remote call.
func (m *Metrics) ObserveUpstreamError(operation string) {
	if m == nil {
		return
	}
	m.upstreamErrors.WithLabelValues(operation).Inc()
}

// ObserveThreadCreated records a newly created remote thread.
func (m *Metrics) ObserveThreadCreated() {
	if m == nil {
		return
	}
	m.threadsCreated.Inc()
}
