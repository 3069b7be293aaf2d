// Package metrics exposes Prometheus collectors for backend calls and
// pipeline runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dusk-indust/diverge/internal/backend"
	"github.com/dusk-indust/diverge/internal/orchestrator"
)

const namespace = "diverge"

// Compile-time interface checks.
var (
	_ backend.Observer      = (*Metrics)(nil)
	_ orchestrator.Recorder = (*Metrics)(nil)
)

// Metrics holds every collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	runs         *prometheus.CounterVec
	failures     *prometheus.CounterVec
	candidates   prometheus.Histogram
	runDuration  prometheus.Histogram
}

// New creates the collectors and registers them, along with the Go runtime
// and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_calls_total",
			Help:      "Backend calls by backend and outcome.",
		}, []string{"backend", "outcome"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_call_duration_seconds",
			Help:      "Backend call latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"backend"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed pipeline runs by reduction path.",
		}, []string{"path"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_failures_total",
			Help:      "Pipeline runs that ended in a terminal error, by reason.",
		}, []string{"reason"}),
		candidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_candidates",
			Help:      "Candidate solutions generated per run.",
			Buckets:   prometheus.LinearBuckets(0, 3, 8),
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "End-to-end pipeline latency.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}

	m.registry.MustRegister(
		m.calls,
		m.callDuration,
		m.runs,
		m.failures,
		m.candidates,
		m.runDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCall records one backend attempt.
func (m *Metrics) ObserveCall(backendID, outcome string, elapsed time.Duration) {
	m.calls.WithLabelValues(backendID, outcome).Inc()
	m.callDuration.WithLabelValues(backendID).Observe(elapsed.Seconds())
}

// RecordRun records one successful pipeline run.
func (m *Metrics) RecordRun(path orchestrator.Path, candidates int, elapsed time.Duration) {
	m.runs.WithLabelValues(string(path)).Inc()
	m.candidates.Observe(float64(candidates))
	m.runDuration.Observe(elapsed.Seconds())
}

// RecordFailure records one terminal pipeline failure.
func (m *Metrics) RecordFailure(reason string) {
	m.failures.WithLabelValues(reason).Inc()
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
