// Package middleware provides cross-cutting concerns shared by the
// execution engine: metrics collection and related instrumentation.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trialmind/trialmind/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It tracks worker execution latency, run outcomes, and
// generation-backend consumption per worker kind.
type PrometheusMetrics struct {
	executionLatency *prometheus.HistogramVec
	runCounter       *prometheus.CounterVec
	generationCalls  *prometheus.CounterVec
	systemGauges     *prometheus.GaugeVec
	valueHistograms  *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance registered
// with the given registerer. Pass prometheus.DefaultRegisterer for the
// process-wide registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		executionLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "worker_execution_duration_seconds",
				Help:    "Execution time of worker runs.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "kind", "outcome"},
		),
		runCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worker_runs_total",
				Help: "Total worker runs by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		generationCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worker_generation_calls_total",
				Help: "Total generation-backend calls made by workers.",
			},
			[]string{"kind", "outcome"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "engine_state",
				Help: "Current engine state values.",
			},
			[]string{"metric"},
		),
		valueHistograms: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "engine_observations",
				Help:    "General value distributions recorded by the engine.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency records execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.executionLatency.WithLabelValues(operation, labels["kind"], labels["outcome"]).
		Observe(duration.Seconds())
}

// RecordCounter increments the Prometheus counter matching the metric
// name. Unknown names fall through to the run counter so nothing is
// silently dropped.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case "worker_generation_calls_total":
		pm.generationCalls.WithLabelValues(labels["kind"], labels["outcome"]).Add(value)
	default:
		pm.runCounter.WithLabelValues(labels["kind"], labels["outcome"]).Add(value)
	}
}

// RecordGauge sets a named engine state gauge.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	pm.systemGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram records a value in the general observation histogram.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	pm.valueHistograms.WithLabelValues(metric).Observe(value)
}

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
