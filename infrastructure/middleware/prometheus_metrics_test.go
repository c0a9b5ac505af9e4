package middleware

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetricsRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	labels := map[string]string{"kind": "safety", "outcome": "success"}
	pm.RecordLatency("worker_run", 150*time.Millisecond, labels)
	pm.RecordCounter("worker_runs_total", 1, labels)
	pm.RecordCounter("worker_generation_calls_total", 3, labels)
	pm.RecordGauge("registered_workers", 6, nil)
	pm.RecordHistogram("aggregate_confidence", 0.8, nil)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, family := range families {
		names[family.GetName()] = true
	}
	assert.True(t, names["worker_execution_duration_seconds"])
	assert.True(t, names["worker_runs_total"])
	assert.True(t, names["worker_generation_calls_total"])
	assert.True(t, names["engine_state"])
	assert.True(t, names["engine_observations"])
}

func TestPrometheusMetricsCounterValues(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	labels := map[string]string{"kind": "data", "outcome": "failure"}
	pm.RecordCounter("worker_runs_total", 1, labels)
	pm.RecordCounter("worker_runs_total", 1, labels)

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != "worker_runs_total" {
			continue
		}
		require.Len(t, family.GetMetric(), 1)
		assert.Equal(t, 2.0, family.GetMetric()[0].GetCounter().GetValue())
	}
}
