package synthesis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialmind/trialmind/internal/domain"
)

func TestClassifyQuery(t *testing.T) {
	tests := []struct {
		query string
		want  displayIntent
	}{
		{"", intentNone},
		{"summarize the current protocol", intentNone},
		{"show me a chart of survival over time", intentChart},
		{"plot the enrollment trend", intentChart},
		{"compare adverse events by site", intentTable},
		{"give me a breakdown of deviations", intentTable},
		{"how many patients are enrolled", intentMetric},
		{"what is the current enrollment rate", intentMetric},
		// Chart wording outranks table and metric wording.
		{"a table of the survival curve values", intentChart},
		// One-letter typos still resolve.
		{"show the survivel curve", intentChart},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyQuery(tt.query))
		})
	}
}

func TestSynthesizeChartIntentOverridesKindDefault(t *testing.T) {
	shared := map[domain.WorkerKind]map[string]any{
		domain.WorkerData: resultMap(domain.WorkerData, true, 0.9, map[string]any{
			"hazard_ratio": 1.8,
			"survival_curve": []map[string]any{
				{"time": 0.0, "probability": 1.0},
				{"time": 30.0, "probability": 0.92},
				{"time": 60.0, "probability": 0.85},
			},
		}),
	}
	ec := synthContext(shared)
	ec.Query = "show me a chart of survival over time"

	s := NewSynthesizer()
	result, err := s.Synthesize(context.Background(), KindRiskBrief, ec)
	require.NoError(t, err)

	assert.Equal(t, domain.DisplayChart, result.Display)
	require.NotNil(t, result.Chart)
	assert.Equal(t, "kaplan_meier", result.Chart.Type)
	require.Len(t, result.Chart.Series, 1)
	assert.Len(t, result.Chart.Series[0].Points, 3)
}

func TestSynthesizeChartIntentDegradesWithoutPlottableData(t *testing.T) {
	shared := map[domain.WorkerKind]map[string]any{
		domain.WorkerProtocol: resultMap(domain.WorkerProtocol, true, 0.9,
			map[string]any{"visit_window_days": 7.0}),
	}
	ec := synthContext(shared)
	ec.Query = "chart the visit schedule"

	s := NewSynthesizer()
	result, err := s.Synthesize(context.Background(), KindReadiness, ec)
	require.NoError(t, err)

	// No series can be built, so the claim degrades to prose.
	assert.Equal(t, domain.DisplayNarrative, result.Display)
	assert.Nil(t, result.Chart)
}

func TestSynthesizeDeviationBriefDefaultsToTable(t *testing.T) {
	shared := map[domain.WorkerKind]map[string]any{
		domain.WorkerCompliance: resultMap(domain.WorkerCompliance, true, 0.9, map[string]any{
			"deviations": []map[string]any{
				{"severity": "minor", "description": "visit 1 day late", "date": "2026-07-14"},
				{"severity": "major", "description": "missed PK sample", "date": "2026-08-02"},
			},
		}),
	}

	s := NewSynthesizer()
	result, err := s.Synthesize(context.Background(), KindDeviationBrief, synthContext(shared))
	require.NoError(t, err)

	assert.Equal(t, domain.DisplayTable, result.Display)
	require.NotNil(t, result.Table)
	assert.Len(t, result.Table.Rows, 2)
	assert.Equal(t, 2, result.Data["deviation_count"])
}

func TestSynthesizeDeviationBriefWithoutDeviationsIsNarrative(t *testing.T) {
	shared := map[domain.WorkerKind]map[string]any{
		domain.WorkerCompliance: resultMap(domain.WorkerCompliance, true, 0.9,
			map[string]any{"compliance_rate": 0.98}),
	}

	s := NewSynthesizer()
	result, err := s.Synthesize(context.Background(), KindDeviationBrief, synthContext(shared))
	require.NoError(t, err)

	assert.Equal(t, domain.DisplayNarrative, result.Display)
	assert.Nil(t, result.Table)
}

func TestSelectDisplayMixedNeverClaimed(t *testing.T) {
	// The selector itself only emits shapes it populated; a mixed
	// preference with no payload must come out as narrative after
	// finalization.
	result := domain.NewWorkerResult(domain.WorkerSynthesis)
	result.Display = domain.DisplayMixed
	result.Finalize(time.Now(), 0)
	assert.Equal(t, domain.DisplayNarrative, result.Display)
}

func TestBuildMetricsFromSharedData(t *testing.T) {
	entries := sortedEntries(map[domain.WorkerKind]map[string]any{
		domain.WorkerData: resultMap(domain.WorkerData, true, 0.9,
			map[string]any{"enrolled_count": 24.0}),
		domain.WorkerSafety: resultMap(domain.WorkerSafety, true, 0.9,
			map[string]any{"adverse_event_count": 3.0, "patient_count": 24.0}),
	})

	cards := buildMetrics(entries, computed{data: map[string]any{}})
	labels := make([]string, len(cards))
	for i, card := range cards {
		labels[i] = card.Label
	}
	assert.Contains(t, labels, "Enrolled")
	assert.Contains(t, labels, "Adverse events")
	assert.Contains(t, labels, "Patients")
}
