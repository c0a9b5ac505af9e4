package synthesis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialmind/trialmind/internal/domain"
	"github.com/trialmind/trialmind/internal/prompts"
	"github.com/trialmind/trialmind/internal/testutils"
)

// resultMap builds a shared_data entry the way the dispatcher stores
// worker results.
func resultMap(kind domain.WorkerKind, success bool, confidence float64, data map[string]any) map[string]any {
	if data == nil {
		data = map[string]any{}
	}
	return map[string]any{
		"kind":       string(kind),
		"success":    success,
		"confidence": confidence,
		"data":       data,
	}
}

func synthContext(shared map[domain.WorkerKind]map[string]any) *domain.ExecutionContext {
	ec := domain.NewExecutionContext("req-1", "STUDY-001")
	if shared != nil {
		ec.SharedData = shared
	}
	return ec
}

func TestSynthesizeUnknownKind(t *testing.T) {
	s := NewSynthesizer()
	_, err := s.Synthesize(context.Background(), Kind("horoscope"), synthContext(nil))
	assert.ErrorIs(t, err, domain.ErrUnknownSynthesisKind)
}

func TestSynthesizeEmptySharedDataIsInsufficient(t *testing.T) {
	s := NewSynthesizer()

	result, err := s.Synthesize(context.Background(), KindSummary, synthContext(nil))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 0.0, result.Confidence)
	require.NotNil(t, result.Uncertainty)
	assert.Equal(t, []string{"all worker outputs missing"}, result.Uncertainty.DataGaps)
	assert.True(t, result.Insufficient())
	assert.Contains(t, result.Narrative, "Cannot answer")
}

func TestSynthesizeMissingRequiredKind(t *testing.T) {
	shared := map[domain.WorkerKind]map[string]any{
		domain.WorkerData: resultMap(domain.WorkerData, true, 0.9, map[string]any{"enrolled_count": 10.0}),
	}
	s := NewSynthesizer()

	result, err := s.Synthesize(context.Background(), KindDeviationBrief, synthContext(shared))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 0.0, result.Confidence)
	require.NotNil(t, result.Uncertainty)
	assert.Equal(t, []string{"Missing compliance worker output"}, result.Uncertainty.DataGaps)
}

func TestSynthesizeAllOutputsUnusable(t *testing.T) {
	shared := map[domain.WorkerKind]map[string]any{
		domain.WorkerData:   resultMap(domain.WorkerData, false, 0, map[string]any{"error": true}),
		domain.WorkerSafety: resultMap(domain.WorkerSafety, true, 0, map[string]any{"insufficient_data": true}),
	}
	s := NewSynthesizer()

	result, err := s.Synthesize(context.Background(), KindSummary, synthContext(shared))
	require.NoError(t, err)

	assert.True(t, result.Insufficient())
	require.NotNil(t, result.Uncertainty)
	assert.Equal(t, []string{"all available outputs errored or were themselves insufficient"}, result.Uncertainty.DataGaps)
}

func TestSynthesizeAggregatesSuccessesOnly(t *testing.T) {
	shared := map[domain.WorkerKind]map[string]any{
		domain.WorkerData:     resultMap(domain.WorkerData, true, 0.9, map[string]any{"enrolled_count": 24.0}),
		domain.WorkerProtocol: resultMap(domain.WorkerProtocol, true, 0.7, map[string]any{"visit_window_days": 7.0}),
		domain.WorkerSafety:   resultMap(domain.WorkerSafety, false, 0, nil),
	}
	shared[domain.WorkerSafety]["error"] = "feed offline"

	s := NewSynthesizer()
	result, err := s.Synthesize(context.Background(), KindSummary, synthContext(shared))
	require.NoError(t, err)

	assert.InDelta(t, 0.8, result.Confidence, 1e-9)
	require.NotNil(t, result.Uncertainty)
	assert.Contains(t, result.Uncertainty.Limitations, "1 worker(s) failed")
	assert.Contains(t, result.Uncertainty.DataGaps, "safety failed: feed offline")
	assert.Contains(t, result.Reasoning, "aggregate confidence 0.80")
}

func TestSynthesizeDeduplicatesEvidence(t *testing.T) {
	first := resultMap(domain.WorkerData, true, 0.9, map[string]any{"enrolled_count": 24.0})
	first["evidence"] = []domain.EvidenceSource{
		domain.NewEvidence(domain.EvidenceStudyData, "visits/2024-06", 0.9),
	}
	second := resultMap(domain.WorkerSafety, true, 0.8, map[string]any{"adverse_event_count": 2.0, "patient_count": 24.0})
	second["evidence"] = []domain.EvidenceSource{
		domain.NewEvidence(domain.EvidenceStudyData, "visits/2024-06", 0.4),
		domain.NewEvidence(domain.EvidenceComputedStatistic, "ae-rate", 0.8),
	}

	shared := map[domain.WorkerKind]map[string]any{
		domain.WorkerData:   first,
		domain.WorkerSafety: second,
	}
	s := NewSynthesizer()
	result, err := s.Synthesize(context.Background(), KindSummary, synthContext(shared))
	require.NoError(t, err)

	require.Len(t, result.Evidence, 2)
	var matched int
	for _, source := range result.Evidence {
		if source.Reference == "visits/2024-06" {
			matched++
			// First occurrence wins, entries walked in kind order.
			assert.Equal(t, 0.9, source.Confidence)
		}
	}
	assert.Equal(t, 1, matched)
}

func TestSynthesizeConfidenceWarningBelowThreshold(t *testing.T) {
	shared := map[domain.WorkerKind]map[string]any{
		domain.WorkerProtocol: resultMap(domain.WorkerProtocol, true, 0.5, map[string]any{"visit_window_days": 7.0}),
	}
	s := NewSynthesizer()

	// Readiness answers are recommendations (threshold 0.7).
	result, err := s.Synthesize(context.Background(), KindReadiness, synthContext(shared))
	require.NoError(t, err)

	assert.True(t, result.Success)
	warning, ok := result.Data["confidence_warning"].(string)
	require.True(t, ok)
	assert.Contains(t, warning, "below the 0.70 threshold")
}

func TestSynthesizeNoWarningAboveThreshold(t *testing.T) {
	shared := map[domain.WorkerKind]map[string]any{
		domain.WorkerProtocol: resultMap(domain.WorkerProtocol, true, 0.9, map[string]any{"visit_window_days": 7.0}),
	}
	s := NewSynthesizer()

	result, err := s.Synthesize(context.Background(), KindReadiness, synthContext(shared))
	require.NoError(t, err)
	assert.NotContains(t, result.Data, "confidence_warning")
}

func TestSynthesizeReadiness(t *testing.T) {
	tests := []struct {
		name      string
		deviations []map[string]any
		wantReady bool
	}{
		{
			name:      "no findings",
			wantReady: true,
		},
		{
			name: "minor deviation does not block",
			deviations: []map[string]any{
				{"severity": "minor", "description": "visit 1 day late"},
			},
			wantReady: true,
		},
		{
			name: "critical deviation blocks",
			deviations: []map[string]any{
				{"severity": "critical", "description": "wrong dose administered"},
			},
			wantReady: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			protocolData := map[string]any{"visit_window_days": 7.0}
			shared := map[domain.WorkerKind]map[string]any{
				domain.WorkerProtocol: resultMap(domain.WorkerProtocol, true, 0.9, protocolData),
			}
			if tt.deviations != nil {
				shared[domain.WorkerCompliance] = resultMap(domain.WorkerCompliance, true, 0.9,
					map[string]any{"deviations": tt.deviations})
			}

			s := NewSynthesizer()
			result, err := s.Synthesize(context.Background(), KindReadiness, synthContext(shared))
			require.NoError(t, err)
			assert.Equal(t, tt.wantReady, result.Data["ready"])
		})
	}
}

func TestSynthesizeSafetyBriefPatientCountGap(t *testing.T) {
	shared := map[domain.WorkerKind]map[string]any{
		domain.WorkerSafety: resultMap(domain.WorkerSafety, true, 0.9,
			map[string]any{"adverse_event_count": 3.0}),
	}
	s := NewSynthesizer()

	result, err := s.Synthesize(context.Background(), KindSafetyBrief, synthContext(shared))
	require.NoError(t, err)

	require.NotNil(t, result.Uncertainty)
	assert.Contains(t, result.Uncertainty.DataGaps, "no patient count for safety analysis")
}

func TestSynthesizeDashboardStatus(t *testing.T) {
	tests := []struct {
		name       string
		safetyData map[string]any
		dataData   map[string]any
		compliance []map[string]any
		want       string
	}{
		{
			name:       "clean study is green",
			safetyData: map[string]any{"adverse_event_count": 0.0, "patient_count": 24.0},
			dataData:   map[string]any{"enrolled_count": 24.0, "target_count": 30.0},
			want:       "GREEN",
		},
		{
			name:       "serious events force red",
			safetyData: map[string]any{"serious_event_count": 1.0, "patient_count": 24.0},
			dataData:   map[string]any{"enrolled_count": 24.0, "target_count": 30.0},
			want:       "RED",
		},
		{
			name:       "two warnings yield yellow",
			safetyData: map[string]any{"adverse_event_count": 3.0, "patient_count": 24.0},
			dataData:   map[string]any{"enrolled_count": 5.0, "target_count": 30.0},
			want:       "YELLOW",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shared := map[domain.WorkerKind]map[string]any{
				domain.WorkerSafety: resultMap(domain.WorkerSafety, true, 0.9, tt.safetyData),
				domain.WorkerData:   resultMap(domain.WorkerData, true, 0.9, tt.dataData),
			}
			if tt.compliance != nil {
				shared[domain.WorkerCompliance] = resultMap(domain.WorkerCompliance, true, 0.9,
					map[string]any{"deviations": tt.compliance})
			}

			s := NewSynthesizer()
			result, err := s.Synthesize(context.Background(), KindDashboard, synthContext(shared))
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Data["overall_status"])
		})
	}
}

func TestSynthesizeRiskBriefBoundedScore(t *testing.T) {
	shared := map[domain.WorkerKind]map[string]any{
		domain.WorkerData: resultMap(domain.WorkerData, true, 0.9, map[string]any{
			"hazard_ratio": 3.0,
			"risk_factors": []map[string]any{
				{"name": "prior cardiac event", "weight": 0.1},
				{"name": "age over 75", "weight": 0.1},
			},
		}),
	}
	s := NewSynthesizer()

	result, err := s.Synthesize(context.Background(), KindRiskBrief, synthContext(shared))
	require.NoError(t, err)

	score, ok := result.Data["risk_score"].(float64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
	assert.Equal(t, "high", result.Data["risk_level"])
	assert.Equal(t, domain.DisplayMetricGrid, result.Display)
	assert.NotEmpty(t, result.Metrics)
}

func TestSynthesizeGeneratedNarrative(t *testing.T) {
	loader, err := prompts.NewLoader()
	require.NoError(t, err)
	shared := map[domain.WorkerKind]map[string]any{
		domain.WorkerData: resultMap(domain.WorkerData, true, 0.9, map[string]any{"enrolled_count": 10.0}),
	}

	t.Run("backend phrasing used when it succeeds", func(t *testing.T) {
		generator := testutils.NewMockGenerator("Ten patients are enrolled in the study.")
		s := NewSynthesizer(WithGenerator(generator), WithTemplates(loader))

		result, err := s.Synthesize(context.Background(), KindSummary, synthContext(shared))
		require.NoError(t, err)
		assert.Equal(t, "Ten patients are enrolled in the study.", result.Narrative)
		assert.Equal(t, 1, generator.Calls())
	})

	t.Run("backend failure falls back to fact rendering", func(t *testing.T) {
		generator := testutils.NewMockGenerator("").WithError(errors.New("backend down"))
		s := NewSynthesizer(WithGenerator(generator), WithTemplates(loader))

		result, err := s.Synthesize(context.Background(), KindSummary, synthContext(shared))
		require.NoError(t, err)
		assert.Contains(t, result.Narrative, "data reported enrolled_count")
	})
}

func TestSynthesizeRequireProvenanceFlagsUnbackedOutputs(t *testing.T) {
	withEvidence := resultMap(domain.WorkerData, true, 0.9, map[string]any{"enrolled_count": 10.0})
	withEvidence["evidence"] = []domain.EvidenceSource{
		domain.NewEvidence(domain.EvidenceStudyData, "study/metrics", 1.0),
	}
	shared := map[domain.WorkerKind]map[string]any{
		domain.WorkerData:     withEvidence,
		domain.WorkerRegistry: resultMap(domain.WorkerRegistry, true, 0.9, map[string]any{"site_count": 3.0}),
	}
	ec := synthContext(shared)
	ec.RequireProvenance = true

	s := NewSynthesizer()
	result, err := s.Synthesize(context.Background(), KindSummary, ec)
	require.NoError(t, err)

	require.NotNil(t, result.Uncertainty)
	assert.Contains(t, result.Uncertainty.DataGaps, "registry worker output lacks provenance")
	assert.NotContains(t, result.Uncertainty.DataGaps, "data worker output lacks provenance")
}

func TestSynthesizeWorkerAdapter(t *testing.T) {
	s := NewSynthesizer()
	worker := NewWorker(s)
	require.NoError(t, worker.Validate())
	assert.Equal(t, domain.WorkerSynthesis, worker.Kind())

	ec := synthContext(map[domain.WorkerKind]map[string]any{
		domain.WorkerData: resultMap(domain.WorkerData, true, 0.9, map[string]any{"enrolled_count": 10.0}),
	})
	ec.Parameters["synthesis_kind"] = "summary"

	result, err := worker.Execute(context.Background(), ec)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "summary", result.Data["synthesis_kind"])
}
