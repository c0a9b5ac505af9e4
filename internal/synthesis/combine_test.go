package synthesis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trialmind/trialmind/internal/domain"
)

func TestAggregateConfidence(t *testing.T) {
	tests := []struct {
		name    string
		entries []entry
		want    float64
	}{
		{
			name: "mean of successful workers",
			entries: []entry{
				{kind: domain.WorkerData, raw: resultMap(domain.WorkerData, true, 0.9, nil)},
				{kind: domain.WorkerSafety, raw: resultMap(domain.WorkerSafety, true, 0.7, nil)},
			},
			want: 0.8,
		},
		{
			name: "failures excluded",
			entries: []entry{
				{kind: domain.WorkerData, raw: resultMap(domain.WorkerData, true, 0.6, nil)},
				{kind: domain.WorkerSafety, raw: resultMap(domain.WorkerSafety, false, 0.1, nil)},
			},
			want: 0.6,
		},
		{
			name: "unspecified confidence defaults to 0.9",
			entries: []entry{
				{kind: domain.WorkerData, raw: map[string]any{"kind": "data", "success": true}},
			},
			want: 0.9,
		},
		{
			name:    "no successes falls back to 0.5",
			entries: []entry{{kind: domain.WorkerData, raw: resultMap(domain.WorkerData, false, 0.9, nil)}},
			want:    0.5,
		},
		{
			name:    "no entries falls back to 0.5",
			entries: nil,
			want:    0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := aggregateConfidence(tt.entries)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestApplyGate(t *testing.T) {
	usable := resultMap(domain.WorkerCompliance, true, 0.9, map[string]any{"compliance_rate": 0.98})

	tests := []struct {
		name     string
		kind     Kind
		shared   map[domain.WorkerKind]map[string]any
		wantPass bool
		wantGaps []string
	}{
		{
			name:     "empty shared data",
			kind:     KindSummary,
			shared:   nil,
			wantGaps: []string{"all worker outputs missing"},
		},
		{
			name: "required kind absent",
			kind: KindSafetyBrief,
			shared: map[domain.WorkerKind]map[string]any{
				domain.WorkerCompliance: usable,
			},
			wantGaps: []string{"Missing safety worker output"},
		},
		{
			name: "required kind present",
			kind: KindDeviationBrief,
			shared: map[domain.WorkerKind]map[string]any{
				domain.WorkerCompliance: usable,
			},
			wantPass: true,
		},
		{
			name: "only bookkeeping content",
			kind: KindSummary,
			shared: map[domain.WorkerKind]map[string]any{
				domain.WorkerData: resultMap(domain.WorkerData, true, 0.9,
					map[string]any{"elapsed_ms": 12.0}),
			},
			wantGaps: []string{"all available outputs errored or were themselves insufficient"},
		},
		{
			name: "kind with no requirements accepts anything usable",
			kind: KindDashboard,
			shared: map[domain.WorkerKind]map[string]any{
				domain.WorkerCompliance: usable,
			},
			wantPass: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := applyGate(tt.kind, tt.shared)
			assert.Equal(t, tt.wantPass, outcome.passed)
			if !tt.wantPass {
				assert.Equal(t, tt.wantGaps, outcome.gaps)
			}
		})
	}
}

func TestCollectEvidenceFirstWins(t *testing.T) {
	a := resultMap(domain.WorkerData, true, 0.9, map[string]any{"x": 1.0})
	a["evidence"] = []domain.EvidenceSource{
		domain.NewEvidence(domain.EvidenceStudyData, "ref-1", 0.9),
		domain.NewEvidence(domain.EvidenceStudyData, "ref-2", 0.8),
	}
	b := resultMap(domain.WorkerSafety, true, 0.9, map[string]any{"y": 2.0})
	b["evidence"] = []domain.EvidenceSource{
		domain.NewEvidence(domain.EvidenceStudyData, "ref-1", 0.2),
	}

	entries := sortedEntries(map[domain.WorkerKind]map[string]any{
		domain.WorkerData:   a,
		domain.WorkerSafety: b,
	})
	sources := collectEvidence(entries)

	assert.Len(t, sources, 2)
	for _, source := range sources {
		if source.Reference == "ref-1" {
			assert.Equal(t, 0.9, source.Confidence)
		}
	}
}

func TestEvidenceFromJSONRoundTrip(t *testing.T) {
	raw := resultMap(domain.WorkerLiterature, true, 0.9, map[string]any{"citations": 3.0})
	raw["evidence"] = []any{
		map[string]any{"kind": "literature", "reference": "PMID:12345", "confidence": 0.85},
	}
	e := entry{kind: domain.WorkerLiterature, raw: raw}

	sources := e.evidence()
	assert.Len(t, sources, 1)
	assert.Equal(t, domain.EvidenceLiterature, sources[0].Kind)
	assert.Equal(t, "PMID:12345", sources[0].Reference)
}
