package domain

import (
	"fmt"
	"time"
)

// DisplayPreference is the rendering shape chosen for a result.
type DisplayPreference string

const (
	// DisplayNarrative renders the result as prose.
	DisplayNarrative DisplayPreference = "narrative"

	// DisplayTable renders the result as a tabular breakdown.
	DisplayTable DisplayPreference = "table"

	// DisplayChart renders the result as a chart.
	DisplayChart DisplayPreference = "chart"

	// DisplayMetricGrid renders the result as a grid of metric cards.
	DisplayMetricGrid DisplayPreference = "metric_grid"

	// DisplayMixed combines a narrative with at least one structured
	// payload. It is only valid when such a payload exists; otherwise
	// it degrades to DisplayNarrative.
	DisplayMixed DisplayPreference = "mixed"
)

// ChartPayload describes a renderable chart.
type ChartPayload struct {
	// Type names the chart shape, e.g. "kaplan_meier", "line", "bar".
	Type   string        `json:"type"`
	Title  string        `json:"title,omitempty"`
	XLabel string        `json:"x_label,omitempty"`
	YLabel string        `json:"y_label,omitempty"`
	Series []ChartSeries `json:"series"`
}

// ChartSeries is one named series of points within a chart.
type ChartSeries struct {
	Name   string       `json:"name"`
	Points []ChartPoint `json:"points"`
}

// ChartPoint is a single (x, y) observation.
type ChartPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TablePayload describes a renderable table.
type TablePayload struct {
	Title   string     `json:"title,omitempty"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// MetricCard is a single headline figure within a metric grid.
type MetricCard struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
	// Status optionally colors the card: "green", "yellow", "red".
	Status string `json:"status,omitempty"`
}

// UncertaintyInfo states what the engine does not know and why. Every
// gap and limitation string is traceable to a concrete missing or failed
// input; none are guessed.
type UncertaintyInfo struct {
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
	ConfidenceScore float64         `json:"confidence_score"`
	DataGaps        []string        `json:"data_gaps,omitempty"`
	Limitations     []string        `json:"limitations,omitempty"`
	Reasoning       string          `json:"reasoning,omitempty"`
}

// NewUncertainty builds an UncertaintyInfo with the level derived from
// the score.
func NewUncertainty(score float64, gaps, limitations []string, reasoning string) *UncertaintyInfo {
	score = ClampConfidence(score)
	return &UncertaintyInfo{
		ConfidenceLevel: LevelForScore(score),
		ConfidenceScore: score,
		DataGaps:        gaps,
		Limitations:     limitations,
		Reasoning:       reasoning,
	}
}

// WorkerResult is the uniform output of every worker execution. A worker
// creates it empty at the start of Execute, populates it during analysis,
// and the execution wrapper finalizes timing and call counts. Once
// returned it is treated as immutable.
type WorkerResult struct {
	Kind    WorkerKind `json:"kind"`
	Success bool       `json:"success"`

	// Data is the open result payload. Each synthesis kind validates
	// only the keys it actually reads.
	Data map[string]any `json:"data,omitempty"`

	// Evidence lists the provenance of every surfaced fact.
	Evidence []EvidenceSource `json:"evidence,omitempty"`

	// Narrative is an optional prose rendering of the result.
	Narrative string `json:"narrative,omitempty"`

	// Confidence expresses the worker's own certainty (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Error carries the failure message when Success is false.
	Error string `json:"error,omitempty"`

	// ElapsedMs is the wall-clock execution time stamped by the wrapper.
	ElapsedMs int64 `json:"elapsed_ms"`

	// GenerationCalls counts generation-backend calls made during the
	// run, stamped by the wrapper.
	GenerationCalls int `json:"generation_calls"`

	Uncertainty *UncertaintyInfo `json:"uncertainty,omitempty"`
	Reasoning   string           `json:"reasoning,omitempty"`

	Display DisplayPreference `json:"display_preference,omitempty"`
	Chart   *ChartPayload     `json:"chart_payload,omitempty"`
	Table   *TablePayload     `json:"table_payload,omitempty"`
	Metrics []MetricCard      `json:"metric_cards,omitempty"`
}

// NewWorkerResult creates an empty successful result for the given kind.
// Confidence defaults to 1.0 per the result contract; workers lower it
// as their analysis warrants.
func NewWorkerResult(kind WorkerKind) *WorkerResult {
	return &WorkerResult{
		Kind:       kind,
		Success:    true,
		Data:       make(map[string]any),
		Confidence: 1.0,
		Display:    DisplayNarrative,
	}
}

// FailedResult creates a failed result carrying the given error message.
func FailedResult(kind WorkerKind, err error) *WorkerResult {
	return &WorkerResult{
		Kind:    kind,
		Success: false,
		Data:    map[string]any{"error": true},
		Error:   err.Error(),
	}
}

// MarkInsufficient converts the result into an explicit
// insufficient-evidence statement: still a success (the state was
// correctly identified), confidence zero, and the given non-empty gaps.
func (r *WorkerResult) MarkInsufficient(gaps ...string) {
	if len(gaps) == 0 {
		gaps = []string{"insufficient data"}
	}
	r.Success = true
	r.Confidence = 0
	if r.Data == nil {
		r.Data = make(map[string]any)
	}
	r.Data["insufficient_data"] = true
	r.Uncertainty = NewUncertainty(0, gaps, nil, r.Reasoning)
}

// Insufficient reports whether the result is an insufficient-evidence
// statement.
func (r *WorkerResult) Insufficient() bool {
	flagged, _ := r.Data["insufficient_data"].(bool)
	return flagged
}

// AddEvidence appends evidence sources to the result.
func (r *WorkerResult) AddEvidence(sources ...EvidenceSource) {
	r.Evidence = append(r.Evidence, sources...)
}

// Finalize stamps execution timing and the generation call count, clamps
// confidence into range, and degrades an unbacked mixed display to
// narrative. The wrapper calls it exactly once per run.
func (r *WorkerResult) Finalize(start time.Time, generationCalls int) {
	r.ElapsedMs = time.Since(start).Milliseconds()
	r.GenerationCalls = generationCalls
	r.Confidence = ClampConfidence(r.Confidence)
	if r.Insufficient() {
		r.Confidence = 0
	}
	if r.Display == DisplayMixed && r.Chart == nil && r.Table == nil && len(r.Metrics) == 0 {
		r.Display = DisplayNarrative
	}
}

// Validate checks the result's structural invariants.
func (r *WorkerResult) Validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, r.Kind)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %.3f outside [0,1]", r.Confidence)
	}
	if r.Insufficient() {
		if r.Confidence != 0 {
			return fmt.Errorf("insufficient result must have confidence 0, got %.3f", r.Confidence)
		}
		if r.Uncertainty == nil || len(r.Uncertainty.DataGaps) == 0 {
			return fmt.Errorf("insufficient result must enumerate data gaps")
		}
	}
	return nil
}

// AsMap flattens the result into the shared-data form consumed by
// downstream stages and by synthesis.
func (r *WorkerResult) AsMap() map[string]any {
	m := map[string]any{
		"kind":             string(r.Kind),
		"success":          r.Success,
		"data":             deepCopyMap(r.Data),
		"confidence":       r.Confidence,
		"elapsed_ms":       r.ElapsedMs,
		"generation_calls": r.GenerationCalls,
	}
	if len(r.Evidence) > 0 {
		m["evidence"] = deepCopyValue(r.Evidence)
	}
	if r.Narrative != "" {
		m["narrative"] = r.Narrative
	}
	if r.Error != "" {
		m["error"] = r.Error
	}
	if r.Reasoning != "" {
		m["reasoning"] = r.Reasoning
	}
	return m
}
