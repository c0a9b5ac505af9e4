package domain

import (
	"time"
)

// DefaultDeadline is the per-worker execution budget applied when an
// ExecutionContext does not set one.
const DefaultDeadline = 120 * time.Second

// ExecutionContext carries everything a worker may read during one
// execution. Workers treat the context as read-only; anything they wish
// to surface goes only into their returned WorkerResult. SharedData is
// the single channel through which pipeline stages exchange information,
// and it is copied (never referenced) between stages so a later stage can
// never retroactively mutate what an earlier stage already read.
type ExecutionContext struct {
	// RequestID correlates all worker runs belonging to one request.
	RequestID string `json:"request_id"`

	// PatientID scopes the analysis to one patient when set.
	PatientID string `json:"patient_id,omitempty"`

	// VisitID scopes the analysis to one visit when set.
	VisitID string `json:"visit_id,omitempty"`

	// StudyID identifies the clinical study under analysis.
	StudyID string `json:"study_id"`

	// Query is the requester's original free-text question, if any.
	// It drives display-intent classification during synthesis.
	Query string `json:"query,omitempty"`

	// Parameters is the open per-request parameter map. Each worker
	// validates only the keys it actually reads.
	Parameters map[string]any `json:"parameters,omitempty"`

	// SharedData holds prior workers' results keyed by kind, each in
	// result-as-map form. Only the dispatcher writes it, and only at
	// pipeline stage boundaries.
	SharedData map[WorkerKind]map[string]any `json:"shared_data,omitempty"`

	// MaxWorkerCalls caps how many generation-backend calls a single
	// worker run may make. Zero means no cap.
	MaxWorkerCalls int `json:"max_worker_calls,omitempty"`

	// Deadline is the wall-clock budget for a single worker execution.
	// Zero means DefaultDeadline.
	Deadline time.Duration `json:"deadline,omitempty"`

	// RequireProvenance demands that every surfaced fact carries at
	// least one evidence source.
	RequireProvenance bool `json:"require_provenance,omitempty"`
}

// NewExecutionContext creates a context for the given study with empty
// parameter and shared-data maps.
func NewExecutionContext(requestID, studyID string) *ExecutionContext {
	return &ExecutionContext{
		RequestID:  requestID,
		StudyID:    studyID,
		Parameters: make(map[string]any),
		SharedData: make(map[WorkerKind]map[string]any),
	}
}

// EffectiveDeadline returns the configured deadline or the default.
func (c *ExecutionContext) EffectiveDeadline() time.Duration {
	if c.Deadline > 0 {
		return c.Deadline
	}
	return DefaultDeadline
}

// WithSharedData returns a successor context whose SharedData is a deep
// copy of the receiver's with the given results merged in. The receiver
// is left untouched, so every stage of a pipeline observes a frozen
// snapshot of all prior results.
func (c *ExecutionContext) WithSharedData(results map[WorkerKind]map[string]any) *ExecutionContext {
	next := *c
	next.SharedData = make(map[WorkerKind]map[string]any, len(c.SharedData)+len(results))
	for kind, data := range c.SharedData {
		next.SharedData[kind] = deepCopyMap(data)
	}
	for kind, data := range results {
		next.SharedData[kind] = deepCopyMap(data)
	}
	return &next
}

// deepCopyValue copies the JSON-ish values stored in shared data so one
// stage can never alias another stage's maps or slices. Values outside
// the handled set are assumed immutable and returned as-is.
func deepCopyValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return deepCopyMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = deepCopyValue(item)
		}
		return out
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []map[string]any:
		out := make([]map[string]any, len(v))
		for i, item := range v {
			out[i] = deepCopyMap(item)
		}
		return out
	case []EvidenceSource:
		out := make([]EvidenceSource, len(v))
		for i, ev := range v {
			out[i] = ev.Clone()
		}
		return out
	default:
		return value
	}
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}
