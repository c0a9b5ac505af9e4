package synthesis

import (
	"sort"

	"github.com/trialmind/trialmind/internal/domain"
)

// defaultWorkerConfidence is assumed for a successful worker that did
// not report a confidence of its own.
const defaultWorkerConfidence = 0.9

// bookkeepingKeys are data fields that carry execution metadata rather
// than analytical content. An entry whose data holds nothing beyond
// these is not usable evidence.
var bookkeepingKeys = map[string]bool{
	"error":             true,
	"insufficient_data": true,
	"elapsed_ms":        true,
	"generation_calls":  true,
	"worker_kind":       true,
	"request_id":        true,
}

// entry is a read-only view over one shared_data slot, which is a
// worker result flattened to a map. Accessors tolerate both native
// result maps and maps that round-tripped through JSON.
type entry struct {
	kind domain.WorkerKind
	raw  map[string]any
}

// sortedEntries returns the shared_data entries in kind order so every
// synthesis pass walks them deterministically.
func sortedEntries(shared map[domain.WorkerKind]map[string]any) []entry {
	entries := make([]entry, 0, len(shared))
	for kind, raw := range shared {
		entries = append(entries, entry{kind: kind, raw: raw})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].kind < entries[j].kind })
	return entries
}

func (e entry) success() bool {
	ok, _ := e.raw["success"].(bool)
	return ok
}

// confidence returns the worker's reported confidence and whether one
// was actually present.
func (e entry) confidence() (float64, bool) {
	switch v := e.raw["confidence"].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func (e entry) data() map[string]any {
	data, _ := e.raw["data"].(map[string]any)
	return data
}

func (e entry) errorMessage() string {
	msg, _ := e.raw["error"].(string)
	return msg
}

func (e entry) narrative() string {
	text, _ := e.raw["narrative"].(string)
	return text
}

// evidence extracts the entry's evidence list. Native results carry
// []domain.EvidenceSource; JSON round-trips produce []any of maps.
func (e entry) evidence() []domain.EvidenceSource {
	switch v := e.raw["evidence"].(type) {
	case []domain.EvidenceSource:
		return v
	case []any:
		sources := make([]domain.EvidenceSource, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			kind, _ := m["kind"].(string)
			reference, _ := m["reference"].(string)
			confidence, _ := m["confidence"].(float64)
			source := domain.NewEvidence(domain.EvidenceKind(kind), reference, confidence)
			if details, ok := m["details"].(map[string]any); ok {
				source = source.WithDetails(details)
			}
			sources = append(sources, source)
		}
		return sources
	}
	return nil
}

// usable reports whether the entry carries genuinely analyzable
// content: a successful result whose data is not an error or
// insufficient-evidence marker and holds at least one field beyond
// bookkeeping keys.
func (e entry) usable() bool {
	if !e.success() {
		return false
	}
	data := e.data()
	if flagged, _ := data["error"].(bool); flagged {
		return false
	}
	if flagged, _ := data["insufficient_data"].(bool); flagged {
		return false
	}
	for key := range data {
		if !bookkeepingKeys[key] {
			return true
		}
	}
	// A narrative-only result still counts as content.
	return e.narrative() != ""
}

// field reads a named value from the entry's data map.
func (e entry) field(key string) (any, bool) {
	value, ok := e.data()[key]
	return value, ok
}

// numberField reads a numeric data field, tolerating JSON float64 and
// native int values.
func (e entry) numberField(key string) (float64, bool) {
	switch v := e.data()[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// boolField reads a boolean data field.
func (e entry) boolField(key string) bool {
	flagged, _ := e.data()[key].(bool)
	return flagged
}

// stringField reads a string data field.
func (e entry) stringField(key string) (string, bool) {
	v, ok := e.data()[key].(string)
	return v, ok
}

// listField reads a list data field, normalizing []map[string]any and
// []any-of-maps to a single shape.
func (e entry) listField(key string) []map[string]any {
	switch v := e.data()[key].(type) {
	case []map[string]any:
		return v
	case []any:
		items := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				items = append(items, m)
			}
		}
		return items
	}
	return nil
}
