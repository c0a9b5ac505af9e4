package domain

// EvidenceSource is an immutable record of one fact's origin. Many sources
// may share a (Kind, Reference) pair; synthesis deduplicates on that pair,
// first occurrence wins.
type EvidenceSource struct {
	// Kind classifies where the fact came from.
	Kind EvidenceKind `json:"kind"`

	// Reference identifies the concrete origin, e.g. a protocol section,
	// a dataset table, a PubMed ID, or a registry entry.
	Reference string `json:"reference"`

	// Confidence expresses how reliable this source is (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Details carries optional source-specific context.
	Details map[string]any `json:"details,omitempty"`
}

// NewEvidence creates an evidence source with the confidence clamped
// into [0,1].
func NewEvidence(kind EvidenceKind, reference string, confidence float64) EvidenceSource {
	return EvidenceSource{
		Kind:       kind,
		Reference:  reference,
		Confidence: ClampConfidence(confidence),
	}
}

// WithDetails returns a copy of the source carrying the given details map.
// The original source is left unchanged.
func (e EvidenceSource) WithDetails(details map[string]any) EvidenceSource {
	copied := make(map[string]any, len(details))
	for k, v := range details {
		copied[k] = v
	}
	e.Details = copied
	return e
}

// DedupKey returns the (kind, reference) identity used for
// synthesis-level deduplication.
func (e EvidenceSource) DedupKey() string {
	return string(e.Kind) + "|" + e.Reference
}

// Clone returns a deep copy of the evidence source so callers can hold
// it without sharing the details map.
func (e EvidenceSource) Clone() EvidenceSource {
	if e.Details == nil {
		return e
	}
	return e.WithDetails(e.Details)
}

// DeduplicateEvidence returns the union of the given evidence lists with
// duplicates on (kind, reference) removed. The first occurrence of a pair
// wins; later entries with the same pair are dropped regardless of their
// confidence.
func DeduplicateEvidence(lists ...[]EvidenceSource) []EvidenceSource {
	seen := make(map[string]struct{})
	out := make([]EvidenceSource, 0)
	for _, list := range lists {
		for _, ev := range list {
			key := ev.DedupKey()
			if _, exists := seen[key]; exists {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, ev.Clone())
		}
	}
	return out
}
