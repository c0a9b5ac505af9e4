package synthesis

import (
	"fmt"
	"strings"

	"github.com/trialmind/trialmind/internal/domain"
)

// fallbackConfidence applies when no successful worker contributed a
// confidence value at all.
const fallbackConfidence = 0.5

// lowConfidenceFloor is the aggregate below which "low overall
// confidence" is listed as a limitation.
const lowConfidenceFloor = 0.6

// collectEvidence unions the evidence lists of every present result,
// deduplicating on (kind, reference) with the first occurrence winning.
// Entries are walked in kind order so the winner is deterministic.
func collectEvidence(entries []entry) []domain.EvidenceSource {
	lists := make([][]domain.EvidenceSource, 0, len(entries))
	for _, e := range entries {
		if sources := e.evidence(); len(sources) > 0 {
			lists = append(lists, sources)
		}
	}
	return domain.DeduplicateEvidence(lists...)
}

// aggregateConfidence is the arithmetic mean of each successful worker's
// confidence, assuming defaultWorkerConfidence for a successful worker
// that reported none. It deliberately does not weight by evidence
// volume, source authority, or recency; callers rely on that
// conservatism staying put.
func aggregateConfidence(entries []entry) float64 {
	var sum float64
	var count int
	for _, e := range entries {
		if !e.success() {
			continue
		}
		score, reported := e.confidence()
		if !reported {
			score = defaultWorkerConfidence
		}
		sum += score
		count++
	}
	if count == 0 {
		return fallbackConfidence
	}
	return domain.ClampConfidence(sum / float64(count))
}

// buildUncertainty assembles the gaps and limitations every synthesized
// answer carries. Each string traces to a concrete missing or failed
// input; nothing here is guessed.
func buildUncertainty(kind Kind, entries []entry, aggregate float64, evidenceCount int, requireProvenance bool) (gaps, limitations []string) {
	present := make(map[domain.WorkerKind]bool, len(entries))
	failed := 0
	for _, e := range entries {
		present[e.kind] = true
		if !e.success() {
			failed++
			msg := e.errorMessage()
			if msg == "" {
				msg = "unknown error"
			}
			gaps = append(gaps, fmt.Sprintf("%s failed: %s", e.kind, msg))
			continue
		}
		if requireProvenance && len(e.evidence()) == 0 {
			gaps = append(gaps, fmt.Sprintf("%s worker output lacks provenance", e.kind))
		}
	}

	for _, workerKind := range kind.Required() {
		if !present[workerKind] {
			gaps = append(gaps, fmt.Sprintf("Missing %s worker output", workerKind))
		}
	}

	gaps = append(gaps, kindSpecificGaps(kind, entries)...)

	if aggregate < lowConfidenceFloor {
		limitations = append(limitations, "low overall confidence")
	}
	if evidenceCount < 2 {
		limitations = append(limitations, "single data source")
	}
	if failed > 0 {
		limitations = append(limitations, fmt.Sprintf("%d worker(s) failed", failed))
	}
	return gaps, limitations
}

// kindSpecificGaps runs the per-kind checks for fields the answer
// genuinely needs but the available data lacks.
func kindSpecificGaps(kind Kind, entries []entry) []string {
	var gaps []string
	for _, e := range entries {
		if !e.success() {
			continue
		}
		switch {
		case kind == KindSafetyBrief && e.kind == domain.WorkerSafety:
			if _, ok := e.numberField("patient_count"); !ok {
				gaps = append(gaps, "no patient count for safety analysis")
			}
		case kind == KindRiskBrief && e.kind == domain.WorkerData:
			if _, ok := e.numberField("hazard_ratio"); !ok {
				if len(e.listField("risk_factors")) == 0 {
					gaps = append(gaps, "no hazard ratio or risk factors in study data")
				}
			}
		case kind == KindDashboard && e.kind == domain.WorkerData:
			if _, ok := e.numberField("enrolled_count"); !ok {
				gaps = append(gaps, "no enrollment count for dashboard rollup")
			}
		}
	}
	return gaps
}

// deriveReasoning builds the short derived sentence naming which worker
// kinds succeeded and the final confidence. It is reconstructable from
// its inputs and never contains generated text.
func deriveReasoning(entries []entry, aggregate float64) string {
	succeeded := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.success() {
			succeeded = append(succeeded, string(e.kind))
		}
	}
	if len(succeeded) == 0 {
		return fmt.Sprintf("No workers succeeded; confidence %.2f.", aggregate)
	}
	return fmt.Sprintf("Synthesized from %d worker(s) (%s) with aggregate confidence %.2f.",
		len(succeeded), strings.Join(succeeded, ", "), aggregate)
}
