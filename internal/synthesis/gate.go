package synthesis

import (
	"fmt"

	"github.com/trialmind/trialmind/internal/domain"
)

// gateOutcome is the sufficiency gate's verdict for one synthesis
// request.
type gateOutcome struct {
	passed bool
	gaps   []string
}

// applyGate decides whether the available shared data can support an
// answer of the requested kind at all. It never lets synthesis proceed
// to fabricate an answer over missing or unusable inputs; a failed gate
// becomes an explicit insufficient-evidence result upstream.
func applyGate(kind Kind, shared map[domain.WorkerKind]map[string]any) gateOutcome {
	if len(shared) == 0 {
		return gateOutcome{gaps: []string{"all worker outputs missing"}}
	}

	required := kind.Required()
	if len(required) > 0 {
		missing := make([]string, 0, len(required))
		for _, workerKind := range required {
			if _, present := shared[workerKind]; !present {
				missing = append(missing, fmt.Sprintf("Missing %s worker output", workerKind))
			}
		}
		if len(missing) == len(required) {
			return gateOutcome{gaps: missing}
		}
	}

	for _, e := range sortedEntries(shared) {
		if e.usable() {
			return gateOutcome{passed: true}
		}
	}

	return gateOutcome{gaps: []string{"all available outputs errored or were themselves insufficient"}}
}
