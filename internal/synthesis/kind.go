package synthesis

import (
	"github.com/trialmind/trialmind/internal/domain"
)

// Kind identifies the synthesis requested by a caller. Each kind
// declares which worker outputs it cannot answer without and which
// answer category its confidence threshold is drawn from.
type Kind string

const (
	// KindSummary is a plain factual summary of whatever is available.
	KindSummary Kind = "summary"

	// KindReadiness answers whether a patient or visit is ready to
	// proceed, judged across protocol and deviation findings.
	KindReadiness Kind = "readiness"

	// KindSafetyBrief summarizes the safety picture.
	KindSafetyBrief Kind = "safety-brief"

	// KindDeviationBrief summarizes protocol deviations.
	KindDeviationBrief Kind = "deviation-brief"

	// KindRiskBrief combines hazard-derived factors into a bounded
	// risk score.
	KindRiskBrief Kind = "risk-brief"

	// KindDashboard rolls enrollment, safety, and compliance up into a
	// single GREEN/YELLOW/RED status.
	KindDashboard Kind = "dashboard"
)

// requiredWorkers lists the worker kinds each synthesis kind cannot
// answer without. An empty list means the kind works with whatever is
// present.
var requiredWorkers = map[Kind][]domain.WorkerKind{
	KindSummary:        {},
	KindReadiness:      {domain.WorkerProtocol},
	KindSafetyBrief:    {domain.WorkerSafety},
	KindDeviationBrief: {domain.WorkerCompliance},
	KindRiskBrief:      {domain.WorkerData},
	KindDashboard:      {},
}

// answerCategories maps each synthesis kind to the answer category whose
// confidence threshold applies to it.
var answerCategories = map[Kind]domain.AnswerCategory{
	KindSummary:        domain.CategorySummary,
	KindReadiness:      domain.CategoryRecommendation,
	KindSafetyBrief:    domain.CategorySafetySignal,
	KindDeviationBrief: domain.CategoryNarrative,
	KindRiskBrief:      domain.CategoryRecommendation,
	KindDashboard:      domain.CategorySummary,
}

// defaultDisplays is the fallback rendering per kind when the query text
// matches no display trigger.
var defaultDisplays = map[Kind]domain.DisplayPreference{
	KindSummary:        domain.DisplayNarrative,
	KindReadiness:      domain.DisplayNarrative,
	KindSafetyBrief:    domain.DisplayNarrative,
	KindDeviationBrief: domain.DisplayTable,
	KindRiskBrief:      domain.DisplayMetricGrid,
	KindDashboard:      domain.DisplayMetricGrid,
}

// Valid reports whether k is a known synthesis kind.
func (k Kind) Valid() bool {
	_, ok := requiredWorkers[k]
	return ok
}

func (k Kind) String() string { return string(k) }

// Required returns the worker kinds this synthesis kind depends on.
func (k Kind) Required() []domain.WorkerKind {
	return requiredWorkers[k]
}

// Category returns the answer category whose threshold governs this
// synthesis kind.
func (k Kind) Category() domain.AnswerCategory {
	if category, ok := answerCategories[k]; ok {
		return category
	}
	return domain.CategorySummary
}
