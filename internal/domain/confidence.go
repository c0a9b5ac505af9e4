package domain

// ConfidenceLevel is the qualitative band a numeric confidence falls into.
// It is always derived from the score, never stored independently.
type ConfidenceLevel string

const (
	// ConfidenceHigh covers scores of 0.8 and above.
	ConfidenceHigh ConfidenceLevel = "high"

	// ConfidenceModerate covers scores in [0.6, 0.8).
	ConfidenceModerate ConfidenceLevel = "moderate"

	// ConfidenceLow covers scores in [0.4, 0.6).
	ConfidenceLow ConfidenceLevel = "low"

	// ConfidenceInsufficient covers scores below 0.4.
	ConfidenceInsufficient ConfidenceLevel = "insufficient"
)

// LevelForScore derives the qualitative confidence band for a score.
func LevelForScore(score float64) ConfidenceLevel {
	switch {
	case score >= 0.8:
		return ConfidenceHigh
	case score >= 0.6:
		return ConfidenceModerate
	case score >= 0.4:
		return ConfidenceLow
	default:
		return ConfidenceInsufficient
	}
}

// ClampConfidence bounds a confidence value into [0,1].
func ClampConfidence(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// AnswerCategory classifies what kind of statement an answer makes.
// Each category carries its own minimum confidence threshold; synthesis
// compares against the category threshold, never a single global cutoff.
type AnswerCategory string

const (
	// CategoryRecommendation is a clinical recommendation.
	CategoryRecommendation AnswerCategory = "recommendation"

	// CategorySafetySignal is a statement about a potential safety issue.
	CategorySafetySignal AnswerCategory = "safety_signal"

	// CategoryNarrative is a descriptive narrative answer.
	CategoryNarrative AnswerCategory = "narrative"

	// CategorySummary is a plain factual summary.
	CategorySummary AnswerCategory = "summary"
)

// confidenceThresholds is the fixed per-category lookup. Categories with
// higher clinical stakes require higher confidence before an answer is
// presented without a warning.
var confidenceThresholds = map[AnswerCategory]float64{
	CategoryRecommendation: 0.7,
	CategorySafetySignal:   0.6,
	CategoryNarrative:      0.5,
	CategorySummary:        0.4,
}

// ThresholdFor returns the minimum confidence required for the category.
// Unknown categories fall back to the summary threshold, the most
// permissive band.
func ThresholdFor(category AnswerCategory) float64 {
	if t, ok := confidenceThresholds[category]; ok {
		return t
	}
	return confidenceThresholds[CategorySummary]
}
