// Package domain contains pure, dependency-free domain models and types
// for the agent execution and evidence-synthesis engine.
package domain

// WorkerKind identifies a worker's analytical specialty. It is the
// dispatcher's registry key; exactly one worker instance exists per kind.
type WorkerKind string

// The closed set of worker specialties.
const (
	// WorkerProtocol analyzes protocol text: visit windows, required
	// assessments, eligibility criteria.
	WorkerProtocol WorkerKind = "protocol"

	// WorkerData analyzes collected study data: enrollment, outcomes,
	// survival estimates.
	WorkerData WorkerKind = "data"

	// WorkerLiterature performs literature lookups for supporting
	// publications.
	WorkerLiterature WorkerKind = "literature"

	// WorkerRegistry queries trial registries for related studies.
	WorkerRegistry WorkerKind = "registry"

	// WorkerCompliance detects protocol deviations and missing
	// assessments.
	WorkerCompliance WorkerKind = "compliance"

	// WorkerSafety tallies adverse events and flags safety signals.
	WorkerSafety WorkerKind = "safety"

	// WorkerSynthesis combines the outputs of other workers into a
	// single evidence-weighted answer.
	WorkerSynthesis WorkerKind = "synthesis"
)

// Valid reports whether the kind belongs to the closed enumeration.
func (k WorkerKind) Valid() bool {
	switch k {
	case WorkerProtocol, WorkerData, WorkerLiterature, WorkerRegistry,
		WorkerCompliance, WorkerSafety, WorkerSynthesis:
		return true
	}
	return false
}

// String returns the kind's string form for logging and map keys.
func (k WorkerKind) String() string { return string(k) }

// EvidenceKind classifies the origin of a single evidence item.
type EvidenceKind string

// The closed set of evidence origins.
const (
	// EvidenceProtocolText marks a fact sourced from protocol documents.
	EvidenceProtocolText EvidenceKind = "protocol_text"

	// EvidenceStudyData marks a fact sourced from collected study data.
	EvidenceStudyData EvidenceKind = "study_data"

	// EvidenceLiterature marks a fact sourced from published literature.
	EvidenceLiterature EvidenceKind = "literature"

	// EvidenceRegistry marks a fact sourced from a trial registry.
	EvidenceRegistry EvidenceKind = "registry"

	// EvidenceModelInference marks a fact produced by the generation
	// backend rather than observed in source data.
	EvidenceModelInference EvidenceKind = "model_inference"

	// EvidenceComputedStatistic marks a fact derived by a deterministic
	// computation over source data.
	EvidenceComputedStatistic EvidenceKind = "computed_statistic"
)

// Valid reports whether the kind belongs to the closed enumeration.
func (k EvidenceKind) Valid() bool {
	switch k {
	case EvidenceProtocolText, EvidenceStudyData, EvidenceLiterature,
		EvidenceRegistry, EvidenceModelInference, EvidenceComputedStatistic:
		return true
	}
	return false
}
