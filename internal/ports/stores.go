package ports

import (
	"context"
	"time"
)

// Protocol captures the study protocol facts the engine reasons over.
type Protocol struct {
	StudyID             string   `json:"study_id"`
	Version             string   `json:"version"`
	VisitWindowDays     int      `json:"visit_window_days"`
	RequiredAssessments []string `json:"required_assessments"`
	InclusionCriteria   []string `json:"inclusion_criteria,omitempty"`
}

// VisitRecord is one recorded patient visit.
type VisitRecord struct {
	PatientID      string    `json:"patient_id"`
	VisitID        string    `json:"visit_id"`
	ScheduledDate  time.Time `json:"scheduled_date"`
	ActualDate     time.Time `json:"actual_date"`
	Assessments    []string  `json:"assessments"`
	DoseAdminError bool      `json:"dose_admin_error,omitempty"`
}

// AdverseEvent is one recorded adverse event.
type AdverseEvent struct {
	PatientID   string    `json:"patient_id"`
	Term        string    `json:"term"`
	Grade       int       `json:"grade"`
	Serious     bool      `json:"serious"`
	OnsetDate   time.Time `json:"onset_date"`
	Description string    `json:"description,omitempty"`
}

// SurvivalPoint is one observation on a survival curve.
type SurvivalPoint struct {
	Time        float64 `json:"time"`
	Probability float64 `json:"probability"`
}

// StudyMetrics is the aggregate study data snapshot workers read.
type StudyMetrics struct {
	EnrolledCount int             `json:"enrolled_count"`
	TargetCount   int             `json:"target_count"`
	PatientCount  int             `json:"patient_count"`
	HazardRatio   float64         `json:"hazard_ratio,omitempty"`
	SurvivalCurve []SurvivalPoint `json:"survival_curve,omitempty"`
}

// Citation is one literature reference returned by a search.
type Citation struct {
	Reference string  `json:"reference"`
	Title     string  `json:"title"`
	Relevance float64 `json:"relevance"`
}

// RegistryRecord is a trial registry entry for a study.
type RegistryRecord struct {
	RegistryID string `json:"registry_id"`
	Status     string `json:"status"`
	SiteCount  int    `json:"site_count"`
	Phase      string `json:"phase,omitempty"`
}

// ProtocolSource provides protocol definitions.
type ProtocolSource interface {
	GetProtocol(ctx context.Context, studyID string) (*Protocol, error)
}

// StudyStore provides collected study data.
type StudyStore interface {
	GetMetrics(ctx context.Context, studyID string) (*StudyMetrics, error)
	GetVisits(ctx context.Context, studyID, patientID string) ([]VisitRecord, error)
	GetAdverseEvents(ctx context.Context, studyID string) ([]AdverseEvent, error)
}

// LiteratureSearcher searches one literature corpus.
type LiteratureSearcher interface {
	Name() string
	Search(ctx context.Context, query string) ([]Citation, error)
}

// RegistryClient looks a study up in a trial registry.
type RegistryClient interface {
	Lookup(ctx context.Context, studyID string) (*RegistryRecord, error)
}
