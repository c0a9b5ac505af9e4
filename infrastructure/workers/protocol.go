package workers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/trialmind/trialmind/internal/domain"
	"github.com/trialmind/trialmind/internal/ports"
)

// ProtocolWorker reads the study protocol and reports the requirements
// relevant to the request: visit windows, required assessments, and
// which assessments the scoped patient is missing.
type ProtocolWorker struct {
	Base
	source ports.ProtocolSource
	store  ports.StudyStore
}

var _ ports.Worker = (*ProtocolWorker)(nil)

// NewProtocolWorker constructs the protocol worker. The study store is
// optional; without it missing-assessment checks are skipped.
func NewProtocolWorker(source ports.ProtocolSource, store ports.StudyStore, logger *zap.Logger) *ProtocolWorker {
	return &ProtocolWorker{
		Base:   NewBase(domain.WorkerProtocol, nil, nil, logger),
		source: source,
		store:  store,
	}
}

func (w *ProtocolWorker) Validate() error {
	if err := w.Base.Validate(); err != nil {
		return err
	}
	if w.source == nil {
		return fmt.Errorf("protocol worker requires a protocol source")
	}
	return nil
}

func (w *ProtocolWorker) Execute(ctx context.Context, ec *domain.ExecutionContext) (*domain.WorkerResult, error) {
	protocol, err := w.source.GetProtocol(ctx, ec.StudyID)
	if err != nil {
		return nil, fmt.Errorf("loading protocol for study %s: %w", ec.StudyID, err)
	}

	result := domain.NewWorkerResult(domain.WorkerProtocol)
	result.Data["protocol_version"] = protocol.Version
	result.Data["visit_window_days"] = protocol.VisitWindowDays
	result.Data["required_assessments"] = protocol.RequiredAssessments
	result.AddEvidence(domain.NewEvidence(domain.EvidenceProtocolText,
		fmt.Sprintf("protocol/%s/v%s", protocol.StudyID, protocol.Version), 1.0))

	if ec.PatientID != "" && w.store != nil {
		missing, err := w.missingAssessments(ctx, ec, protocol)
		if err != nil {
			w.logger.Warn("missing-assessment check skipped",
				zap.String("patient_id", ec.PatientID), zap.Error(err))
			result.Confidence = 0.7
		} else {
			result.Data["missing_assessments"] = missing
			if len(missing) > 0 {
				result.Confidence = 0.9
			}
		}
	}

	result.Narrative = fmt.Sprintf("Protocol v%s requires %d assessment(s) within a %d-day visit window.",
		protocol.Version, len(protocol.RequiredAssessments), protocol.VisitWindowDays)
	return result, nil
}

// missingAssessments diffs the protocol's required assessments against
// what the patient's recorded visits actually captured.
func (w *ProtocolWorker) missingAssessments(ctx context.Context, ec *domain.ExecutionContext, protocol *ports.Protocol) ([]map[string]any, error) {
	visits, err := w.store.GetVisits(ctx, ec.StudyID, ec.PatientID)
	if err != nil {
		return nil, err
	}

	performed := make(map[string]bool)
	for _, visit := range visits {
		if ec.VisitID != "" && visit.VisitID != ec.VisitID {
			continue
		}
		for _, assessment := range visit.Assessments {
			performed[assessment] = true
		}
	}

	var missing []map[string]any
	for _, required := range protocol.RequiredAssessments {
		if !performed[required] {
			missing = append(missing, map[string]any{"name": required})
		}
	}
	return missing, nil
}
