package workers

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/trialmind/trialmind/internal/domain"
	"github.com/trialmind/trialmind/internal/ports"
)

// ComplianceWorker checks recorded visits against the protocol's visit
// window and reports every deviation it finds, classified by severity.
// It prefers the protocol facts an earlier pipeline stage already
// loaded, falling back to its own source when run standalone.
type ComplianceWorker struct {
	Base
	source ports.ProtocolSource
	store  ports.StudyStore
}

var _ ports.Worker = (*ComplianceWorker)(nil)

// NewComplianceWorker constructs the compliance worker.
func NewComplianceWorker(source ports.ProtocolSource, store ports.StudyStore, logger *zap.Logger) *ComplianceWorker {
	return &ComplianceWorker{
		Base:   NewBase(domain.WorkerCompliance, nil, nil, logger),
		source: source,
		store:  store,
	}
}

func (w *ComplianceWorker) Validate() error {
	if err := w.Base.Validate(); err != nil {
		return err
	}
	if w.store == nil {
		return fmt.Errorf("compliance worker requires a study store")
	}
	if w.source == nil {
		return fmt.Errorf("compliance worker requires a protocol source")
	}
	return nil
}

func (w *ComplianceWorker) Execute(ctx context.Context, ec *domain.ExecutionContext) (*domain.WorkerResult, error) {
	windowDays, err := w.visitWindow(ctx, ec)
	if err != nil {
		return nil, err
	}

	visits, err := w.store.GetVisits(ctx, ec.StudyID, ec.PatientID)
	if err != nil {
		return nil, fmt.Errorf("loading visits for study %s: %w", ec.StudyID, err)
	}

	result := domain.NewWorkerResult(domain.WorkerCompliance)
	if len(visits) == 0 {
		result.MarkInsufficient("no recorded visits to check")
		return result, nil
	}

	var deviations []map[string]any
	for _, visit := range visits {
		if visit.DoseAdminError {
			deviations = append(deviations, map[string]any{
				"severity":    "critical",
				"description": fmt.Sprintf("dose administration error at visit %s", visit.VisitID),
				"date":        visit.ActualDate.Format("2006-01-02"),
			})
		}
		offsetDays := int(math.Abs(visit.ActualDate.Sub(visit.ScheduledDate).Hours() / 24))
		if offsetDays > windowDays {
			severity := "minor"
			if offsetDays > windowDays*2 {
				severity = "major"
			}
			deviations = append(deviations, map[string]any{
				"severity":    severity,
				"description": fmt.Sprintf("visit %s %d day(s) outside the %d-day window", visit.VisitID, offsetDays, windowDays),
				"date":        visit.ActualDate.Format("2006-01-02"),
			})
		}
	}

	rate := 1.0 - float64(len(deviations))/float64(len(visits))
	if rate < 0 {
		rate = 0
	}
	result.Data["deviations"] = deviations
	result.Data["deviation_count"] = float64(len(deviations))
	result.Data["compliance_rate"] = rate
	result.AddEvidence(domain.NewEvidence(domain.EvidenceComputedStatistic,
		fmt.Sprintf("study/%s/compliance", ec.StudyID), 0.95))

	if len(deviations) == 0 {
		result.Narrative = fmt.Sprintf("All %d visit(s) within the protocol window.", len(visits))
	} else {
		result.Narrative = fmt.Sprintf("%d deviation(s) across %d visit(s).", len(deviations), len(visits))
		result.Confidence = 0.9
	}
	return result, nil
}

// visitWindow reads the protocol visit window from shared data when a
// protocol stage already ran, otherwise from the protocol source.
func (w *ComplianceWorker) visitWindow(ctx context.Context, ec *domain.ExecutionContext) (int, error) {
	if upstream, ok := ec.SharedData[domain.WorkerProtocol]; ok {
		if data, ok := upstream["data"].(map[string]any); ok {
			switch v := data["visit_window_days"].(type) {
			case float64:
				return int(v), nil
			case int:
				return v, nil
			}
		}
	}

	protocol, err := w.source.GetProtocol(ctx, ec.StudyID)
	if err != nil {
		return 0, fmt.Errorf("loading protocol for study %s: %w", ec.StudyID, err)
	}
	w.logger.Debug("visit window loaded from protocol source",
		zap.Int("window_days", protocol.VisitWindowDays))
	return protocol.VisitWindowDays, nil
}
