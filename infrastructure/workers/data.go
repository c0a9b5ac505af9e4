package workers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/trialmind/trialmind/internal/domain"
	"github.com/trialmind/trialmind/internal/ports"
)

// DataWorker surfaces the collected study data: enrollment, patient
// counts, and survival statistics when the study records them.
type DataWorker struct {
	Base
	store ports.StudyStore
}

var _ ports.Worker = (*DataWorker)(nil)

// NewDataWorker constructs the study-data worker.
func NewDataWorker(store ports.StudyStore, logger *zap.Logger) *DataWorker {
	return &DataWorker{
		Base:  NewBase(domain.WorkerData, nil, nil, logger),
		store: store,
	}
}

func (w *DataWorker) Validate() error {
	if err := w.Base.Validate(); err != nil {
		return err
	}
	if w.store == nil {
		return fmt.Errorf("data worker requires a study store")
	}
	return nil
}

func (w *DataWorker) Execute(ctx context.Context, ec *domain.ExecutionContext) (*domain.WorkerResult, error) {
	metrics, err := w.store.GetMetrics(ctx, ec.StudyID)
	if err != nil {
		return nil, fmt.Errorf("loading metrics for study %s: %w", ec.StudyID, err)
	}

	result := domain.NewWorkerResult(domain.WorkerData)
	result.Data["enrolled_count"] = float64(metrics.EnrolledCount)
	result.Data["target_count"] = float64(metrics.TargetCount)
	result.Data["patient_count"] = float64(metrics.PatientCount)
	result.AddEvidence(domain.NewEvidence(domain.EvidenceStudyData,
		fmt.Sprintf("study/%s/metrics", ec.StudyID), 1.0))

	if metrics.HazardRatio > 0 {
		result.Data["hazard_ratio"] = metrics.HazardRatio
		result.AddEvidence(domain.NewEvidence(domain.EvidenceComputedStatistic,
			fmt.Sprintf("study/%s/hazard-ratio", ec.StudyID), 0.9))
	}
	if len(metrics.SurvivalCurve) > 0 {
		curve := make([]map[string]any, len(metrics.SurvivalCurve))
		for i, point := range metrics.SurvivalCurve {
			curve[i] = map[string]any{"time": point.Time, "probability": point.Probability}
		}
		result.Data["survival_curve"] = curve
		result.AddEvidence(domain.NewEvidence(domain.EvidenceComputedStatistic,
			fmt.Sprintf("study/%s/survival-curve", ec.StudyID), 0.9))
	}

	if metrics.PatientCount == 0 {
		result.MarkInsufficient("no patients enrolled in study data")
		return result, nil
	}

	result.Narrative = fmt.Sprintf("Study has %d of %d target patients enrolled.",
		metrics.EnrolledCount, metrics.TargetCount)
	if metrics.EnrolledCount < metrics.TargetCount/2 {
		result.Confidence = 0.8
		w.logger.Debug("enrollment below half of target",
			zap.Int("enrolled", metrics.EnrolledCount), zap.Int("target", metrics.TargetCount))
	}
	return result, nil
}
