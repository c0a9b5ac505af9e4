package workers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/trialmind/trialmind/internal/domain"
	"github.com/trialmind/trialmind/internal/ports"
)

// SafetyWorker tallies the study's adverse events, flags serious ones,
// and optionally asks the generation backend to phrase the finding.
type SafetyWorker struct {
	Base
	store ports.StudyStore
}

var _ ports.Worker = (*SafetyWorker)(nil)

// NewSafetyWorker constructs the safety worker. The generator is
// optional; without it the deterministic narrative is used.
func NewSafetyWorker(store ports.StudyStore, generator ports.Generator, templates ports.TemplateLoader, logger *zap.Logger) *SafetyWorker {
	return &SafetyWorker{
		Base:  NewBase(domain.WorkerSafety, generator, templates, logger),
		store: store,
	}
}

func (w *SafetyWorker) Validate() error {
	if err := w.Base.Validate(); err != nil {
		return err
	}
	if w.store == nil {
		return fmt.Errorf("safety worker requires a study store")
	}
	return nil
}

func (w *SafetyWorker) Execute(ctx context.Context, ec *domain.ExecutionContext) (*domain.WorkerResult, error) {
	events, err := w.store.GetAdverseEvents(ctx, ec.StudyID)
	if err != nil {
		return nil, fmt.Errorf("loading adverse events for study %s: %w", ec.StudyID, err)
	}
	metrics, err := w.store.GetMetrics(ctx, ec.StudyID)
	if err != nil {
		return nil, fmt.Errorf("loading metrics for study %s: %w", ec.StudyID, err)
	}

	serious := 0
	maxGrade := 0
	for _, event := range events {
		if event.Serious {
			serious++
		}
		if event.Grade > maxGrade {
			maxGrade = event.Grade
		}
	}

	result := domain.NewWorkerResult(domain.WorkerSafety)
	result.Data["adverse_event_count"] = float64(len(events))
	result.Data["serious_event_count"] = float64(serious)
	result.Data["max_grade"] = float64(maxGrade)
	result.Data["patient_count"] = float64(metrics.PatientCount)
	result.AddEvidence(domain.NewEvidence(domain.EvidenceStudyData,
		fmt.Sprintf("study/%s/adverse-events", ec.StudyID), 1.0))

	finding := fmt.Sprintf("%d adverse event(s) across %d patient(s), %d serious, highest grade %d.",
		len(events), metrics.PatientCount, serious, maxGrade)
	result.Narrative = finding
	if serious > 0 {
		result.Data["critical_flag"] = true
		result.Confidence = 0.95
	}

	if w.generator != nil && w.templates != nil {
		prompt, err := w.prompt("worker_finding", map[string]any{
			"Specialty": "safety",
			"StudyID":   ec.StudyID,
			"Finding":   finding,
		})
		if err == nil {
			if text, err := w.generate(ctx, ec, prompt, map[string]any{"temperature": 0.2, "max_tokens": 256}); err == nil && text != "" {
				result.Narrative = text
				result.AddEvidence(domain.NewEvidence(domain.EvidenceModelInference,
					"safety-summary/"+ec.RequestID, 0.7))
			} else if err != nil {
				w.logger.Warn("safety narrative generation failed", zap.Error(err))
			}
		}
	}
	return result, nil
}
