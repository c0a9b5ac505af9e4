package workers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/trialmind/trialmind/internal/domain"
	"github.com/trialmind/trialmind/internal/ports"
)

// RegistryWorker looks the study up in its trial registry and reports
// the registration status and site footprint.
type RegistryWorker struct {
	Base
	client ports.RegistryClient
}

var _ ports.Worker = (*RegistryWorker)(nil)

// NewRegistryWorker constructs the registry worker.
func NewRegistryWorker(client ports.RegistryClient, logger *zap.Logger) *RegistryWorker {
	return &RegistryWorker{
		Base:   NewBase(domain.WorkerRegistry, nil, nil, logger),
		client: client,
	}
}

func (w *RegistryWorker) Validate() error {
	if err := w.Base.Validate(); err != nil {
		return err
	}
	if w.client == nil {
		return fmt.Errorf("registry worker requires a registry client")
	}
	return nil
}

func (w *RegistryWorker) Execute(ctx context.Context, ec *domain.ExecutionContext) (*domain.WorkerResult, error) {
	record, err := w.client.Lookup(ctx, ec.StudyID)
	if err != nil {
		return nil, fmt.Errorf("registry lookup for study %s: %w", ec.StudyID, err)
	}

	result := domain.NewWorkerResult(domain.WorkerRegistry)
	result.Data["registry_id"] = record.RegistryID
	result.Data["registration_status"] = record.Status
	result.Data["site_count"] = float64(record.SiteCount)
	if record.Phase != "" {
		result.Data["phase"] = record.Phase
	}
	result.AddEvidence(domain.NewEvidence(domain.EvidenceRegistry, record.RegistryID, 1.0))

	result.Narrative = fmt.Sprintf("Registered as %s, status %s, %d site(s).",
		record.RegistryID, record.Status, record.SiteCount)
	return result, nil
}
