// Package workers holds the domain worker implementations: each one
// analyzes one facet of a clinical study (protocol, data, literature,
// registry, compliance, safety) and reports its findings as a
// WorkerResult with evidence attached.
package workers

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/trialmind/trialmind/internal/domain"
	"github.com/trialmind/trialmind/internal/engine"
	"github.com/trialmind/trialmind/internal/guard"
	"github.com/trialmind/trialmind/internal/ports"
)

// ErrCallBudgetExhausted is returned when a worker would exceed the
// context's generation-call cap.
var ErrCallBudgetExhausted = errors.New("generation call budget exhausted")

// Base carries the collaborators every worker shares and the helper
// methods that keep generation-backend usage uniform: budget-checked,
// counted, and always behind the injection guard.
type Base struct {
	kind      domain.WorkerKind
	generator ports.Generator
	templates ports.TemplateLoader
	logger    *zap.Logger
}

// NewBase builds the shared worker core. The generator and templates
// may be nil for workers that never call the generation backend.
func NewBase(kind domain.WorkerKind, generator ports.Generator, templates ports.TemplateLoader, logger *zap.Logger) Base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Base{kind: kind, generator: generator, templates: templates, logger: logger}
}

// Kind returns the worker's specialty.
func (b *Base) Kind() domain.WorkerKind { return b.kind }

// Validate checks the base wiring. Workers with extra collaborators
// extend this.
func (b *Base) Validate() error {
	if !b.kind.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrMissingKind, b.kind)
	}
	return nil
}

// generate calls the generation backend with the per-run counter
// incremented and the context's call cap enforced.
func (b *Base) generate(ctx context.Context, ec *domain.ExecutionContext, prompt string, options map[string]any) (string, error) {
	if err := b.checkBudget(ctx, ec); err != nil {
		return "", err
	}
	engine.CountGenerationCall(ctx)
	return b.generator.Generate(ctx, prompt, options)
}

// generateJSON is generate for structured output.
func (b *Base) generateJSON(ctx context.Context, ec *domain.ExecutionContext, prompt string, options map[string]any) (map[string]any, error) {
	if err := b.checkBudget(ctx, ec); err != nil {
		return nil, err
	}
	engine.CountGenerationCall(ctx)
	return b.generator.GenerateJSON(ctx, prompt, options)
}

func (b *Base) checkBudget(ctx context.Context, ec *domain.ExecutionContext) error {
	if b.generator == nil {
		return errors.New("no generation backend configured")
	}
	if ec.MaxWorkerCalls > 0 && engine.GenerationCalls(ctx) >= ec.MaxWorkerCalls {
		return fmt.Errorf("%w: cap %d reached", ErrCallBudgetExhausted, ec.MaxWorkerCalls)
	}
	return nil
}

// prompt renders a named template with its free-text parameters already
// sanitized. Callers pass raw values; sanitization here keeps the guard
// uniform instead of ad hoc per worker.
func (b *Base) prompt(name string, params map[string]any) (string, error) {
	if b.templates == nil {
		return "", errors.New("no template loader configured")
	}
	cleaned := make(map[string]any, len(params))
	for key, value := range params {
		if text, ok := value.(string); ok {
			cleaned[key] = guard.Sanitize(text)
			continue
		}
		cleaned[key] = value
	}
	return b.templates.Load(name, cleaned, true)
}
