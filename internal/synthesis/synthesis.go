// Package synthesis combines the outputs of the domain workers into a
// single evidence-backed answer. Every answer passes a sufficiency gate
// before any combination happens, carries explicit uncertainty
// information, and declares how it should be rendered.
package synthesis

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/trialmind/trialmind/internal/domain"
	"github.com/trialmind/trialmind/internal/engine"
	"github.com/trialmind/trialmind/internal/guard"
	"github.com/trialmind/trialmind/internal/ports"
)

// Synthesizer builds briefing-style answers from shared worker data.
// The generation backend and template loader are optional: without
// them the narrative is the deterministic fact rendering.
type Synthesizer struct {
	generator ports.Generator
	templates ports.TemplateLoader
	logger    *zap.Logger
	metrics   ports.MetricsCollector
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithGenerator sets the generation backend used to phrase narratives.
func WithGenerator(generator ports.Generator) Option {
	return func(s *Synthesizer) { s.generator = generator }
}

// WithTemplates sets the prompt template loader.
func WithTemplates(templates ports.TemplateLoader) Option {
	return func(s *Synthesizer) { s.templates = templates }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Synthesizer) { s.logger = logger }
}

// WithMetrics sets the collector receiving synthesis outcome metrics.
func WithMetrics(metrics ports.MetricsCollector) Option {
	return func(s *Synthesizer) { s.metrics = metrics }
}

// NewSynthesizer constructs a Synthesizer.
func NewSynthesizer(opts ...Option) *Synthesizer {
	s := &Synthesizer{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize combines the context's shared worker data into one answer
// of the requested kind. It returns an error only for an unknown kind;
// every evidential shortfall is expressed as an insufficient-evidence
// result, never a failure.
func (s *Synthesizer) Synthesize(ctx context.Context, kind Kind, ec *domain.ExecutionContext) (*domain.WorkerResult, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSynthesisKind, kind)
	}

	result := domain.NewWorkerResult(domain.WorkerSynthesis)
	result.Data["synthesis_kind"] = string(kind)

	gate := applyGate(kind, ec.SharedData)
	if !gate.passed {
		s.logger.Info("sufficiency gate blocked synthesis",
			zap.String("synthesis_kind", string(kind)),
			zap.String("request_id", ec.RequestID),
			zap.Strings("gaps", gate.gaps))
		result.MarkInsufficient(gate.gaps...)
		result.Narrative = insufficientNarrative(gate.gaps)
		result.Display = domain.DisplayNarrative
		result.Data["display_preference"] = string(result.Display)
		if s.metrics != nil {
			s.metrics.RecordCounter("synthesis_insufficient_total", 1,
				map[string]string{"kind": string(kind)})
		}
		return result, nil
	}

	entries := sortedEntries(ec.SharedData)

	result.Evidence = collectEvidence(entries)
	aggregate := aggregateConfidence(entries)
	result.Confidence = aggregate

	gaps, limitations := buildUncertainty(kind, entries, aggregate, len(result.Evidence), ec.RequireProvenance)
	reasoning := deriveReasoning(entries, aggregate)
	result.Reasoning = reasoning
	result.Uncertainty = domain.NewUncertainty(aggregate, gaps, limitations, reasoning)

	threshold := domain.ThresholdFor(kind.Category())
	if aggregate < threshold {
		result.Data["confidence_warning"] = fmt.Sprintf(
			"confidence %.2f is below the %.2f threshold for %s answers",
			aggregate, threshold, kind.Category())
	}

	answer := compute(kind, entries)
	for key, value := range answer.data {
		result.Data[key] = value
	}

	result.Narrative = s.renderNarrative(ctx, kind, ec, answer)

	display, chart, table, metrics := selectDisplay(kind, ec.Query, entries, answer)
	result.Display = display
	result.Chart = chart
	result.Table = table
	result.Metrics = metrics

	result.Data["display_preference"] = string(display)
	if chart != nil {
		result.Data["chart_payload"] = chart
	}
	if table != nil {
		result.Data["table_payload"] = table
	}
	if len(metrics) > 0 {
		result.Data["metric_cards"] = metrics
	}

	if s.metrics != nil {
		s.metrics.RecordHistogram("synthesis_confidence", aggregate,
			map[string]string{"kind": string(kind)})
	}

	return result, nil
}

// renderNarrative phrases the computed facts as prose. The generation
// backend only rewords; the facts it receives are the computed
// structure, and any backend failure falls back to the deterministic
// rendering.
func (s *Synthesizer) renderNarrative(ctx context.Context, kind Kind, ec *domain.ExecutionContext, answer computed) string {
	fallback := answer.fallbackNarrative()
	if s.generator == nil || s.templates == nil {
		return fallback
	}

	facts := make([]string, len(answer.facts))
	for i, fact := range answer.facts {
		facts[i] = "- " + guard.Sanitize(fact)
	}
	prompt, err := s.templates.Load("synthesis_narrative", map[string]any{
		"Kind":    string(kind),
		"StudyID": guard.Sanitize(ec.StudyID),
		"Facts":   strings.Join(facts, "\n"),
	}, true)
	if err != nil {
		s.logger.Warn("narrative template failed, using fact rendering", zap.Error(err))
		return fallback
	}

	engine.CountGenerationCall(ctx)
	text, err := s.generator.Generate(ctx, prompt, map[string]any{
		"temperature": 0.2,
		"max_tokens":  512,
	})
	if err != nil {
		s.logger.Warn("narrative generation failed, using fact rendering",
			zap.String("synthesis_kind", string(kind)), zap.Error(err))
		return fallback
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fallback
	}
	return text
}

// insufficientNarrative states explicitly that no answer can be given
// and what is missing. It must never read as a degraded guess.
func insufficientNarrative(gaps []string) string {
	return "Cannot answer: insufficient evidence. Missing or unusable inputs: " +
		strings.Join(gaps, "; ") + "."
}

// Worker adapts the Synthesizer to the worker contract so a pipeline's
// final stage can run synthesis through the Dispatcher. The synthesis
// kind is read from the context parameter "synthesis_kind", defaulting
// to a summary.
type Worker struct {
	synthesizer *Synthesizer
}

var _ ports.Worker = (*Worker)(nil)

// NewWorker wraps a Synthesizer as a registrable worker.
func NewWorker(synthesizer *Synthesizer) *Worker {
	return &Worker{synthesizer: synthesizer}
}

func (w *Worker) Kind() domain.WorkerKind { return domain.WorkerSynthesis }

func (w *Worker) Validate() error {
	if w.synthesizer == nil {
		return fmt.Errorf("synthesis worker requires a synthesizer")
	}
	return nil
}

func (w *Worker) Execute(ctx context.Context, ec *domain.ExecutionContext) (*domain.WorkerResult, error) {
	kind := KindSummary
	if requested, ok := ec.Parameters["synthesis_kind"].(string); ok && requested != "" {
		kind = Kind(requested)
	}
	return w.synthesizer.Synthesize(ctx, kind, ec)
}
