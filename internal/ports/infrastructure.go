package ports

import (
	"context"
	"time"
)

// Generator is the text-generation backend consumed by workers and by
// the synthesizer's narrative stage. Implementations are expected to
// fail with a reportable error rather than hang; the per-worker deadline
// is a backstop, not the primary timeout mechanism.
type Generator interface {
	// Generate sends a prompt and returns the generated text.
	// The options map carries provider-agnostic settings:
	//   - "temperature": float64 (0.0-1.0)
	//   - "max_tokens":  int
	//   - "system":      string
	//   - "model":       string (override the configured model)
	Generate(ctx context.Context, prompt string, options map[string]any) (string, error)

	// GenerateJSON sends a prompt that demands structured output and
	// returns the parsed object. Implementations extract the first JSON
	// object from the model output, tolerating surrounding prose and
	// markdown fences.
	GenerateJSON(ctx context.Context, prompt string, options map[string]any) (map[string]any, error)

	// EstimateTokens approximates the token count of a text for
	// budgeting purposes.
	EstimateTokens(text string) (int, error)

	// GetModel returns the model identifier in use, for logging.
	GetModel() string
}

// TemplateLoader resolves named prompt templates with parameters.
type TemplateLoader interface {
	// Load renders the named template with the given parameters.
	// In strict mode a parameter referenced by the template but absent
	// from the map is an error; otherwise it renders as empty.
	Load(name string, params map[string]any, strict bool) (string, error)
}

// MetricsCollector records operational metrics. Implementations integrate
// with Prometheus or a compatible backend.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
