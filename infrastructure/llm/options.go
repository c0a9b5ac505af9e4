package llm

import "sync"

// Parameter bounds shared across providers.
const (
	// DefaultMaxTokens is used when a request sets no token limit.
	DefaultMaxTokens = 1024
	// MinTemperature is the minimum allowed sampling temperature.
	MinTemperature = 0.0
	// MaxTemperature is the maximum allowed sampling temperature.
	MaxTemperature = 2.0
)

// RequestOptions is the standardized set of request parameters shared by
// all providers. Provider-specific extras travel in Extra.
type RequestOptions struct {
	// MaxTokens bounds the length of the generated response.
	MaxTokens int
	// Model overrides the provider's configured model for this request.
	Model string
	// Temperature controls output randomness. Nil uses the provider
	// default.
	Temperature *float64
	// System supplies instructions that guide the model's behavior.
	System string
	// Extra carries provider-specific options outside the standard set.
	Extra map[string]any
}

// ParseRequestOptions extracts standardized request parameters from an
// options map, applying defaults for missing or invalid entries and
// collecting unrecognized keys into Extra.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	options := RequestOptions{
		MaxTokens: extractInt(opts, "max_tokens", DefaultMaxTokens, isPositive),
		Model:     extractString(opts, "model", defaultModel, isNonEmpty),
		System:    extractString(opts, "system", "", nil),
		Extra:     make(map[string]any),
	}

	if temp, ok := extractFloat(opts, "temperature", isValidTemperature); ok {
		options.Temperature = &temp
	}

	for k, v := range opts {
		switch k {
		case "max_tokens", "model", "system", "temperature":
			// Standard options, already processed.
		default:
			options.Extra[k] = v
		}
	}

	return options
}

func extractInt(opts map[string]any, key string, defaultVal int, valid func(int) bool) int {
	raw, ok := opts[key]
	if !ok {
		return defaultVal
	}
	var val int
	switch v := raw.(type) {
	case int:
		val = v
	case float64:
		val = int(v)
	default:
		return defaultVal
	}
	if valid != nil && !valid(val) {
		return defaultVal
	}
	return val
}

func extractString(opts map[string]any, key, defaultVal string, valid func(string) bool) string {
	val, ok := opts[key].(string)
	if !ok {
		return defaultVal
	}
	if valid != nil && !valid(val) {
		return defaultVal
	}
	return val
}

func extractFloat(opts map[string]any, key string, valid func(float64) bool) (float64, bool) {
	raw, ok := opts[key]
	if !ok {
		return 0, false
	}
	var val float64
	switch v := raw.(type) {
	case float64:
		val = v
	case int:
		val = float64(v)
	default:
		return 0, false
	}
	if valid != nil && !valid(val) {
		return 0, false
	}
	return val, true
}

func isPositive(v int) bool        { return v > 0 }
func isNonEmpty(v string) bool     { return v != "" }
func isValidTemperature(v float64) bool {
	return v >= MinTemperature && v <= MaxTemperature
}

// BaseProvider provides common, thread-safe model-name handling for
// provider implementations.
type BaseProvider struct {
	mu    sync.RWMutex
	model string
}

// GetModel returns the currently configured model name.
func (b *BaseProvider) GetModel() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

// SetModel updates the model name for subsequent requests.
func (b *BaseProvider) SetModel(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.model = model
}

// TokenCounter estimates token counts with a character-ratio heuristic,
// used when a provider does not report usage.
type TokenCounter struct {
	// CharactersPerToken approximates the average token length.
	CharactersPerToken float64
}

// NewTokenCounter creates a counter with the common 4-characters-per-token
// approximation for English text.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{CharactersPerToken: 4.0}
}

// EstimateTokens returns the estimated token count for the text.
func (tc *TokenCounter) EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return int(float64(len(text)) / tc.CharactersPerToken)
}

// GetTokenCount prefers the provider-reported count and falls back to an
// estimate when the report is missing or zero.
func (tc *TokenCounter) GetTokenCount(actualCount int, text string) int {
	if actualCount > 0 {
		return actualCount
	}
	return tc.EstimateTokens(text)
}
