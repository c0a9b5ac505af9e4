// Package llm provides the generation backend for the evidence engine:
// a unified client over multiple model providers with middleware for
// timeouts, retries, rate limiting, and metrics.
//
// Providers implement the minimal CoreLLM interface and register
// themselves through RegisterProviderFactory. The Client wraps a provider
// with the configured middleware chain and exposes the ports.Generator
// contract consumed by workers and by the synthesis narrative stage.
//
// Basic usage:
//
//	gen, err := llm.NewClient("openai", llm.ClientConfig{
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	    Model:  "gpt-4o-mini",
//	    Middleware: []llm.Middleware{
//	        llm.TimeoutMiddleware(30 * time.Second),
//	        llm.RetryMiddleware(2, 200*time.Millisecond, 5*time.Second),
//	    },
//	})
//	text, err := gen.Generate(ctx, "Summarize ...", nil)
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/trialmind/trialmind/internal/ports"
)

// CoreLLM is the minimal interface a model provider must implement.
// Middleware wraps any conforming implementation.
type CoreLLM interface {
	// DoRequest sends a prompt to the provider and returns the response
	// text together with input and output token counts.
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	// GetModel returns the currently configured model name.
	GetModel() string

	// SetModel updates the model used for subsequent requests.
	SetModel(model string)
}

// Middleware wraps a CoreLLM to add cross-cutting behavior such as
// timeouts, retries, rate limiting, or metrics.
type Middleware func(CoreLLM) CoreLLM

// TokenEstimator approximates token counts when exact counts are not
// available before a request is made.
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// ClientConfig holds the settings for building a generation client.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model names the model to use. Empty selects the provider default.
	Model string

	// BaseURL overrides the provider's default endpoint when set.
	BaseURL string

	// Timeout bounds individual requests at the HTTP layer. Zero means
	// no client-side timeout.
	Timeout time.Duration

	// TokenEstimator overrides the default character-based estimator.
	TokenEstimator TokenEstimator

	// Middleware is applied in order; the first entry is outermost.
	Middleware []Middleware
}

// Client wraps a provider with middleware and implements ports.Generator.
type Client struct {
	core      CoreLLM
	estimator TokenEstimator
}

var _ ports.Generator = (*Client)(nil)

// NewClient assembles a generation client for the named provider type.
// It validates configuration, builds the provider through its registered
// factory, and applies the middleware chain.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	factory, ok := lookupProviderFactory(providerType)
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", providerType, err)
	}

	// Apply middleware in reverse so the first configured entry is the
	// outermost wrapper.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	estimator := config.TokenEstimator
	if estimator == nil {
		estimator = NewTokenCounter()
	}

	return &Client{core: core, estimator: estimator}, nil
}

// NewClientWithCore builds a client around an existing CoreLLM. It is
// used by tests and by callers that construct providers directly.
func NewClientWithCore(core CoreLLM, middleware ...Middleware) *Client {
	for i := len(middleware) - 1; i >= 0; i-- {
		core = middleware[i](core)
	}
	return &Client{core: core, estimator: NewTokenCounter()}
}

// Generate sends a prompt and returns the generated text.
func (c *Client) Generate(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.core.DoRequest(ctx, prompt, options)
	return response, err
}

// GenerateJSON sends a prompt that demands structured output and returns
// the parsed object. It appends an explicit JSON instruction, extracts
// the first JSON object from the response (tolerating surrounding prose
// and markdown fences), and unmarshals it.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, options map[string]any) (map[string]any, error) {
	prompt += "\n\nRespond with a single valid JSON object and nothing else."

	response, _, _, err := c.core.DoRequest(ctx, prompt, options)
	if err != nil {
		return nil, err
	}

	jsonStr := ExtractJSON(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("%w (response length: %d chars)", ErrNoJSONFound, len(response))
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	return parsed, nil
}

// EstimateTokens returns an approximate token count for the given text.
func (c *Client) EstimateTokens(text string) (int, error) {
	return c.estimator.EstimateTokens(text), nil
}

// GetModel returns the configured model name from the underlying provider.
func (c *Client) GetModel() string { return c.core.GetModel() }

// ProviderFactory builds a CoreLLM from configuration. The signature lets
// the provider registry construct instances without knowing their types.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var (
	factoryMu         sync.RWMutex
	providerFactories = make(map[string]ProviderFactory)
)

// RegisterProviderFactory registers a provider under a type name.
// Providers call this from init so importing the package is enough to
// make them available.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	providerFactories[providerType] = factory
}

func lookupProviderFactory(providerType string) (ProviderFactory, bool) {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	factory, ok := providerFactories[providerType]
	return factory, ok
}

// SupportedProviders returns the registered provider type names.
func SupportedProviders() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	names := make([]string, 0, len(providerFactories))
	for name := range providerFactories {
		names = append(names, name)
	}
	return names
}
