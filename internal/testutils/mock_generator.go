// Package testutils provides shared test doubles for the engine's
// generation backend.
package testutils

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/trialmind/trialmind/internal/ports"
)

// MockGenerator is a scripted ports.Generator for tests. Responses are
// returned in order; once exhausted the default response repeats. It is
// safe for concurrent use.
type MockGenerator struct {
	mu        sync.Mutex
	responses []string
	index     int

	defaultResponse string
	err             error
	calls           atomic.Int64
	lastPrompt      string
}

var _ ports.Generator = (*MockGenerator)(nil)

// NewMockGenerator creates a mock that always returns defaultResponse.
func NewMockGenerator(defaultResponse string) *MockGenerator {
	return &MockGenerator{defaultResponse: defaultResponse}
}

// WithResponses scripts an ordered sequence of responses.
func (m *MockGenerator) WithResponses(responses ...string) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	m.index = 0
	return m
}

// WithError makes every call fail with err.
func (m *MockGenerator) WithError(err error) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string, options map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.calls.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPrompt = prompt
	if m.err != nil {
		return "", m.err
	}
	if m.index < len(m.responses) {
		response := m.responses[m.index]
		m.index++
		return response, nil
	}
	return m.defaultResponse, nil
}

func (m *MockGenerator) GenerateJSON(ctx context.Context, prompt string, options map[string]any) (map[string]any, error) {
	text, err := m.Generate(ctx, prompt, options)
	if err != nil {
		return nil, err
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("mock response is not JSON: %w", err)
	}
	return parsed, nil
}

func (m *MockGenerator) EstimateTokens(text string) (int, error) {
	return len(text) / 4, nil
}

func (m *MockGenerator) GetModel() string { return "mock-model" }

// Calls reports how many Generate/GenerateJSON calls were made.
func (m *MockGenerator) Calls() int { return int(m.calls.Load()) }

// LastPrompt returns the most recent prompt received.
func (m *MockGenerator) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrompt
}
