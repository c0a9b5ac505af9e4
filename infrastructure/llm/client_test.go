package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLLM is a configurable CoreLLM for exercising the client and
// middleware without a real provider.
type stubLLM struct {
	model    string
	response string
	err      error
	calls    atomic.Int64
	// failures, when positive, makes the first N calls fail before
	// succeeding.
	failures int64
}

func (s *stubLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	n := s.calls.Add(1)
	if s.err != nil && (s.failures == 0 || n <= s.failures) {
		return "", 0, 0, s.err
	}
	return s.response, len(prompt) / 4, len(s.response) / 4, nil
}

func (s *stubLLM) GetModel() string  { return s.model }
func (s *stubLLM) SetModel(m string) { s.model = m }

func TestClientGenerate(t *testing.T) {
	stub := &stubLLM{model: "stub-model", response: "generated text"}
	client := NewClientWithCore(stub)

	text, err := client.Generate(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "generated text", text)
	assert.Equal(t, "stub-model", client.GetModel())
}

func TestClientGenerateJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantErr  bool
		wantKey  string
		wantVal  any
	}{
		{
			name:     "bare JSON object",
			response: `{"status": "green", "count": 3}`,
			wantKey:  "status",
			wantVal:  "green",
		},
		{
			name:     "JSON inside markdown fence",
			response: "Here you go:\n```json\n{\"ready\": true}\n```",
			wantKey:  "ready",
			wantVal:  true,
		},
		{
			name:     "JSON surrounded by prose",
			response: `The answer is {"score": 0.8} as requested.`,
			wantKey:  "score",
			wantVal:  0.8,
		},
		{
			name:     "no JSON at all",
			response: "I cannot answer that.",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClientWithCore(&stubLLM{model: "stub", response: tt.response})
			parsed, err := client.GenerateJSON(context.Background(), "prompt", nil)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoJSONFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVal, parsed[tt.wantKey])
		})
	}
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("openai", ClientConfig{})
	assert.ErrorIs(t, err, ErrEmptyAPIKey)

	_, err = NewClient("no-such-provider", ClientConfig{APIKey: "key"})
	assert.ErrorContains(t, err, "unknown provider")
}

func TestSupportedProvidersIncludesBuiltins(t *testing.T) {
	providers := SupportedProviders()
	assert.Contains(t, providers, "openai")
	assert.Contains(t, providers, "anthropic")
}

func TestClientEstimateTokens(t *testing.T) {
	client := NewClientWithCore(&stubLLM{model: "stub"})
	count, err := client.EstimateTokens("a sixteen char s")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestMiddlewareOrderOutermostFirst(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next CoreLLM) CoreLLM {
			return &taggedLLM{next: next, name: name, order: &order}
		}
	}

	client := NewClientWithCore(&stubLLM{model: "stub", response: "ok"}, tag("outer"), tag("inner"))
	_, err := client.Generate(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

type taggedLLM struct {
	next  CoreLLM
	name  string
	order *[]string
}

func (l *taggedLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	*l.order = append(*l.order, l.name)
	return l.next.DoRequest(ctx, prompt, opts)
}

func (l *taggedLLM) GetModel() string  { return l.next.GetModel() }
func (l *taggedLLM) SetModel(m string) { l.next.SetModel(m) }

func TestProviderErrorRetryability(t *testing.T) {
	retryable := NewProviderError("openai", ErrorTypeRateLimit, 429, "slow down", nil)
	assert.True(t, retryable.IsRetryable())

	permanent := NewProviderError("openai", ErrorTypeAuthentication, 401, "bad key", errors.New("denied"))
	assert.False(t, permanent.IsRetryable())
	assert.Contains(t, permanent.Error(), "HTTP 401")
}
