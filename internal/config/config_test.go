package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialmind/trialmind/internal/domain"
)

const validYAML = `
version: "1.0"
study:
  id: STUDY-001
engine:
  deadline_seconds: 60
  max_worker_calls: 5
provider:
  name: anthropic
  model: claude-3-5-sonnet-20241022
  api_key_env: ANTHROPIC_API_KEY
retry:
  max_attempts: 3
  initial_wait_ms: 200
rate_limit:
  requests_per_second: 10
workers:
  enabled: [protocol, data, safety]
logging:
  level: debug
  development: true
`

func TestParseValidConfig(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "STUDY-001", cfg.Study.ID)
	assert.Equal(t, 60*time.Second, cfg.Deadline())
	assert.Equal(t, "anthropic", cfg.Provider.Name)
	assert.Equal(t, 1024, cfg.Provider.MaxTokens, "defaulted")
	assert.Equal(t, 0.2, cfg.Provider.Temperature, "defaulted")
	assert.Equal(t, 1, cfg.RateLimit.Burst, "burst defaults to 1 when rate limiting is on")
	assert.Equal(t, []domain.WorkerKind{
		domain.WorkerProtocol, domain.WorkerData, domain.WorkerSafety,
	}, cfg.EnabledWorkers())
}

func TestParseRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing version",
			yaml: "study: {id: S-1}\nprovider: {name: openai, api_key_env: KEY}",
		},
		{
			name: "unknown provider",
			yaml: "version: \"1\"\nstudy: {id: S-1}\nprovider: {name: cohere, api_key_env: KEY}",
		},
		{
			name: "unknown worker kind",
			yaml: "version: \"1\"\nstudy: {id: S-1}\nprovider: {name: openai, api_key_env: KEY}\nworkers: {enabled: [astrology]}",
		},
		{
			name: "not yaml",
			yaml: "{{{",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestEnabledWorkersDefaultsToAll(t *testing.T) {
	cfg, err := Parse([]byte("version: \"1\"\nstudy: {id: S-1}\nprovider: {name: openai, api_key_env: KEY}"))
	require.NoError(t, err)
	assert.Len(t, cfg.EnabledWorkers(), 6)
}

func TestAPIKeyFromEnvironment(t *testing.T) {
	cfg, err := Parse([]byte("version: \"1\"\nstudy: {id: S-1}\nprovider: {name: openai, api_key_env: TEST_ENGINE_KEY}"))
	require.NoError(t, err)

	_, err = cfg.APIKey()
	assert.Error(t, err)

	t.Setenv("TEST_ENGINE_KEY", "sk-test")
	key, err := cfg.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", key)
}
