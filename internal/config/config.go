// Package config defines the engine's YAML configuration and its
// validation rules.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/trialmind/trialmind/internal/domain"
)

// Config is the complete engine configuration and the primary
// configuration entry point for a deployment.
type Config struct {
	// Version specifies the configuration schema version.
	Version string `yaml:"version" validate:"required"`
	// Study identifies the clinical study this deployment serves.
	Study StudyConfig `yaml:"study" validate:"required"`
	// Engine controls worker execution behavior.
	Engine EngineConfig `yaml:"engine"`
	// Provider selects and configures the generation backend.
	Provider ProviderConfig `yaml:"provider" validate:"required"`
	// Retry configures generation-request retry behavior.
	Retry RetryConfig `yaml:"retry"`
	// RateLimit throttles generation requests.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	// Workers selects which worker kinds to register at startup.
	Workers WorkersConfig `yaml:"workers"`
	// Logging controls log output.
	Logging LoggingConfig `yaml:"logging"`
}

// StudyConfig identifies the study under analysis.
type StudyConfig struct {
	// ID is the study identifier used for all data lookups.
	ID string `yaml:"id" validate:"required,min=1,max=100"`
}

// EngineConfig controls worker execution behavior.
type EngineConfig struct {
	// DeadlineSeconds is the per-worker execution budget. Zero uses the
	// engine default.
	DeadlineSeconds int `yaml:"deadline_seconds" validate:"omitempty,min=1,max=3600"`
	// MaxWorkerCalls caps generation-backend calls per worker run.
	// Zero means no cap.
	MaxWorkerCalls int `yaml:"max_worker_calls" validate:"omitempty,min=0,max=1000"`
	// RequireProvenance demands evidence on every surfaced fact.
	RequireProvenance bool `yaml:"require_provenance"`
}

// ProviderConfig selects the generation backend.
type ProviderConfig struct {
	// Name is the provider identifier.
	Name string `yaml:"name" validate:"required,oneof=openai anthropic"`
	// Model overrides the provider's default model when set.
	Model string `yaml:"model" validate:"omitempty,max=100"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env" validate:"required"`
	// MaxTokens caps the response length per request.
	MaxTokens int `yaml:"max_tokens" validate:"omitempty,min=1,max=100000"`
	// Temperature sets the sampling temperature.
	Temperature float64 `yaml:"temperature" validate:"min=0,max=2"`
}

// RetryConfig configures generation-request retries.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first.
	// Zero disables retries.
	MaxAttempts int `yaml:"max_attempts" validate:"min=0,max=10"`
	// InitialWaitMs is the base delay before the first retry.
	InitialWaitMs int `yaml:"initial_wait_ms" validate:"omitempty,min=0,max=60000"`
	// MaxWaitMs caps the delay between attempts.
	MaxWaitMs int `yaml:"max_wait_ms" validate:"omitempty,min=0,max=300000"`
}

// RateLimitConfig throttles generation requests.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained request rate. Zero disables
	// rate limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"min=0,max=1000"`
	// Burst is the number of requests allowed above the sustained rate.
	Burst int `yaml:"burst" validate:"omitempty,min=1,max=1000"`
}

// WorkersConfig selects which workers to register.
type WorkersConfig struct {
	// Enabled lists the worker kinds registered at startup. Empty
	// enables all of them.
	Enabled []string `yaml:"enabled" validate:"max=16,dive,workerkind"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is the minimum log level.
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	// Development switches to the human-readable console encoder.
	Development bool `yaml:"development"`
}

// Defaults applied to fields the file leaves unset.
const (
	defaultMaxTokens   = 1024
	defaultTemperature = 0.2
	defaultLogLevel    = "info"
)

// Load reads, defaults, and validates a configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes, defaults, and validates configuration bytes.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Provider.MaxTokens == 0 {
		c.Provider.MaxTokens = defaultMaxTokens
	}
	if c.Provider.Temperature == 0 {
		c.Provider.Temperature = defaultTemperature
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 1
	}
}

// Validate checks the configuration against its declared rules.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.RegisterValidation("workerkind", validateWorkerKind); err != nil {
		return fmt.Errorf("registering workerkind validator: %w", err)
	}
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Deadline returns the configured per-worker deadline, or zero to use
// the engine default.
func (c *Config) Deadline() time.Duration {
	return time.Duration(c.Engine.DeadlineSeconds) * time.Second
}

// APIKey resolves the provider API key from the environment.
func (c *Config) APIKey() (string, error) {
	key := os.Getenv(c.Provider.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("environment variable %s is not set", c.Provider.APIKeyEnv)
	}
	return key, nil
}

// EnabledWorkers returns the worker kinds to register. An empty Enabled
// list means every non-synthesis kind.
func (c *Config) EnabledWorkers() []domain.WorkerKind {
	if len(c.Workers.Enabled) == 0 {
		return []domain.WorkerKind{
			domain.WorkerProtocol, domain.WorkerData, domain.WorkerLiterature,
			domain.WorkerRegistry, domain.WorkerCompliance, domain.WorkerSafety,
		}
	}
	kinds := make([]domain.WorkerKind, 0, len(c.Workers.Enabled))
	for _, name := range c.Workers.Enabled {
		kinds = append(kinds, domain.WorkerKind(name))
	}
	return kinds
}

func validateWorkerKind(fl validator.FieldLevel) bool {
	return domain.WorkerKind(fl.Field().String()).Valid()
}
