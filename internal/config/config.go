// Package config provides configuration loading for seoflow.
//
// Configuration is assembled from an optional YAML file and SEOFLOW_-prefixed
// environment variables, then defaulted and validated. A handful of legacy
// variables (CLAUDE_MODEL, REQUEST_TIMEOUT, KEYS_FILE_PATH) are honoured when
// the corresponding setting is left empty.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Failure policies understood by the orchestrator.
const (
	FailurePolicyAbort        = "abort"
	FailurePolicyContinue     = "continue"
	FailurePolicyFallbackMock = "fallback_mock"
)

// Store backends.
const (
	StoreBackendFile     = "file"
	StoreBackendSQLite   = "sqlite"
	StoreBackendPostgres = "postgres"
)

// Text generation providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config holds the complete seoflow configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Observability ObservabilityConfig `koanf:"observability"`
	Agents        AgentsConfig        `koanf:"agents"`
	Mode          ModeConfig          `koanf:"mode"`
	Orchestrator  OrchestratorConfig  `koanf:"orchestrator"`
	Store         StoreConfig         `koanf:"store"`
	Events        EventsConfig        `koanf:"events"`
	Temporal      TemporalConfig      `koanf:"temporal"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"http_host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// ObservabilityConfig holds logging and OpenTelemetry settings.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
	OTLPEndpoint    string `koanf:"otlp_endpoint"`
	LogLevel        string `koanf:"log_level"`
	LogFormat       string `koanf:"log_format"`
}

// AgentsConfig configures the live text generation client shared by all agents.
type AgentsConfig struct {
	Provider       string        `koanf:"provider"`
	Model          string        `koanf:"model"`
	BaseURL        string        `koanf:"base_url"`
	MaxTokens      int           `koanf:"max_tokens"`
	Temperature    float64       `koanf:"temperature"`
	RateLimit      float64       `koanf:"rate_limit"` // requests per second
	Burst          int           `koanf:"burst"`
	MaxRetries     int           `koanf:"max_retries"`
	BaseBackoff    time.Duration `koanf:"base_backoff"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// ModeConfig controls mock/live resolution.
type ModeConfig struct {
	ForceMock   bool   `koanf:"force_mock"`
	SecretsFile string `koanf:"secrets_file"`
}

// OrchestratorConfig controls run execution.
type OrchestratorConfig struct {
	FailurePolicy string        `koanf:"failure_policy"`
	StepTimeout   time.Duration `koanf:"step_timeout"`
}

// StoreConfig selects where results are persisted.
type StoreConfig struct {
	Backend string `koanf:"backend"`
	Path    string `koanf:"path"`
	DSN     Secret `koanf:"dsn"`
}

// EventsConfig configures run lifecycle publishing. Empty NATSURL disables it.
type EventsConfig struct {
	NATSURL       string `koanf:"nats_url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// TemporalConfig configures durable runs.
type TemporalConfig struct {
	HostPort        string        `koanf:"host_port"`
	Namespace       string        `koanf:"namespace"`
	TaskQueue       string        `koanf:"task_queue"`
	ActivityTimeout time.Duration `koanf:"activity_timeout"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server shutdown timeout must be positive")
	}

	if err := c.Agents.validate(); err != nil {
		return fmt.Errorf("agents: %w", err)
	}

	switch c.Orchestrator.FailurePolicy {
	case FailurePolicyAbort, FailurePolicyContinue, FailurePolicyFallbackMock:
	default:
		return fmt.Errorf("unknown failure policy %q (expected abort, continue or fallback_mock)", c.Orchestrator.FailurePolicy)
	}
	if c.Orchestrator.StepTimeout <= 0 {
		return errors.New("orchestrator step timeout must be positive")
	}

	switch c.Store.Backend {
	case StoreBackendFile:
		if c.Store.Path == "" {
			return errors.New("store path is required for the file backend")
		}
	case StoreBackendSQLite, StoreBackendPostgres:
		if !c.Store.DSN.IsSet() {
			return fmt.Errorf("store dsn is required for the %s backend", c.Store.Backend)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.Temporal.ActivityTimeout <= 0 {
		return errors.New("temporal activity timeout must be positive")
	}

	return nil
}

func (a AgentsConfig) validate() error {
	switch a.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown provider %q", a.Provider)
	}
	if a.Model == "" {
		return errors.New("model is required")
	}
	if a.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", a.MaxTokens)
	}
	if a.Temperature < 0 || a.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", a.Temperature)
	}
	if a.RateLimit <= 0 || a.Burst <= 0 {
		return errors.New("rate_limit and burst must be positive")
	}
	if a.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", a.MaxRetries)
	}
	if a.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	return nil
}
