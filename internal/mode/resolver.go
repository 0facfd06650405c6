// Package mode decides, once per configuration load, whether agents call a
// live text generation provider or synthesize mock output.
package mode

import (
	"context"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/seoflow/internal/config"
	"github.com/fyrsmithlabs/seoflow/internal/logging"
)

// Mode is the execution mode shared by every agent.
type Mode string

const (
	Mock Mode = "mock"
	Live Mode = "live"
)

// Source names the rule that produced a Decision.
type Source string

const (
	SourceConfig      Source = "config"
	SourceForceEnv    Source = "force_env"
	SourceEnv         Source = "env"
	SourceSecretsFile Source = "secrets_file"
	SourceDefault     Source = "default"
)

// Environment variables consulted during resolution.
const (
	EnvForceMock    = "FORCE_MOCK_MODE"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvOpenAIKey    = "OPENAI_API_KEY"
)

// Decision is the immutable outcome of mode resolution.
type Decision struct {
	Mode        Mode          `json:"mode"`
	Reason      string        `json:"reason"`
	Source      Source        `json:"source"`
	Provider    string        `json:"provider"`
	Credential  config.Secret `json:"-"`
	Diagnostics Diagnostics   `json:"diagnostics"`
}

// IsLive reports whether agents should call the provider.
func (d Decision) IsLive() bool { return d.Mode == Live }

// Resolver applies the precedence rules. Construct with NewResolver.
type Resolver struct {
	cfg      config.ModeConfig
	provider string
	getenv   func(string) string
	logger   *logging.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithEnv replaces os.Getenv, mainly for tests.
func WithEnv(getenv func(string) string) Option {
	return func(r *Resolver) { r.getenv = getenv }
}

// WithLogger sets the resolver logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a resolver for the given mode settings and provider.
func NewResolver(cfg config.ModeConfig, provider string, opts ...Option) *Resolver {
	r := &Resolver{
		cfg:      cfg,
		provider: provider,
		getenv:   os.Getenv,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.provider == "" {
		r.provider = config.ProviderAnthropic
	}
	return r
}

// Resolve evaluates, highest first: config force flag, FORCE_MOCK_MODE,
// provider key in the environment, provider key in the secrets file, mock.
// It never fails; missing or placeholder credentials select mock.
func (r *Resolver) Resolve(ctx context.Context) Decision {
	d := r.resolve()
	r.logger.Info(ctx, "execution mode resolved",
		zap.String("mode", string(d.Mode)),
		zap.String("source", string(d.Source)),
		zap.String("reason", d.Reason),
		zap.String("secrets_file.status", d.Diagnostics.Status),
	)
	return d
}

func (r *Resolver) resolve() Decision {
	d := Decision{
		Provider: r.provider,
		Diagnostics: Diagnostics{
			Status:  StatusNotChecked,
			Message: "Keys file not consulted",
			Path:    r.secretsPath(),
		},
	}

	if r.cfg.ForceMock {
		return r.mock(d, SourceConfig, "Mock mode is forced by configuration")
	}
	if truthy(r.getenv(EnvForceMock)) {
		return r.mock(d, SourceForceEnv, "Mock mode is forced by FORCE_MOCK_MODE setting")
	}

	envVar := r.envVar()
	if key := strings.TrimSpace(r.getenv(envVar)); key != "" && !IsPlaceholder(key) {
		d.Mode = Live
		d.Source = SourceEnv
		d.Credential = config.Secret(key)
		d.Reason = "Using live " + r.provider + " API with key from " + envVar
		return d
	}

	key, diag := ReadSecretsFile(d.Diagnostics.Path, r.provider)
	d.Diagnostics = diag
	if diag.Status == StatusSuccess {
		d.Mode = Live
		d.Source = SourceSecretsFile
		d.Credential = key
		d.Reason = "Using live " + r.provider + " API with key from keys file"
		return d
	}

	return r.mock(d, SourceDefault, diag.Message)
}

func (r *Resolver) mock(d Decision, src Source, reason string) Decision {
	d.Mode = Mock
	d.Source = src
	d.Reason = reason
	d.Credential = ""
	return d
}

func (r *Resolver) envVar() string {
	if r.provider == config.ProviderOpenAI {
		return EnvOpenAIKey
	}
	return EnvAnthropicKey
}

func (r *Resolver) secretsPath() string {
	if r.cfg.SecretsFile != "" {
		return r.cfg.SecretsFile
	}
	if p := r.getenv("KEYS_FILE_PATH"); p != "" {
		return p
	}
	return "keys.json"
}

func truthy(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return strings.EqualFold(strings.TrimSpace(v), "yes")
	}
	return b
}
