// Package app wires configuration into a ready orchestrator and the
// resources behind it. Every entry point (daemon, CLI, MCP, worker) builds
// one App and closes it on exit.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/seoflow/internal/agent"
	"github.com/fyrsmithlabs/seoflow/internal/config"
	"github.com/fyrsmithlabs/seoflow/internal/events"
	"github.com/fyrsmithlabs/seoflow/internal/logging"
	"github.com/fyrsmithlabs/seoflow/internal/metrics"
	"github.com/fyrsmithlabs/seoflow/internal/mode"
	"github.com/fyrsmithlabs/seoflow/internal/orchestrator"
	"github.com/fyrsmithlabs/seoflow/internal/registry"
	"github.com/fyrsmithlabs/seoflow/internal/secrets"
	"github.com/fyrsmithlabs/seoflow/internal/store"
	"github.com/fyrsmithlabs/seoflow/internal/telemetry"
)

const tracerName = "github.com/fyrsmithlabs/seoflow/internal/orchestrator"

// Options adjusts how an App is built.
type Options struct {
	// Version is reported as the telemetry service version.
	Version string
	// LogToStderr keeps stdout free for command output or a protocol stream.
	LogToStderr bool
	// Progress receives per-step progress from every run.
	Progress orchestrator.ProgressCallback
	// Getenv replaces os.Getenv during mode resolution.
	Getenv func(string) string
	// Logger replaces the logger built from configuration.
	Logger *logging.Logger
}

// App holds the wired components.
type App struct {
	Config       *config.Config
	Logger       *logging.Logger
	Telemetry    *telemetry.Telemetry
	Scrubber     secrets.Scrubber
	Decision     mode.Decision
	Model        agent.ModelInfo
	Registry     *registry.Registry
	Store        store.Store
	Publisher    events.Publisher
	Metrics      *metrics.Metrics
	Orchestrator *orchestrator.Orchestrator

	closers []func(context.Context) error
}

// New builds an App from cfg. On error every resource opened so far is
// released.
func New(ctx context.Context, cfg *config.Config, opts Options) (_ *App, err error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	a.Telemetry, err = telemetry.New(ctx, telemetry.FromObservability(cfg.Observability, opts.Version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.closers = append(a.closers, a.Telemetry.Shutdown)

	if opts.Logger != nil {
		a.Logger = opts.Logger
	} else if a.Logger, err = newLogger(cfg, a.Telemetry, opts.LogToStderr); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error {
		_ = a.Logger.Sync()
		return nil
	})
	if degraded, reason := a.Telemetry.Degraded(); degraded {
		a.Logger.Warn(ctx, "telemetry degraded", zap.String("reason", reason))
	}

	a.Scrubber, err = secrets.New(secrets.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize scrubber: %w", err)
	}

	resolverOpts := []mode.Option{mode.WithLogger(a.Logger.Named("mode"))}
	if opts.Getenv != nil {
		resolverOpts = append(resolverOpts, mode.WithEnv(opts.Getenv))
	}
	a.Decision = mode.NewResolver(cfg.Mode, cfg.Agents.Provider, resolverOpts...).Resolve(ctx)

	caps, model, err := mode.Capabilities(a.Decision, cfg.Agents, a.Logger, a.Scrubber)
	if err != nil {
		return nil, err
	}
	a.Model = model

	a.Registry, err = registry.New(caps, agent.Mocks(cfg.Agents.Model))
	if err != nil {
		return nil, fmt.Errorf("failed to build agent registry: %w", err)
	}

	a.Store, err = store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open result store: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return a.Store.Close() })

	a.Publisher, err = newPublisher(cfg.Events)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return a.Publisher.Close() })

	a.Metrics = metrics.Default()

	orchOpts := []orchestrator.Option{
		orchestrator.WithLogger(a.Logger.Named("orchestrator")),
		orchestrator.WithPublisher(a.Publisher),
		orchestrator.WithMetrics(a.Metrics),
		orchestrator.WithTracer(a.Telemetry.Tracer(tracerName)),
		orchestrator.WithScrubber(a.Scrubber),
	}
	if opts.Progress != nil {
		orchOpts = append(orchOpts, orchestrator.WithProgress(opts.Progress))
	}
	a.Orchestrator, err = orchestrator.New(a.Registry, a.Decision, a.Store, cfg.Orchestrator, orchOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	a.Logger.Info(ctx, "seoflow initialized",
		zap.String("api_mode", string(a.Decision.Mode)),
		zap.String("mode_source", string(a.Decision.Source)),
		zap.String("provider", a.Model.Provider),
		zap.String("store", storeBackend(cfg.Store)),
		zap.Bool("events", cfg.Events.NATSURL != ""),
	)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newLogger(cfg *config.Config, tel *telemetry.Telemetry, stderr bool) (*logging.Logger, error) {
	logCfg, err := logging.FromObservability(cfg.Observability)
	if err != nil {
		return nil, err
	}
	logCfg.Output.Stderr = stderr
	if tel.LoggerProvider() == nil {
		logCfg.Output.OTEL = false
		logCfg.Output.Stdout = true
	}
	return logging.NewLogger(logCfg, tel.LoggerProvider())
}

func newPublisher(cfg config.EventsConfig) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		return events.Nop{}, nil
	}
	p, err := events.Connect(cfg.NATSURL, cfg.SubjectPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize event publisher: %w", err)
	}
	return p, nil
}

func storeBackend(cfg config.StoreConfig) string {
	if cfg.Backend == "" {
		return config.StoreBackendFile
	}
	return cfg.Backend
}
