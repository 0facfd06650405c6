package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/seoflow/internal/agent"
	"github.com/fyrsmithlabs/seoflow/internal/config"
	"github.com/fyrsmithlabs/seoflow/internal/events"
	"github.com/fyrsmithlabs/seoflow/internal/logging"
	"github.com/fyrsmithlabs/seoflow/internal/metrics"
	"github.com/fyrsmithlabs/seoflow/internal/mode"
	"github.com/fyrsmithlabs/seoflow/internal/registry"
	"github.com/fyrsmithlabs/seoflow/internal/secrets"
	"github.com/fyrsmithlabs/seoflow/internal/store"
)

const instrumentationName = "github.com/fyrsmithlabs/seoflow/internal/orchestrator"

// maxErrorLen bounds error text copied into logs and results.
const maxErrorLen = 300

// Orchestrator runs workflows. It holds only read-only shared state and is
// safe for concurrent use; every Run owns its own context and log.
type Orchestrator struct {
	registry    *registry.Registry
	decision    mode.Decision
	store       store.Store
	policy      string
	stepTimeout time.Duration

	publisher events.Publisher
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	logger    *logging.Logger
	scrubber  secrets.Scrubber
	progress  ProgressCallback
	newID     func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPublisher sets the lifecycle event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithScrubber sets the scrubber applied to error text.
func WithScrubber(s secrets.Scrubber) Option {
	return func(o *Orchestrator) { o.scrubber = s }
}

// WithProgress registers a callback invoked after every step.
func WithProgress(cb ProgressCallback) Option {
	return func(o *Orchestrator) { o.progress = cb }
}

// New creates an orchestrator bound to a registry, mode decision and store.
func New(reg *registry.Registry, decision mode.Decision, st store.Store, cfg config.OrchestratorConfig, opts ...Option) (*Orchestrator, error) {
	if reg == nil {
		return nil, errors.New("registry is required")
	}
	if st == nil {
		return nil, errors.New("result store is required")
	}

	o := &Orchestrator{
		registry:    reg,
		decision:    decision,
		store:       st,
		policy:      cfg.FailurePolicy,
		stepTimeout: cfg.StepTimeout,
		publisher:   events.Nop{},
		tracer:      otel.Tracer(instrumentationName),
		logger:      logging.NewNop(),
		scrubber:    secrets.NoopScrubber{},
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}

	switch o.policy {
	case "":
		o.policy = config.FailurePolicyAbort
	case config.FailurePolicyAbort, config.FailurePolicyContinue, config.FailurePolicyFallbackMock:
	default:
		return nil, fmt.Errorf("unknown failure policy %q", o.policy)
	}
	if o.stepTimeout <= 0 {
		o.stepTimeout = 2 * time.Minute
	}
	return o, nil
}

// Registry returns the registry the orchestrator resolves workflows with.
func (o *Orchestrator) Registry() *registry.Registry { return o.registry }

// Decision returns the execution mode decision.
func (o *Orchestrator) Decision() mode.Decision { return o.decision }

// Run executes one workflow. Resolution and input errors are returned
// before any step runs and nothing is persisted. A run that does not
// complete returns its Run together with a *RunError.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Run, error) {
	wf, err := o.registry.Resolve(req.WorkflowType, req.Steps)
	if err != nil {
		return nil, err
	}
	if err := validateInput(req.Input); err != nil {
		return nil, err
	}

	r := &runner{
		o:     o,
		wf:    wf,
		id:    o.newID(),
		input: copyInput(req.Input),
		state: StatePending,
	}
	return r.execute(ctx)
}

// runner holds the mutable state of a single run.
type runner struct {
	o     *Orchestrator
	wf    registry.Workflow
	id    string
	input map[string]any
	state RunState

	ec         *ExecutionContext
	log        []LogEntry
	outputs    map[agent.Name]*agent.StepOutput
	failedStep agent.Name
	cause      error
}

func (r *runner) execute(ctx context.Context) (*Run, error) {
	o := r.o
	started := time.Now()

	ctx = logging.WithRun(ctx, r.id, r.wf.Name)
	ctx, span := o.tracer.Start(ctx, "seoflow.run",
		trace.WithAttributes(
			attribute.String("run.id", r.id),
			attribute.String("workflow.type", r.wf.Name),
			attribute.Int("workflow.steps", len(r.wf.Steps)),
			attribute.String("api.mode", string(o.decision.Mode)),
		),
	)
	defer span.End()

	r.ec = NewExecutionContext(r.input)
	r.outputs = make(map[agent.Name]*agent.StepOutput, len(r.wf.Steps))
	r.state = StateRunning
	o.metrics.RunStarted()
	o.logger.Info(ctx, "workflow run started",
		zap.Int("steps", len(r.wf.Steps)),
		zap.String("api_mode", string(o.decision.Mode)),
	)
	o.publish(ctx, events.Event{Type: events.RunStarted, RunID: r.id, WorkflowType: r.wf.Name, Mode: string(o.decision.Mode)})

	for i, name := range r.wf.Steps {
		if err := ctx.Err(); err != nil {
			r.state = StateCancelled
			r.cause = err
			r.failedStep = name
			break
		}
		if !r.step(ctx, i, name) {
			r.state = StateFailed
			break
		}
	}
	if !r.state.Terminal() {
		r.state = StateCompleted
	}

	result := r.result()
	run := &Run{ID: r.id, State: r.state, Result: result}

	var saveErr error
	if r.state == StateCompleted || len(r.outputs) > 0 {
		if saveErr = o.save(ctx, result); saveErr == nil {
			run.ResultID = r.id
		}
	}

	elapsed := time.Since(started)
	o.metrics.RunFinished(r.wf.Name, string(r.state), elapsed)
	o.publish(ctx, events.Event{
		Type:         terminalEvent(r.state),
		RunID:        r.id,
		WorkflowType: r.wf.Name,
		Agent:        string(r.failedStep),
		ResultID:     run.ResultID,
		Error:        result.Error,
	})

	fields := []zap.Field{
		zap.String("state", string(r.state)),
		zap.Duration("duration", elapsed),
		zap.Int("steps_executed", len(r.log)),
	}
	if r.state == StateCompleted {
		span.SetStatus(codes.Ok, "")
		o.logger.Info(ctx, "workflow run completed", fields...)
	} else {
		span.SetStatus(codes.Error, string(r.state))
		o.logger.Warn(ctx, "workflow run did not complete",
			append(fields, zap.String("agent", string(r.failedStep)), zap.String("error", o.scrub(r.cause)))...)
	}

	if saveErr != nil {
		o.logger.Error(ctx, "saving result failed", zap.Error(saveErr))
		if r.state == StateCompleted {
			return run, fmt.Errorf("saving result: %w", saveErr)
		}
	}
	if r.state != StateCompleted {
		return run, &RunError{
			RunID:           r.id,
			State:           r.state,
			Agent:           r.failedStep,
			PartialResultID: run.ResultID,
			Err:             r.cause,
		}
	}
	return run, nil
}

// step runs one agent and applies the failure policy. It reports whether
// the run should continue.
func (r *runner) step(ctx context.Context, index int, name agent.Name) bool {
	o := r.o
	entry := LogEntry{
		Timestamp:     time.Now().UTC(),
		Agent:         name,
		InputDataKeys: r.ec.Keys(),
	}
	o.logger.Debug(ctx, "step input sources",
		zap.String("agent", string(name)),
		zap.Any("sources", r.ec.Sources()),
	)
	start := time.Now()

	out, err := o.invoke(ctx, name, r.ec, false)
	switch {
	case err == nil:
		entry.Status = StepCompleted
	case o.policy == config.FailurePolicyContinue:
		entry.Status = StepDegraded
		entry.Error = o.scrub(err)
		out = &agent.StepOutput{
			Analysis:        entry.Error,
			Recommendations: []string{},
			Data:            map[string]any{"error_kind": errorKind(err)},
		}
	case o.policy == config.FailurePolicyFallbackMock:
		entry.Error = o.scrub(err)
		fbOut, fbErr := o.invoke(ctx, name, r.ec, true)
		if fbErr != nil {
			entry.Status = StepFailed
			err = fmt.Errorf("fallback failed: %w (after %v)", fbErr, err)
			out = nil
		} else {
			entry.Status = StepFallback
			out = fbOut
		}
	default:
		entry.Status = StepFailed
		entry.Error = o.scrub(err)
	}

	elapsed := time.Since(start)
	entry.ExecutionTimeSeconds = elapsed.Seconds()
	if entry.Status == StepFailed {
		entry.OutputDataKeys = []string{}
		r.failedStep = name
		r.cause = err
	} else {
		entry.OutputDataKeys = agent.OutputKeys()
		r.ec.mergeStep(name, out)
		r.outputs[name] = out
	}
	r.log = append(r.log, entry)

	o.metrics.StepFinished(string(name), string(entry.Status), elapsed)
	o.publish(ctx, events.Event{
		Type:         events.StepFinished,
		RunID:        r.id,
		WorkflowType: r.wf.Name,
		Agent:        string(name),
		StepIndex:    index + 1,
		StepStatus:   string(entry.Status),
		Error:        entry.Error,
	})
	if o.progress != nil {
		o.progress(Progress{RunID: r.id, Index: index + 1, Total: len(r.wf.Steps), Agent: name, Status: entry.Status})
	}

	logFields := []zap.Field{
		zap.String("agent", string(name)),
		zap.Int("step", index+1),
		zap.String("status", string(entry.Status)),
		zap.Float64("execution_time_seconds", entry.ExecutionTimeSeconds),
	}
	if entry.Error != "" {
		o.logger.Warn(ctx, "workflow step did not complete normally", append(logFields, zap.String("error", entry.Error))...)
	} else {
		o.logger.Debug(ctx, "workflow step completed", logFields...)
	}

	return entry.Status != StepFailed
}

// invoke runs the agent (or its fallback) with a step context that ignores
// caller cancellation but carries the step timeout.
func (o *Orchestrator) invoke(ctx context.Context, name agent.Name, in agent.Context, fallback bool) (*agent.StepOutput, error) {
	var (
		capability agent.Capability
		err        error
	)
	if fallback {
		var ok bool
		if capability, ok = o.registry.Fallback(name); !ok {
			return nil, fmt.Errorf("no fallback capability for %s", name)
		}
	} else if capability, err = o.registry.Capability(name); err != nil {
		return nil, err
	}

	stepCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.stepTimeout)
	defer cancel()

	stepCtx, span := o.tracer.Start(stepCtx, "seoflow.step",
		trace.WithAttributes(
			attribute.String("agent", string(name)),
			attribute.Bool("fallback", fallback),
		),
	)
	defer span.End()

	out, err := capability.Execute(stepCtx, in)
	if err == nil && out == nil {
		err = &agent.MalformedResponseError{AgentName: name, Reason: "capability returned no output"}
	}
	if err != nil {
		if _, ok := agent.AsExecutionError(err); !ok {
			if stepCtx.Err() != nil {
				err = &agent.TransportError{AgentName: name, Err: fmt.Errorf("step timed out after %s: %w", o.stepTimeout, err)}
			} else {
				err = &agent.TransportError{AgentName: name, Err: err}
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, errorKind(err))
		return nil, err
	}

	out.Normalize()
	return out, nil
}

func (r *runner) result() *Result {
	res := &Result{
		RunID:               r.id,
		Status:              r.state,
		WorkflowType:        r.wf.Name,
		WorkflowDescription: r.wf.Description,
		APIMode:             string(r.o.decision.Mode),
		APIModeReason:       r.o.decision.Reason,
		Input:               r.input,
		Outputs:             r.outputs,
		Summary:             Summarize(r.log),
	}
	switch r.state {
	case StateFailed:
		res.Error = fmt.Sprintf("workflow step %s failed", r.failedStep)
	case StateCancelled:
		res.Error = fmt.Sprintf("workflow run cancelled before step %s", r.failedStep)
	}
	return res
}

func (o *Orchestrator) save(ctx context.Context, res *Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return o.store.Save(context.WithoutCancel(ctx), &store.Record{
		ID:           res.RunID,
		WorkflowType: res.WorkflowType,
		Status:       string(res.Status),
		Steps:        res.Summary.TotalStepsExecuted,
		CreatedAt:    time.Now().UTC(),
		Payload:      payload,
	})
}

func (o *Orchestrator) publish(ctx context.Context, ev events.Event) {
	if err := o.publisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		o.logger.Warn(ctx, "publishing run event failed",
			zap.String("event", string(ev.Type)),
			zap.Error(err),
		)
	}
}

// scrub renders err as a short message with credentials removed.
func (o *Orchestrator) scrub(err error) string {
	if err == nil {
		return ""
	}
	msg := o.scrubber.Scrub(err.Error()).Scrubbed
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen] + "..."
	}
	return msg
}

func errorKind(err error) string {
	if ee, ok := agent.AsExecutionError(err); ok {
		return ee.Kind()
	}
	return "unknown"
}

func terminalEvent(s RunState) events.Type {
	switch s {
	case StateCompleted:
		return events.RunCompleted
	case StateCancelled:
		return events.RunCancelled
	default:
		return events.RunFailed
	}
}

func copyInput(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
