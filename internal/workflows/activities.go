package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/seoflow/internal/logging"
	"github.com/fyrsmithlabs/seoflow/internal/orchestrator"
)

// Error types reported to Temporal for runs that must not be retried.
const (
	ErrTypeInvalidRequest = "InvalidRequest"
	ErrTypeRunInfra       = "RunInfrastructure"
)

// Runner executes workflow runs.
type Runner interface {
	Run(ctx context.Context, req orchestrator.Request) (*orchestrator.Run, error)
}

// Activities holds the dependencies of the run activity.
type Activities struct {
	runner  Runner
	logger  *logging.Logger
	metrics *Metrics
}

// NewActivities creates Activities backed by runner.
func NewActivities(runner Runner, logger *logging.Logger, metrics *Metrics) (*Activities, error) {
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(logger)
	}
	return &Activities{runner: runner, logger: logger, metrics: metrics}, nil
}

// ExecuteRun drives one run to a terminal state. Runs that fail or are
// cancelled return an output describing the failure; only requests that
// never started a run, or runs whose result could not be saved, return an
// error.
func (a *Activities) ExecuteRun(ctx context.Context, input RunInput) (*RunOutput, error) {
	info := activity.GetInfo(ctx)
	start := time.Now()
	a.logger.Info(ctx, "durable run started",
		zap.String("temporal.workflow_id", info.WorkflowExecution.ID),
		zap.String("workflow.type", input.WorkflowType),
	)

	data := make(map[string]any, len(input.Data))
	for k, v := range input.Data {
		data[k] = v
	}

	run, err := a.runner.Run(ctx, orchestrator.Request{
		WorkflowType: input.WorkflowType,
		Input:        data,
		Steps:        input.Steps,
	})

	out, err := a.output(run, err)
	status := "error"
	if out != nil {
		status = out.Status
	}
	a.metrics.RecordRun(ctx, input.WorkflowType, status, time.Since(start))
	if err != nil {
		a.logger.Warn(ctx, "durable run rejected",
			zap.String("temporal.workflow_id", info.WorkflowExecution.ID),
			zap.Error(err),
		)
		return nil, err
	}

	a.logger.Info(ctx, "durable run finished",
		zap.String("temporal.workflow_id", info.WorkflowExecution.ID),
		zap.String("run.id", out.RunID),
		zap.String("status", out.Status),
	)
	return out, nil
}

func (a *Activities) output(run *orchestrator.Run, err error) (*RunOutput, error) {
	if err == nil {
		res := run.Result
		return &RunOutput{
			RunID:                     run.ID,
			ResultID:                  run.ResultID,
			Status:                    string(run.State),
			APIMode:                   res.APIMode,
			TotalStepsExecuted:        res.Summary.TotalStepsExecuted,
			TotalExecutionTimeSeconds: res.Summary.TotalExecutionTimeSeconds,
			OutputKeys:                res.OutputKeys(),
		}, nil
	}

	var runErr *orchestrator.RunError
	if errors.As(err, &runErr) {
		out := &RunOutput{
			RunID:    runErr.RunID,
			ResultID: runErr.PartialResultID,
			Status:   string(runErr.State),
			Error:    runErr.Error(),
		}
		if run != nil && run.Result != nil {
			out.APIMode = run.Result.APIMode
			out.TotalStepsExecuted = run.Result.Summary.TotalStepsExecuted
			out.TotalExecutionTimeSeconds = run.Result.Summary.TotalExecutionTimeSeconds
			out.OutputKeys = run.Result.OutputKeys()
		}
		return out, nil
	}

	if isRequestError(err) {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidRequest, err)
	}
	return nil, temporal.NewNonRetryableApplicationError(fmt.Sprintf("run failed: %v", err), ErrTypeRunInfra, err)
}
