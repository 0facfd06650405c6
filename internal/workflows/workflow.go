// Package workflows runs SEO workflows durably on Temporal.
//
// A durable run is a single Temporal workflow wrapping one activity that
// drives the orchestrator to completion. The activity is never retried: a
// run calls paid model APIs and persists a result, so a second attempt
// would duplicate both.
package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// DefaultActivityTimeout bounds a run when RunInput carries no timeout.
const DefaultActivityTimeout = 30 * time.Minute

// RunInput starts a durable run.
type RunInput struct {
	WorkflowType string            `json:"workflow_type"`
	Data         map[string]string `json:"data,omitempty"`
	Steps        []string          `json:"steps,omitempty"`

	// ActivityTimeout is the start-to-close timeout of the run activity.
	ActivityTimeout time.Duration `json:"activity_timeout,omitempty"`
}

// RunOutput describes a finished durable run. Failed and cancelled runs
// complete the workflow with Status and Error set; ResultID then points at
// the partial result, if one was saved.
type RunOutput struct {
	RunID                     string   `json:"run_id"`
	ResultID                  string   `json:"result_id,omitempty"`
	Status                    string   `json:"status"`
	APIMode                   string   `json:"api_mode,omitempty"`
	TotalStepsExecuted        int      `json:"total_steps_executed"`
	TotalExecutionTimeSeconds float64  `json:"total_execution_time_seconds"`
	OutputKeys                []string `json:"output_keys,omitempty"`
	Error                     string   `json:"error,omitempty"`
}

// SEORunWorkflow executes one SEO workflow run as a single activity.
func SEORunWorkflow(ctx workflow.Context, input RunInput) (*RunOutput, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting SEO run", "workflow_type", input.WorkflowType, "steps", len(input.Steps))

	timeout := input.ActivityTimeout
	if timeout <= 0 {
		timeout = DefaultActivityTimeout
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	var a *Activities
	var out RunOutput
	if err := workflow.ExecuteActivity(ctx, a.ExecuteRun, input).Get(ctx, &out); err != nil {
		logger.Error("SEO run activity failed", "error", err)
		return nil, err
	}

	logger.Info("SEO run finished",
		"run_id", out.RunID,
		"status", out.Status,
		"result_id", out.ResultID,
	)
	return &out, nil
}
