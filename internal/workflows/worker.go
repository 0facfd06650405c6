package workflows

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/fyrsmithlabs/seoflow/internal/config"
)

// DefaultTaskQueue is used when the configuration names none.
const DefaultTaskQueue = "seoflow-runs"

// Dial connects to the Temporal frontend named in cfg.
func Dial(cfg config.TemporalConfig) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to temporal at %s: %w", cfg.HostPort, err)
	}
	return c, nil
}

// NewWorker creates a worker on taskQueue with the run workflow and
// activities registered. The caller runs and stops it.
func NewWorker(c client.Client, taskQueue string, acts *Activities) worker.Worker {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	w := worker.New(c, taskQueue, worker.Options{})
	w.RegisterWorkflow(SEORunWorkflow)
	w.RegisterActivity(acts)
	return w
}

// StartRun starts a durable run and returns its handle without waiting.
func StartRun(ctx context.Context, c client.Client, cfg config.TemporalConfig, input RunInput) (client.WorkflowRun, error) {
	taskQueue := cfg.TaskQueue
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	if input.ActivityTimeout <= 0 {
		input.ActivityTimeout = cfg.ActivityTimeout
	}

	opts := client.StartWorkflowOptions{
		ID:        "seoflow-run-" + uuid.NewString(),
		TaskQueue: taskQueue,
	}
	run, err := c.ExecuteWorkflow(ctx, opts, SEORunWorkflow, input)
	if err != nil {
		return nil, fmt.Errorf("starting durable run: %w", err)
	}
	return run, nil
}
