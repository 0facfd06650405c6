package orchestrator

import (
	"time"

	"github.com/fyrsmithlabs/seoflow/internal/agent"
)

// RunState is the lifecycle state of a run.
type RunState string

const (
	StatePending   RunState = "pending"
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateFailed    RunState = "failed"
	StateCancelled RunState = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s RunState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// StepStatus describes how a step's output was obtained.
type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepDegraded  StepStatus = "degraded"
	StepFallback  StepStatus = "fallback"
	StepFailed    StepStatus = "failed"
)

// Request starts a run. Steps are read only for the custom workflow type.
type Request struct {
	WorkflowType string         `json:"workflow_type"`
	Input        map[string]any `json:"data"`
	Steps        []string       `json:"steps,omitempty"`
}

// LogEntry records one executed step.
type LogEntry struct {
	Timestamp            time.Time  `json:"timestamp"`
	Agent                agent.Name `json:"agent"`
	ExecutionTimeSeconds float64    `json:"execution_time_seconds"`
	InputDataKeys        []string   `json:"input_data_keys"`
	OutputDataKeys       []string   `json:"output_data_keys"`
	Status               StepStatus `json:"status"`
	Error                string     `json:"error,omitempty"`
}

// ExecutionSummary aggregates the execution log.
type ExecutionSummary struct {
	TotalStepsExecuted        int        `json:"total_steps_executed"`
	TotalExecutionTimeSeconds float64    `json:"total_execution_time_seconds"`
	AverageStepTimeSeconds    float64    `json:"average_step_time_seconds"`
	ExecutionLog              []LogEntry `json:"execution_log"`
}

// Summarize derives an ExecutionSummary from log.
func Summarize(log []LogEntry) ExecutionSummary {
	s := ExecutionSummary{
		TotalStepsExecuted: len(log),
		ExecutionLog:       append([]LogEntry{}, log...),
	}
	for _, e := range log {
		s.TotalExecutionTimeSeconds += e.ExecutionTimeSeconds
	}
	if s.TotalStepsExecuted > 0 {
		s.AverageStepTimeSeconds = s.TotalExecutionTimeSeconds / float64(s.TotalStepsExecuted)
	}
	return s
}

// Run is the handle returned to callers.
type Run struct {
	ID     string
	State  RunState
	Result *Result
	// ResultID is set once the result has been persisted.
	ResultID string
}

// Progress is reported after every step.
type Progress struct {
	RunID  string
	Index  int
	Total  int
	Agent  agent.Name
	Status StepStatus
}

// ProgressCallback receives progress updates during execution.
type ProgressCallback func(p Progress)
