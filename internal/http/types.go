package http

import (
	"github.com/fyrsmithlabs/seoflow/internal/mode"
	"github.com/fyrsmithlabs/seoflow/internal/store"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error    string `json:"error"`
	ResultID string `json:"result_id,omitempty"`
}

// StartRunRequest is the request body for POST /api/v1/runs. Steps is only
// read for the custom workflow.
type StartRunRequest struct {
	WorkflowType string            `json:"workflow_type" validate:"required,max=64"`
	Data         map[string]string `json:"data"`
	Steps        []string          `json:"steps,omitempty"`
}

// customStepsRequest holds the step checks applied when WorkflowType is custom.
type customStepsRequest struct {
	Steps []string `json:"steps" validate:"max=6,dive,required"`
}

// StartRunResponse is returned when a run completes and its result is saved.
type StartRunResponse struct {
	Success  bool   `json:"success"`
	ResultID string `json:"result_id"`
}

// WorkflowInfo describes one predefined workflow.
type WorkflowInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
}

// WorkflowsResponse is the response body for GET /api/v1/workflows.
type WorkflowsResponse struct {
	Workflows []WorkflowInfo `json:"workflows"`
}

// AgentInfo describes one agent.
type AgentInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AgentsResponse is the response body for GET /api/v1/agents.
type AgentsResponse struct {
	Agents []AgentInfo `json:"agents"`
}

// SystemResponse is the response body for GET /api/v1/system.
type SystemResponse struct {
	Mode        mode.Mode        `json:"api_mode"`
	Reason      string           `json:"api_mode_reason"`
	Source      mode.Source      `json:"source"`
	Provider    string           `json:"provider"`
	Model       string           `json:"model,omitempty"`
	Diagnostics mode.Diagnostics `json:"diagnostics"`
}

// ResultsResponse is the response body for GET /api/v1/results.
type ResultsResponse struct {
	Results []store.Summary `json:"results"`
}
