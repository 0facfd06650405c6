package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/seoflow/internal/agent"
	"github.com/fyrsmithlabs/seoflow/internal/orchestrator"
)

const (
	toolListWorkflows = "list_workflows"
	toolListAgents    = "list_agents"
	toolRunWorkflow   = "run_workflow"
	toolGetResult     = "get_result"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolListWorkflows,
		Description: "List the predefined SEO workflows and the agents each one runs, in order",
	}, instrument(s, toolListWorkflows, s.listWorkflows))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolListAgents,
		Description: "List the SEO agents available for custom workflows",
	}, instrument(s, toolListAgents, s.listAgents))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolRunWorkflow,
		Description: "Run an SEO workflow to completion and save its result. Use workflow_type \"custom\" with steps to choose agents.",
	}, instrument(s, toolRunWorkflow, s.runWorkflow))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolGetResult,
		Description: "Fetch a saved workflow result by ID",
	}, instrument(s, toolGetResult, s.getResult))
}

// instrument wraps a tool handler with metrics and error scrubbing.
func instrument[In, Out any](s *Server, name string, h mcp.ToolHandlerFor[In, Out]) mcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, name)

		res, out, err := h(ctx, req, in)

		s.metrics.DecrementActive(ctx, name)
		s.metrics.RecordInvocation(ctx, name, time.Since(start), err)
		if err != nil {
			msg := s.scrubber.Scrub(err.Error()).Scrubbed
			s.logger.Warn(ctx, "mcp tool failed", zap.String("tool", name), zap.String("error", msg))
			var zero Out
			return nil, zero, errors.New(msg)
		}
		return res, out, nil
	}
}

// ===== CATALOG TOOLS =====

type listInput struct{}

type workflowInfo struct {
	Name        string   `json:"name" jsonschema:"Workflow type to pass to run_workflow"`
	Description string   `json:"description"`
	Steps       []string `json:"steps" jsonschema:"Agents in execution order"`
}

type listWorkflowsOutput struct {
	Workflows []workflowInfo `json:"workflows"`
}

type agentInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type listAgentsOutput struct {
	Agents []agentInfo `json:"agents"`
}

func (s *Server) listWorkflows(_ context.Context, _ *mcp.CallToolRequest, _ listInput) (*mcp.CallToolResult, listWorkflowsOutput, error) {
	workflows := s.runner.Registry().Workflows()
	out := listWorkflowsOutput{Workflows: make([]workflowInfo, 0, len(workflows))}
	for _, wf := range workflows {
		steps := make([]string, len(wf.Steps))
		for i, name := range wf.Steps {
			steps[i] = string(name)
		}
		out.Workflows = append(out.Workflows, workflowInfo{Name: wf.Name, Description: wf.Description, Steps: steps})
	}

	lines := make([]string, 0, len(out.Workflows))
	for _, wf := range out.Workflows {
		lines = append(lines, fmt.Sprintf("%s: %s", wf.Name, strings.Join(wf.Steps, " -> ")))
	}
	return textResult(strings.Join(lines, "\n")), out, nil
}

func (s *Server) listAgents(_ context.Context, _ *mcp.CallToolRequest, _ listInput) (*mcp.CallToolResult, listAgentsOutput, error) {
	names := agent.All()
	out := listAgentsOutput{Agents: make([]agentInfo, 0, len(names))}
	for _, name := range names {
		out.Agents = append(out.Agents, agentInfo{Name: string(name), Description: name.Description()})
	}
	return textResult(fmt.Sprintf("%d agents available", len(out.Agents))), out, nil
}

// ===== RUN TOOLS =====

type runWorkflowInput struct {
	WorkflowType string            `json:"workflow_type" jsonschema:"Predefined workflow name or custom"`
	Data         map[string]string `json:"data,omitempty" jsonschema:"Workflow input such as website_url, target_keywords, industry"`
	Steps        []string          `json:"steps,omitempty" jsonschema:"Agents to run in order; only used when workflow_type is custom"`
}

type runWorkflowOutput struct {
	RunID                     string   `json:"run_id"`
	ResultID                  string   `json:"result_id,omitempty" jsonschema:"ID for get_result; empty if nothing was saved"`
	Status                    string   `json:"status"`
	APIMode                   string   `json:"api_mode"`
	TotalStepsExecuted        int      `json:"total_steps_executed"`
	TotalExecutionTimeSeconds float64  `json:"total_execution_time_seconds"`
	OutputKeys                []string `json:"output_keys"`
}

func (s *Server) runWorkflow(ctx context.Context, _ *mcp.CallToolRequest, in runWorkflowInput) (*mcp.CallToolResult, runWorkflowOutput, error) {
	if strings.TrimSpace(in.WorkflowType) == "" {
		return nil, runWorkflowOutput{}, errors.New("workflow_type is required")
	}

	input := make(map[string]any, len(in.Data))
	for k, v := range in.Data {
		input[k] = v
	}

	run, err := s.runner.Run(ctx, orchestrator.Request{
		WorkflowType: in.WorkflowType,
		Input:        input,
		Steps:        in.Steps,
	})
	if err != nil {
		var runErr *orchestrator.RunError
		if errors.As(err, &runErr) && runErr.PartialResultID != "" {
			return nil, runWorkflowOutput{}, fmt.Errorf("%s (partial result %s)", runErr.Error(), runErr.PartialResultID)
		}
		if errors.As(err, &runErr) {
			return nil, runWorkflowOutput{}, errors.New(runErr.Error())
		}
		return nil, runWorkflowOutput{}, err
	}

	res := run.Result
	out := runWorkflowOutput{
		RunID:                     run.ID,
		ResultID:                  run.ResultID,
		Status:                    string(run.State),
		APIMode:                   res.APIMode,
		TotalStepsExecuted:        res.Summary.TotalStepsExecuted,
		TotalExecutionTimeSeconds: res.Summary.TotalExecutionTimeSeconds,
		OutputKeys:                res.OutputKeys(),
	}
	return textResult(fmt.Sprintf("Workflow %s %s in %s mode: %d steps, result %s",
		res.WorkflowType, out.Status, out.APIMode, out.TotalStepsExecuted, out.ResultID)), out, nil
}

// ===== RESULT TOOLS =====

type getResultInput struct {
	ResultID string `json:"result_id" jsonschema:"Result ID returned by run_workflow"`
}

type getResultOutput struct {
	ResultID     string         `json:"result_id"`
	WorkflowType string         `json:"workflow_type"`
	Status       string         `json:"status"`
	Result       map[string]any `json:"result"`
}

func (s *Server) getResult(ctx context.Context, _ *mcp.CallToolRequest, in getResultInput) (*mcp.CallToolResult, getResultOutput, error) {
	rec, err := s.results.Get(ctx, strings.TrimSpace(in.ResultID))
	if err != nil {
		return nil, getResultOutput{}, fmt.Errorf("get result: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(rec.Payload, &doc); err != nil {
		return nil, getResultOutput{}, fmt.Errorf("decode result %s: %w", rec.ID, err)
	}
	return textResult(string(rec.Payload)), getResultOutput{
		ResultID:     rec.ID,
		WorkflowType: rec.WorkflowType,
		Status:       rec.Status,
		Result:       doc,
	}, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
