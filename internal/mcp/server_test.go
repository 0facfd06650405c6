package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/seoflow/internal/agent"
	"github.com/fyrsmithlabs/seoflow/internal/config"
	"github.com/fyrsmithlabs/seoflow/internal/mode"
	"github.com/fyrsmithlabs/seoflow/internal/orchestrator"
	"github.com/fyrsmithlabs/seoflow/internal/registry"
	"github.com/fyrsmithlabs/seoflow/internal/secrets"
	"github.com/fyrsmithlabs/seoflow/internal/store"
)

type failingCapability struct {
	name agent.Name
	err  error
}

func (f failingCapability) Name() agent.Name { return f.name }

func (f failingCapability) Execute(context.Context, agent.Context) (*agent.StepOutput, error) {
	return nil, f.err
}

func newTestServer(t *testing.T, overrides ...agent.Capability) *Server {
	t.Helper()

	caps := agent.Mocks("m")
	for _, c := range overrides {
		caps[c.Name()] = c
	}
	reg, err := registry.New(caps, nil)
	require.NoError(t, err)

	results, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	orch, err := orchestrator.New(reg, mode.Decision{Mode: mode.Mock, Reason: "forced"}, results,
		config.OrchestratorConfig{StepTimeout: time.Second})
	require.NoError(t, err)

	s, err := NewServer(nil, orch, results, secrets.MustNew(nil))
	require.NoError(t, err)
	return s
}

func TestNewServer(t *testing.T) {
	s := newTestServer(t)

	_, err := NewServer(nil, nil, s.results, s.scrubber)
	assert.Error(t, err)
	_, err = NewServer(nil, s.runner, nil, s.scrubber)
	assert.Error(t, err)
	_, err = NewServer(nil, s.runner, s.results, nil)
	assert.Error(t, err)
}

func TestListTools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, workflows, err := s.listWorkflows(ctx, nil, listInput{})
	require.NoError(t, err)
	require.Len(t, workflows.Workflows, 4)
	assert.Equal(t, "full_seo_analysis", workflows.Workflows[2].Name)
	assert.Len(t, workflows.Workflows[2].Steps, 4)

	_, agents, err := s.listAgents(ctx, nil, listInput{})
	require.NoError(t, err)
	assert.Len(t, agents.Agents, len(agent.All()))
}

func TestRunWorkflowAndGetResult(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, out, err := s.runWorkflow(ctx, nil, runWorkflowInput{
		WorkflowType: "content_creation",
		Data:         map[string]string{"website_url": "https://example.com"},
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "completed", out.Status)
	assert.Equal(t, "mock", out.APIMode)
	assert.Equal(t, 3, out.TotalStepsExecuted)
	assert.Equal(t, []string{"output_keyword_research", "output_content_brief", "output_content_writer"}, out.OutputKeys)
	require.NotEmpty(t, out.ResultID)

	_, got, err := s.getResult(ctx, nil, getResultInput{ResultID: out.ResultID})
	require.NoError(t, err)
	assert.Equal(t, "content_creation", got.WorkflowType)
	assert.Equal(t, "https://example.com", got.Result["website_url"])
	assert.Contains(t, got.Result, "execution_summary")
}

func TestRunWorkflow_Errors(t *testing.T) {
	s := newTestServer(t, failingCapability{
		name: agent.SEOStrategy,
		err:  &agent.TransportError{AgentName: agent.SEOStrategy, Err: errors.New("401 invalid x-api-key sk-ant-REDACTED")},
	})
	ctx := context.Background()

	_, _, err := s.runWorkflow(ctx, nil, runWorkflowInput{})
	assert.EqualError(t, err, "workflow_type is required")

	_, _, err = s.runWorkflow(ctx, nil, runWorkflowInput{WorkflowType: registry.Custom, Steps: []string{"link_building"}})
	var ua *registry.UnknownAgentError
	assert.ErrorAs(t, err, &ua)

	_, _, err = s.runWorkflow(ctx, nil, runWorkflowInput{WorkflowType: "technical_audit"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow step seo_strategy failed (partial result ")
	assert.NotContains(t, err.Error(), "sk-ant")

	_, _, err = s.getResult(ctx, nil, getResultInput{ResultID: "not-a-uuid"})
	assert.ErrorIs(t, err, store.ErrInvalidID)
}

func TestServer_InMemorySession(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := s.Connect(ctx, serverTransport)
	require.NoError(t, err)
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer cs.Close()

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{toolListWorkflows, toolListAgents, toolRunWorkflow, toolGetResult}, names)

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name: toolRunWorkflow,
		Arguments: map[string]any{
			"workflow_type": "custom",
			"steps":         []string{"technical_seo"},
			"data":          map[string]string{"website_url": "https://example.com"},
		},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	structured, ok := res.StructuredContent.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "completed", structured["status"])

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolGetResult,
		Arguments: map[string]any{"result_id": "6f1c2b3a-4d5e-4f60-8a9b-0c1d2e3f4a5b"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
