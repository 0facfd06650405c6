package orchestrator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/seoflow/internal/agent"
)

func TestExecutionContext_LatestWins(t *testing.T) {
	input := map[string]any{"website_url": "https://example.com", "industry": "retail"}
	ec := NewExecutionContext(input)
	input["industry"] = "mutated"

	v, ok := ec.Get("industry")
	require.True(t, ok)
	assert.Equal(t, "retail", v)

	ec.mergeStep(agent.KeywordResearch, &agent.StepOutput{Analysis: "first", Recommendations: []string{"a"}, Data: map[string]any{}})
	ec.mergeStep(agent.ContentBrief, &agent.StepOutput{Analysis: "second", Recommendations: []string{}, Data: map[string]any{}})

	v, _ = ec.Get("analysis")
	assert.Equal(t, "second", v)
	src, ok := ec.Provenance("analysis")
	require.True(t, ok)
	assert.Equal(t, "content_brief", src)

	src, _ = ec.Provenance("website_url")
	assert.Equal(t, SourceInput, src)

	nested, ok := ec.Get("output_keyword_research")
	require.True(t, ok)
	assert.Equal(t, "first", nested.(map[string]any)["analysis"])

	_, ok = ec.Get("missing")
	assert.False(t, ok)
	_, ok = ec.Provenance("missing")
	assert.False(t, ok)

	keys := ec.Keys()
	assert.Contains(t, keys, "website_url")
	assert.Contains(t, keys, "output_keyword_research")
	assert.Contains(t, keys, "output_content_brief")
	assert.IsIncreasing(t, keys)

	records := ec.Records()
	require.Len(t, records, 3)
	records[0].Source = "tampered"
	assert.Equal(t, SourceInput, ec.Records()[0].Source)
}

func TestSummarize(t *testing.T) {
	empty := Summarize(nil)
	assert.Zero(t, empty.TotalStepsExecuted)
	assert.Zero(t, empty.AverageStepTimeSeconds)
	assert.NotNil(t, empty.ExecutionLog)

	s := Summarize([]LogEntry{
		{Agent: agent.TechnicalSEO, ExecutionTimeSeconds: 1.5},
		{Agent: agent.SEOStrategy, ExecutionTimeSeconds: 0.5},
	})
	assert.Equal(t, 2, s.TotalStepsExecuted)
	assert.InDelta(t, 2.0, s.TotalExecutionTimeSeconds, 1e-9)
	assert.InDelta(t, 1.0, s.AverageStepTimeSeconds, 1e-9)
}

func TestResult_JSONRoundTrip(t *testing.T) {
	res := &Result{
		RunID:               "2b1c9a4e-1f0e-4d6b-9b1d-2f3c4d5e6f70",
		Status:              StateFailed,
		WorkflowType:        "technical_audit",
		WorkflowDescription: "Technical SEO audit",
		APIMode:             "mock",
		APIModeReason:       "No API key available",
		Error:               "workflow step seo_strategy failed",
		Input:               map[string]any{"website_url": "https://example.com"},
		Outputs: map[agent.Name]*agent.StepOutput{
			agent.TechnicalSEO: {Analysis: "ok", Recommendations: []string{"fix robots.txt"}, Data: map[string]any{"score": float64(72)}},
		},
		Summary: Summarize([]LogEntry{
			{Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), Agent: agent.TechnicalSEO, Status: StepCompleted, InputDataKeys: []string{"website_url"}, OutputDataKeys: agent.OutputKeys()},
			{Timestamp: time.Date(2026, 1, 2, 3, 4, 6, 0, time.UTC), Agent: agent.SEOStrategy, Status: StepFailed, Error: "boom", InputDataKeys: []string{"website_url"}, OutputDataKeys: []string{}},
		}),
	}

	payload, err := json.Marshal(res)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(payload, &flat))
	assert.Contains(t, flat, "output_technical_seo")
	assert.NotContains(t, flat, "output_seo_strategy")
	assert.Equal(t, "workflow step seo_strategy failed", flat["error"])

	var back Result
	require.NoError(t, json.Unmarshal(payload, &back))
	assert.Equal(t, res.RunID, back.RunID)
	assert.Equal(t, StateFailed, back.Status)
	assert.Equal(t, res.Error, back.Error)
	assert.Equal(t, res.Input, back.Input)
	assert.Equal(t, res.Outputs[agent.TechnicalSEO].Recommendations, back.Outputs[agent.TechnicalSEO].Recommendations)
	assert.Equal(t, res.Summary.TotalStepsExecuted, back.Summary.TotalStepsExecuted)
	assert.Equal(t, []string{"output_technical_seo"}, back.OutputKeys())
}

func TestResult_UnmarshalRejectsBadSummary(t *testing.T) {
	var r Result
	err := json.Unmarshal([]byte(`{"run_id":"x","execution_summary":"nope"}`), &r)
	assert.Error(t, err)
}

func TestRunError_Messages(t *testing.T) {
	assert.Equal(t, "workflow run cancelled", (&RunError{State: StateCancelled, Agent: agent.SEOStrategy}).Error())
	assert.Equal(t, "workflow step seo_strategy failed", (&RunError{State: StateFailed, Agent: agent.SEOStrategy}).Error())
	assert.Equal(t, "workflow run failed", (&RunError{State: StateFailed}).Error())
}

func TestRunState_Terminal(t *testing.T) {
	assert.False(t, StatePending.Terminal())
	assert.False(t, StateRunning.Terminal())
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateCancelled.Terminal())
}
