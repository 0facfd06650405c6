package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/seoflow/internal/agent"
)

func newMockRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := New(agent.Mocks("test-model"), nil)
	require.NoError(t, err)
	return r
}

func TestNew_RequiresEveryAgent(t *testing.T) {
	caps := agent.Mocks("m")
	delete(caps, agent.ContentWriter)

	_, err := New(caps, nil)
	assert.ErrorIs(t, err, ErrMissingAgent)
}

func TestNew_RejectsUnknownAgent(t *testing.T) {
	caps := agent.Mocks("m")
	caps[agent.Name("link_building")] = agent.NewMock(agent.KeywordResearch, "m")

	_, err := New(caps, nil)
	var ua *UnknownAgentError
	require.ErrorAs(t, err, &ua)
	assert.Equal(t, "link_building", ua.Name)
}

func TestResolve_Predefined(t *testing.T) {
	r := newMockRegistry(t)

	tests := []struct {
		name  string
		steps []agent.Name
	}{
		{"content_strategy", []agent.Name{agent.KeywordResearch, agent.ContentGapAnalysis, agent.SEOStrategy}},
		{"content_creation", []agent.Name{agent.KeywordResearch, agent.ContentBrief, agent.ContentWriter}},
		{"technical_audit", []agent.Name{agent.TechnicalSEO, agent.SEOStrategy}},
		{"full_seo_analysis", []agent.Name{agent.KeywordResearch, agent.ContentGapAnalysis, agent.TechnicalSEO, agent.SEOStrategy}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := r.Resolve(tt.name, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.name, w.Name)
			assert.Equal(t, tt.steps, w.Steps)
			assert.NotEmpty(t, w.Description)
		})
	}
}

func TestResolve_PredefinedIgnoresSteps(t *testing.T) {
	r := newMockRegistry(t)
	w, err := r.Resolve("technical_audit", []string{"content_writer"})
	require.NoError(t, err)
	assert.Equal(t, []agent.Name{agent.TechnicalSEO, agent.SEOStrategy}, w.Steps)
}

func TestResolve_UnknownWorkflow(t *testing.T) {
	r := newMockRegistry(t)
	_, err := r.Resolve("link_audit", nil)
	var uw *UnknownWorkflowError
	require.ErrorAs(t, err, &uw)
	assert.Equal(t, "link_audit", uw.Name)
}

func TestResolve_Custom(t *testing.T) {
	r := newMockRegistry(t)

	w, err := r.Resolve(Custom, []string{"technical_seo", " content_brief "})
	require.NoError(t, err)
	assert.Equal(t, Custom, w.Name)
	assert.Equal(t, "Custom workflow with user-selected steps", w.Description)
	assert.Equal(t, []agent.Name{agent.TechnicalSEO, agent.ContentBrief}, w.Steps)
}

func TestValidateSteps(t *testing.T) {
	tests := []struct {
		name    string
		steps   []string
		wantErr error
		unknown string
	}{
		{name: "empty", steps: nil, wantErr: ErrEmptyWorkflow},
		{name: "duplicate", steps: []string{"seo_strategy", "seo_strategy"}, wantErr: ErrDuplicateStep},
		{name: "unknown after valid", steps: []string{"keyword_research", "link_building"}, unknown: "link_building"},
		{name: "valid", steps: []string{"keyword_research", "seo_strategy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names, err := ValidateSteps(tt.steps)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, names)
			case tt.unknown != "":
				var ua *UnknownAgentError
				require.True(t, errors.As(err, &ua))
				assert.Equal(t, tt.unknown, ua.Name)
			default:
				require.NoError(t, err)
				assert.Len(t, names, len(tt.steps))
			}
		})
	}
}

func TestWorkflows_SortedAndIsolated(t *testing.T) {
	r := newMockRegistry(t)

	ws := r.Workflows()
	require.Len(t, ws, 4)
	assert.Equal(t, "content_creation", ws[0].Name)
	assert.Equal(t, "technical_audit", ws[3].Name)

	ws[0].Steps[0] = agent.SEOStrategy
	w, err := r.Resolve("content_creation", nil)
	require.NoError(t, err)
	assert.Equal(t, agent.KeywordResearch, w.Steps[0])
}

func TestCapabilityAndFallback(t *testing.T) {
	r := newMockRegistry(t)

	c, err := r.Capability(agent.TechnicalSEO)
	require.NoError(t, err)
	assert.Equal(t, agent.TechnicalSEO, c.Name())

	_, err = r.Capability(agent.Name("nope"))
	var ua *UnknownAgentError
	assert.ErrorAs(t, err, &ua)

	fb, ok := r.Fallback(agent.ContentWriter)
	require.True(t, ok)
	out, err := fb.Execute(context.Background(), agent.MapContext{})
	require.NoError(t, err)
	assert.NotNil(t, out.Recommendations)
}
