package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/seoflow/internal/secrets"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	args := m.Called(ctx, system, prompt)
	return args.String(0), args.Error(1)
}

var liveInfo = ModelInfo{Provider: "anthropic", Model: "claude-3-opus-20240229"}

func TestLive_Execute_Success(t *testing.T) {
	gen := new(mockGenerator)
	reply := "Here is the analysis:\n```json\n" +
		`{"analysis": "Strong demand", "recommendations": ["Target trail shoes"], "reasoning": "volume", "keyword_groups": {"high_intent": ["buy trail shoes"]}}` +
		"\n```"
	gen.On("Generate", mock.Anything, SystemPrompt(KeywordResearch), mock.MatchedBy(func(p string) bool {
		return strings.HasPrefix(p, "Input data for keyword_research analysis:") &&
			strings.Contains(p, "website_url: https://example.com")
	})).Return(reply, nil)

	live := NewLive(KeywordResearch, gen, liveInfo)
	out, err := live.Execute(context.Background(), MapContext{"website_url": "https://example.com"})
	require.NoError(t, err)

	assert.Equal(t, "Strong demand", out.Analysis)
	assert.Equal(t, []string{"Target trail shoes"}, out.Recommendations)
	assert.Equal(t, "volume", out.Reasoning)
	assert.Contains(t, out.Data, "keyword_groups")
	info := out.Data["_api_info"].(map[string]any)
	assert.Equal(t, false, info["mock_data"])
	assert.Equal(t, "claude-3-opus-20240229", info["model"])
	gen.AssertExpectations(t)
}

func TestLive_Execute_TransportError(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("connection reset"))

	_, err := NewLive(TechnicalSEO, gen, liveInfo).Execute(context.Background(), MapContext{})
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, TechnicalSEO, te.Agent())

	ee, ok := AsExecutionError(err)
	require.True(t, ok)
	assert.Equal(t, "transport", ee.Kind())
}

func TestLive_Execute_PreclassifiedErrorPassesThrough(t *testing.T) {
	gen := new(mockGenerator)
	orig := &TransportError{AgentName: ContentBrief, Err: context.DeadlineExceeded}
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", orig)

	_, err := NewLive(ContentBrief, gen, liveInfo).Execute(context.Background(), MapContext{})
	assert.Same(t, orig, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLive_Execute_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"prose only", "I cannot help with that."},
		{"invalid json", "{analysis: nope}"},
		{"missing analysis", `{"recommendations": ["a"]}`},
		{"null analysis", `{"analysis": null}`},
		{"recommendations not a list", `{"analysis": "ok", "recommendations": 7}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(mockGenerator)
			gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(tt.reply, nil)

			_, err := NewLive(SEOStrategy, gen, liveInfo).Execute(context.Background(), MapContext{})
			var me *MalformedResponseError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, SEOStrategy, me.Agent())
		})
	}
}

func TestLive_Execute_ScrubsPrompt(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.MatchedBy(func(p string) bool {
		return !strings.Contains(p, "sk-ant-REDACTED") && strings.Contains(p, "[REDACTED]")
	})).Return(`{"analysis": "ok"}`, nil)

	live := NewLive(ContentGapAnalysis, gen, liveInfo, WithScrubber(secrets.MustNew(nil)))
	out, err := live.Execute(context.Background(), MapContext{"notes": "our key is sk-ant-REDACTED"})
	require.NoError(t, err)
	assert.Equal(t, []string{}, out.Recommendations)
	gen.AssertExpectations(t)
}

func TestLives(t *testing.T) {
	caps := Lives(new(mockGenerator), liveInfo)
	assert.Len(t, caps, 6)
	for name, c := range caps {
		assert.Equal(t, name, c.Name())
	}
}
