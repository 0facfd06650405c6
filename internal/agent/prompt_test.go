package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemPrompt(t *testing.T) {
	for _, n := range All() {
		p := SystemPrompt(n)
		assert.True(t, strings.HasPrefix(p, baseSystemPrompt), n)
		assert.Greater(t, len(p), len(baseSystemPrompt), n)
	}
	assert.Equal(t, baseSystemPrompt, SystemPrompt(Name("unknown")))
}

func TestUserPrompt(t *testing.T) {
	in := MapContext{
		"website_url":                "https://example.com",
		KeywordResearch.OutputKey(): map[string]any{"analysis": "demand is high"},
	}

	p := UserPrompt(ContentBrief, in, nil)

	assert.True(t, strings.HasPrefix(p, "Input data for content_brief analysis:\n\n"))
	assert.Contains(t, p, "website_url: https://example.com")
	assert.Contains(t, p, `"analysis": "demand is high"`)
	assert.Contains(t, p, `"content_structure"`)
	// keys render in sorted order
	assert.Less(t, strings.Index(p, "output_keyword_research"), strings.Index(p, "website_url"))
}

func TestUserPrompt_Redacts(t *testing.T) {
	p := UserPrompt(SEOStrategy, MapContext{"notes": "secret"}, func(s string) string {
		return strings.ReplaceAll(s, "secret", "***")
	})
	assert.Contains(t, p, "notes: ***")
	assert.NotContains(t, p, "notes: secret")
}
