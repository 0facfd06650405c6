package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare object", `{"analysis":"a"}`, `{"analysis":"a"}`, true},
		{"json fence", "```json\n{\"analysis\":\"a\"}\n```", `{"analysis":"a"}`, true},
		{"plain fence", "```\n{\"analysis\":\"a\"}\n```", `{"analysis":"a"}`, true},
		{"surrounding prose", "Sure! {\"analysis\":\"a\"} Hope this helps.", `{"analysis":"a"}`, true},
		{"nested braces", `{"analysis":{"summary":"x"}}`, `{"analysis":{"summary":"x"}}`, true},
		{"fence after prose", "Here you go:\n```json\n{\"analysis\":\"a\"}\n```\nThanks", `{"analysis":"a"}`, true},
		{"code block inside string value",
			"```json\n{\"analysis\":\"a\",\"content\":\"## Install\\n```bash\\nnpm i\\n```\\nDone\"}\n```",
			"{\"analysis\":\"a\",\"content\":\"## Install\\n```bash\\nnpm i\\n```\\nDone\"}", true},
		{"no object", "nothing here", "", false},
		{"reversed braces", "} {", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractJSON(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStepOutput(t *testing.T) {
	t.Run("structured analysis and extra fields", func(t *testing.T) {
		out, err := parseStepOutput(ContentWriter, `{
			"analysis": {"summary": "draft ready"},
			"content": "# Title",
			"data": {"word_count": 2}
		}`)
		require.NoError(t, err)

		assert.Equal(t, map[string]any{"summary": "draft ready"}, out.Analysis)
		assert.Equal(t, []string{}, out.Recommendations)
		assert.Equal(t, "# Title", out.Data["content"])
		assert.Equal(t, float64(2), out.Data["word_count"])
	})

	t.Run("fenced reply with markdown code in content", func(t *testing.T) {
		reply := "```json\n" +
			`{"analysis": "Drafted article", "recommendations": ["publish"], "content": "## Install\n` + "```bash\\nnpm i\\n```" + `\nDone"}` +
			"\n```"
		out, err := parseStepOutput(ContentWriter, reply)
		require.NoError(t, err)

		assert.Equal(t, "Drafted article", out.Analysis)
		assert.Equal(t, []string{"publish"}, out.Recommendations)
		assert.Equal(t, "## Install\n```bash\nnpm i\n```\nDone", out.Data["content"])
	})

	t.Run("object recommendations become JSON strings", func(t *testing.T) {
		out, err := parseStepOutput(SEOStrategy, `{"analysis":"a","recommendations":["one",{"action":"two"}]}`)
		require.NoError(t, err)
		assert.Equal(t, []string{"one", `{"action":"two"}`}, out.Recommendations)
	})

	t.Run("single string recommendation", func(t *testing.T) {
		out, err := parseStepOutput(SEOStrategy, `{"analysis":"a","recommendations":"only one"}`)
		require.NoError(t, err)
		assert.Equal(t, []string{"only one"}, out.Recommendations)
	})
}
