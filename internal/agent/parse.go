package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// A fence opens at the start of a line and closes on a line of its own, so
// backticks inside JSON string values never end the block.
var fencePattern = regexp.MustCompile("(?ms)^```(?:json|JSON)?[ \\t]*\\n(.*?)\\n[ \\t]*```[ \\t]*$")

// extractJSON returns the JSON object embedded in a model reply. It prefers a
// fenced block and otherwise takes the outermost braces.
func extractJSON(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// parseStepOutput maps a model reply to a StepOutput. Fields beyond the four
// known ones are kept in Data.
func parseStepOutput(name Name, text string) (*StepOutput, error) {
	raw, ok := extractJSON(text)
	if !ok {
		return nil, &MalformedResponseError{AgentName: name, Reason: "no JSON object in response"}
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, &MalformedResponseError{AgentName: name, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	analysis, ok := obj[FieldAnalysis]
	if !ok || analysis == nil {
		return nil, &MalformedResponseError{AgentName: name, Reason: `missing "analysis" field`}
	}

	out := &StepOutput{
		Analysis: analysis,
		Data:     map[string]any{},
	}

	recs, err := toStrings(obj[FieldRecommendations])
	if err != nil {
		return nil, &MalformedResponseError{AgentName: name, Reason: err.Error()}
	}
	out.Recommendations = recs

	if r, ok := obj[FieldReasoning].(string); ok {
		out.Reasoning = r
	}

	if nested, ok := obj[FieldData].(map[string]any); ok {
		for k, v := range nested {
			out.Data[k] = v
		}
	}
	for k, v := range obj {
		switch k {
		case FieldAnalysis, FieldRecommendations, FieldReasoning, FieldData:
			continue
		}
		out.Data[k] = v
	}

	out.Normalize()
	return out, nil
}

// toStrings accepts a missing value, a single string, or a list whose
// elements are strings or objects (rendered as compact JSON).
func toStrings(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return []string{}, nil
	case string:
		return []string{val}, nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			switch it := item.(type) {
			case string:
				out = append(out, it)
			default:
				data, err := json.Marshal(it)
				if err != nil {
					return nil, fmt.Errorf("unrepresentable recommendation: %w", err)
				}
				out = append(out, string(data))
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf(`"recommendations" must be a list, got %T`, v)
	}
}
