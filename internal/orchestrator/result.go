package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/seoflow/internal/agent"
)

// Result is the provenance-annotated output of one run. It serializes to a
// single flat JSON object: the input fields, one output_<agent> entry per
// step that produced output, and the run metadata.
type Result struct {
	RunID               string
	Status              RunState
	WorkflowType        string
	WorkflowDescription string
	APIMode             string
	APIModeReason       string
	Error               string
	Input               map[string]any
	Outputs             map[agent.Name]*agent.StepOutput
	Summary             ExecutionSummary
}

// MarshalJSON flattens the result.
func (r *Result) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Input)+len(r.Outputs)+8)
	for k, v := range r.Input {
		m[k] = v
	}
	for name, out := range r.Outputs {
		m[name.OutputKey()] = out
	}
	m["run_id"] = r.RunID
	m["status"] = r.Status
	m["workflow_type"] = r.WorkflowType
	m["workflow_description"] = r.WorkflowDescription
	m["api_mode"] = r.APIMode
	m["api_mode_reason"] = r.APIModeReason
	m["execution_summary"] = r.Summary
	if r.Error != "" {
		m["error"] = r.Error
	}
	return json.Marshal(m)
}

// UnmarshalJSON reverses MarshalJSON. Keys that are neither metadata nor
// step outputs are treated as input.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Result{
		Input:   map[string]any{},
		Outputs: map[agent.Name]*agent.StepOutput{},
	}
	strField := func(key string, dst *string) error {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return nil
	}

	var status string
	for key, dst := range map[string]*string{
		"run_id":               &r.RunID,
		"status":               &status,
		"workflow_type":        &r.WorkflowType,
		"workflow_description": &r.WorkflowDescription,
		"api_mode":             &r.APIMode,
		"api_mode_reason":      &r.APIModeReason,
		"error":                &r.Error,
	} {
		if err := strField(key, dst); err != nil {
			return err
		}
	}
	r.Status = RunState(status)

	if v, ok := raw["execution_summary"]; ok {
		if err := json.Unmarshal(v, &r.Summary); err != nil {
			return fmt.Errorf("execution_summary: %w", err)
		}
	}

	for key, v := range raw {
		if _, reserved := reservedKeys[key]; reserved {
			continue
		}
		if name, ok := strings.CutPrefix(key, "output_"); ok {
			var out agent.StepOutput
			if err := json.Unmarshal(v, &out); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			out.Normalize()
			r.Outputs[agent.Name(name)] = &out
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		r.Input[key] = val
	}
	return nil
}

// OutputKeys returns the output_<agent> keys present, in execution order.
func (r *Result) OutputKeys() []string {
	var keys []string
	seen := map[agent.Name]bool{}
	for _, e := range r.Summary.ExecutionLog {
		if _, ok := r.Outputs[e.Agent]; ok && !seen[e.Agent] {
			seen[e.Agent] = true
			keys = append(keys, e.Agent.OutputKey())
		}
	}
	return keys
}
