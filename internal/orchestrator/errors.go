package orchestrator

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/seoflow/internal/agent"
)

// reservedKeys collide with result metadata and may not appear in input.
var reservedKeys = map[string]struct{}{
	"workflow_type":        {},
	"workflow_description": {},
	"execution_summary":    {},
	"run_id":               {},
	"status":               {},
	"api_mode":             {},
	"api_mode_reason":      {},
	"error":                {},
}

// InputError rejects caller input before any step runs.
type InputError struct {
	Key    string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input key %q: %s", e.Key, e.Reason)
}

func validateInput(input map[string]any) error {
	for k := range input {
		if strings.TrimSpace(k) == "" {
			return &InputError{Key: k, Reason: "empty key"}
		}
		if _, ok := reservedKeys[k]; ok {
			return &InputError{Key: k, Reason: "reserved for result metadata"}
		}
		if strings.HasPrefix(k, "output_") {
			return &InputError{Key: k, Reason: "output_ prefix is reserved for step outputs"}
		}
	}
	return nil
}

// RunError reports a run that did not complete. Error returns a short,
// user-safe message; the cause is available through Unwrap.
type RunError struct {
	RunID           string
	State           RunState
	Agent           agent.Name
	PartialResultID string
	Err             error
}

func (e *RunError) Error() string {
	switch {
	case e.State == StateCancelled:
		return "workflow run cancelled"
	case e.Agent != "":
		return fmt.Sprintf("workflow step %s failed", e.Agent)
	default:
		return "workflow run failed"
	}
}

func (e *RunError) Unwrap() error { return e.Err }
