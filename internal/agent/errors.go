package agent

import (
	"errors"
	"fmt"
)

// ExecutionError is returned by a Capability when a step cannot produce output.
// It is satisfied by *TransportError and *MalformedResponseError.
type ExecutionError interface {
	error
	Agent() Name
	// Kind is a short stable label for logs and metrics.
	Kind() string
}

// TransportError covers network failures, provider errors, timeouts and rate
// limiter cancellation.
type TransportError struct {
	AgentName Name
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("agent %s: transport: %v", e.AgentName, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
func (e *TransportError) Agent() Name   { return e.AgentName }
func (e *TransportError) Kind() string  { return "transport" }

// MalformedResponseError means the provider answered but the answer could not
// be turned into a StepOutput.
type MalformedResponseError struct {
	AgentName Name
	Reason    string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("agent %s: malformed response: %s", e.AgentName, e.Reason)
}

func (e *MalformedResponseError) Agent() Name  { return e.AgentName }
func (e *MalformedResponseError) Kind() string { return "malformed_response" }

// AsExecutionError extracts an ExecutionError from err's chain.
func AsExecutionError(err error) (ExecutionError, bool) {
	var ee ExecutionError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

var (
	_ ExecutionError = (*TransportError)(nil)
	_ ExecutionError = (*MalformedResponseError)(nil)
)
