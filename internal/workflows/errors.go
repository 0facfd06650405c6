package workflows

import (
	"errors"

	"github.com/fyrsmithlabs/seoflow/internal/orchestrator"
	"github.com/fyrsmithlabs/seoflow/internal/registry"
)

// isRequestError reports whether err rejected the request before a run
// started.
func isRequestError(err error) bool {
	var (
		unknownAgent    *registry.UnknownAgentError
		unknownWorkflow *registry.UnknownWorkflowError
		inputErr        *orchestrator.InputError
	)
	return errors.As(err, &unknownAgent) ||
		errors.As(err, &unknownWorkflow) ||
		errors.As(err, &inputErr) ||
		errors.Is(err, registry.ErrEmptyWorkflow) ||
		errors.Is(err, registry.ErrDuplicateStep)
}
