package core

import (
	"fmt"
	"strings"
)

// EmptyStateError is returned by ConversationState.Last on an empty state.
type EmptyStateError struct{}

func (e *EmptyStateError) Error() string { return "conversation state is empty" }

// UnknownToolError reports a request for a tool the registry does not know.
// It is recovered by the tool dispatch node and surfaced as tool content.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string { return "unknown tool: " + e.Name }

// GraphValidationError lists every problem found while compiling a graph.
type GraphValidationError struct {
	Violations []string
}

func (e *GraphValidationError) Error() string {
	return fmt.Sprintf("graph validation failed (%d): %s", len(e.Violations), strings.Join(e.Violations, "; "))
}

// RegistryUnavailableError reports a required tool provider that could not be
// reached while building the registry.
type RegistryUnavailableError struct {
	Provider string
	Err      error
}

func (e *RegistryUnavailableError) Error() string {
	return fmt.Sprintf("tool provider %q unavailable: %v", e.Provider, e.Err)
}

func (e *RegistryUnavailableError) Unwrap() error { return e.Err }

// DuplicateToolNameError reports two tool sources exposing the same name.
type DuplicateToolNameError struct {
	Name    string
	Sources []string
}

func (e *DuplicateToolNameError) Error() string {
	return fmt.Sprintf("duplicate tool name %q (sources: %s)", e.Name, strings.Join(e.Sources, ", "))
}

// UpstreamModelError wraps a failure of the model collaborator. It is fatal to
// the run; retries, if any, belong to the collaborator.
type UpstreamModelError struct {
	Model string
	Err   error
}

func (e *UpstreamModelError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("upstream model error: %v", e.Err)
	}
	return fmt.Sprintf("upstream model error (%s): %v", e.Model, e.Err)
}

func (e *UpstreamModelError) Unwrap() error { return e.Err }

// MaxIterationsExceededError aborts a run whose model kept requesting tools
// beyond the configured hop bound.
type MaxIterationsExceededError struct {
	Limit int
}

func (e *MaxIterationsExceededError) Error() string {
	return fmt.Sprintf("exceeded max iterations: %d", e.Limit)
}

// CanceledError reports a run stopped by its context (deadline or abort).
type CanceledError struct {
	Cause error
}

func (e *CanceledError) Error() string {
	if e.Cause == nil {
		return "run canceled"
	}
	return fmt.Sprintf("run canceled: %v", e.Cause)
}

func (e *CanceledError) Unwrap() error { return e.Cause }
