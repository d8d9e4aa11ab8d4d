// Package tool implements the tool calling subsystem: the Tool contract, a
// function adapter with schema validated arguments, isolated invocation with
// timeouts and panic recovery, and the Registry that merges static tools with
// tools discovered from remote providers.
package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/agentgraph/internal/util"
)

// Tool defines the interface for capabilities the model may invoke.
//
// Implementations should:
//   - Provide clear, descriptive names (snake_case recommended)
//   - Define a JSON schema for parameters
//   - Return errors instead of panicking
//   - Be safe for concurrent use; one model turn may call a tool several times in parallel
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description shown to the model.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool with decoded arguments. ctx carries the per-call
	// timeout; implementations doing I/O must honour it.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Descriptor is the model-facing description of a tool plus where it came from.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Source      string         `json:"source"` // "static" or the provider name
}

// Describe builds the Descriptor of t.
func Describe(t Tool, source string) Descriptor {
	return Descriptor{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.Parameters(),
		Source:      source,
	}
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Error codes carried by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeTimeout    = "TIMEOUT"
	CodePanic      = "PANIC"
)

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// DecodeArgs converts loosely typed arguments into a struct via JSON.
func DecodeArgs(args map[string]any, out any) error {
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}
