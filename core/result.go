package core

import (
	"encoding/json"
	"fmt"
)

// ToolResult is the structured outcome of one tool invocation. Failures are
// values, never errors crossing the tool boundary: the model reads Error as
// ordinary content and decides how to recover.
type ToolResult struct {
	OK    bool   `json:"ok"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Success wraps a successful tool value.
func Success(value any) ToolResult { return ToolResult{OK: true, Value: value} }

// Failure wraps a tool-level failure message.
func Failure(format string, args ...any) ToolResult {
	return ToolResult{OK: false, Error: fmt.Sprintf(format, args...)}
}

// Content serializes the result into message content. Failures render as
// {"error": "..."}; string values are passed through verbatim; everything else
// is JSON encoded.
func (r ToolResult) Content() string {
	if !r.OK {
		b, _ := json.Marshal(map[string]string{"error": r.Error})
		return string(b)
	}

	switch v := r.Value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case json.RawMessage:
		return string(v)
	}

	b, err := json.Marshal(r.Value)
	if err != nil {
		return fmt.Sprintf("%v", r.Value)
	}
	return string(b)
}
