package logging

import "time"

// ToolCall describes one finished tool invocation. Err is nil on success.
type ToolCall struct {
	Node     string
	Tool     string
	CallID   string
	Duration time.Duration
	Err      error
}

// ModelCall describes one finished model request. Err is nil on success.
type ModelCall struct {
	Node         string
	Model        string
	ToolCalls    int
	FinishReason string
	Tokens       int // 0 when the provider reports no usage
	Duration     time.Duration
	Err          error
}

// LogToolCall records c as "tool.call.completed" (info) or
// "tool.call.failed" (warn).
func LogToolCall(l Logger, c ToolCall) {
	l = OrNoOp(l)

	args := []any{
		"node", c.Node,
		"tool_name", c.Tool,
		"tool_call_id", c.CallID,
		"duration_ms", c.Duration.Milliseconds(),
		"success", c.Err == nil,
	}
	if c.Err != nil {
		l.Warn("tool.call.failed", append(args, "error", c.Err)...)
		return
	}
	l.Info("tool.call.completed", args...)
}

// LogModelCall records c as "model.call.completed" (info) or
// "model.call.failed" (error).
func LogModelCall(l Logger, c ModelCall) {
	l = OrNoOp(l)

	args := []any{
		"node", c.Node,
		"model", c.Model,
		"duration_ms", c.Duration.Milliseconds(),
	}
	if c.Err != nil {
		l.Error("model.call.failed", append(args, "error", c.Err)...)
		return
	}

	args = append(args, "tool_calls", c.ToolCalls, "finish_reason", c.FinishReason)
	if c.Tokens > 0 {
		args = append(args, "token_count", c.Tokens)
	}
	l.Info("model.call.completed", args...)
}
