package testutil

import (
	"github.com/hupe1980/agentgraph/core"
)

// StateBuilder helps construct conversation states with fluent chaining.
// Example:
//
//	st := NewStateBuilder().User("hi").Assistant("hello").Build()
type StateBuilder struct {
	msgs []core.Message
}

// NewStateBuilder creates an empty state builder.
func NewStateBuilder() *StateBuilder { return &StateBuilder{} }

// User appends a user message (chainable).
func (b *StateBuilder) User(text string) *StateBuilder {
	b.msgs = append(b.msgs, core.NewUserMessage(text))
	return b
}

// Assistant appends an assistant message with optional tool calls (chainable).
func (b *StateBuilder) Assistant(text string, calls ...core.ToolCall) *StateBuilder {
	b.msgs = append(b.msgs, core.NewAssistantMessage(text, calls...))
	return b
}

// Tool appends a role=tool message answering call with result (chainable).
func (b *StateBuilder) Tool(call core.ToolCall, result core.ToolResult) *StateBuilder {
	b.msgs = append(b.msgs, core.NewToolMessage(call, result))
	return b
}

// Message appends arbitrary messages (chainable).
func (b *StateBuilder) Message(msgs ...core.Message) *StateBuilder {
	b.msgs = append(b.msgs, msgs...)
	return b
}

// Build returns the conversation state.
func (b *StateBuilder) Build() core.ConversationState {
	return core.NewConversationState(b.msgs...)
}
