package testutil

import (
	"github.com/hupe1980/agentgraph/core"
)

// MessageBuilder provides a fluent helper for constructing messages in tests.
// Example:
//
//	msg := NewMessageBuilder().Assistant("").Call("c1", "calculator", map[string]any{"operation": "mul"}).Build()
//
// Chain only the parts you need; the role defaults to user.
type MessageBuilder struct {
	id         string
	role       core.Role
	content    string
	calls      []core.ToolCall
	toolCallID string
	name       string
}

// NewMessageBuilder creates a builder for a user message.
func NewMessageBuilder() *MessageBuilder { return &MessageBuilder{role: core.RoleUser} }

// ID overrides the auto-generated message ID (chainable).
func (b *MessageBuilder) ID(id string) *MessageBuilder { b.id = id; return b }

// User sets role user and the content (chainable).
func (b *MessageBuilder) User(text string) *MessageBuilder {
	b.role = core.RoleUser
	b.content = text
	return b
}

// Assistant sets role assistant and the content (chainable).
func (b *MessageBuilder) Assistant(text string) *MessageBuilder {
	b.role = core.RoleAssistant
	b.content = text
	return b
}

// Call appends a tool call request and forces role assistant (chainable).
func (b *MessageBuilder) Call(id, name string, args map[string]any) *MessageBuilder {
	b.role = core.RoleAssistant
	if args == nil {
		args = map[string]any{}
	}
	b.calls = append(b.calls, core.ToolCall{ID: id, Name: name, Arguments: args})
	return b
}

// ToolResult turns the message into a role=tool answer for callID (chainable).
func (b *MessageBuilder) ToolResult(callID, name, content string) *MessageBuilder {
	b.role = core.RoleTool
	b.toolCallID = callID
	b.name = name
	b.content = content
	return b
}

// Build returns the constructed message.
func (b *MessageBuilder) Build() core.Message {
	id := b.id
	if id == "" {
		id = core.NewID()
	}

	m := core.Message{
		ID:         id,
		Role:       b.role,
		Content:    b.content,
		ToolCallID: b.toolCallID,
		Name:       b.name,
	}
	if len(b.calls) > 0 {
		m.ToolCalls = append([]core.ToolCall(nil), b.calls...)
	}

	return m
}

// ToolCallMessage is shorthand for an assistant message requesting the given
// calls with empty content.
func ToolCallMessage(calls ...core.ToolCall) core.Message {
	return core.NewAssistantMessage("", calls...)
}

// Call builds a tool call with the given id, name and key/value arguments.
// kv must hold an even number of elements alternating string keys and values.
func Call(id, name string, kv ...any) core.ToolCall {
	args := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		args[key] = kv[i+1]
	}
	return core.ToolCall{ID: id, Name: name, Arguments: args}
}
