package core

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Role identifies the author of a Message.
type Role string

const (
	// RoleUser marks messages written by the human user.
	RoleUser Role = "user"
	// RoleAssistant marks messages produced by the model.
	RoleAssistant Role = "assistant"
	// RoleTool marks messages carrying the result of a tool call.
	RoleTool Role = "tool"
	// RoleSystem marks instructions injected ahead of the conversation.
	RoleSystem Role = "system"
)

// ToolCall is a single tool invocation requested by the model. ID is unique
// within the assistant message that produced it.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	// ArgumentsError is set when the provider sent arguments that could not be
	// decoded. Dispatch reports it as a tool failure without calling the tool.
	ArgumentsError string `json:"arguments_error,omitempty"`
}

// Message is one turn in the conversation.
type Message struct {
	ID         string     `json:"id,omitempty"`
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // only on role=tool
	Name       string     `json:"name,omitempty"`         // tool name on role=tool
}

// NewID generates a new unique identifier for messages, tool calls and runs.
func NewID() string { return uuid.NewString() }

// NewUserMessage creates a user-authored text message.
func NewUserMessage(content string) Message {
	return Message{ID: NewID(), Role: RoleUser, Content: content}
}

// NewSystemMessage creates a system instruction message.
func NewSystemMessage(content string) Message {
	return Message{ID: NewID(), Role: RoleSystem, Content: content}
}

// NewAssistantMessage creates an assistant message with optional tool calls.
func NewAssistantMessage(content string, calls ...ToolCall) Message {
	return Message{ID: NewID(), Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// NewToolMessage creates the role=tool message answering the given call.
func NewToolMessage(call ToolCall, result ToolResult) Message {
	return Message{
		ID:         NewID(),
		Role:       RoleTool,
		Content:    result.Content(),
		ToolCallID: call.ID,
		Name:       call.Name,
	}
}

// HasToolCalls reports whether the message requests at least one tool call.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

// ParseArguments decodes a provider supplied JSON argument string. An empty
// string decodes to an empty map.
func ParseArguments(raw string) (map[string]any, error) {
	args := map[string]any{}
	if raw == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("malformed tool arguments: %w", err)
	}
	if args == nil { // literal "null"
		args = map[string]any{}
	}
	return args, nil
}

// EncodeArguments renders tool call arguments as a JSON object string.
func EncodeArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(b)
}
