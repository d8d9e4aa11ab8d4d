package core

// ConversationState is the only state threaded through the graph. Nodes never
// mutate it; they return a partial update which the runtime merges with Append.
type ConversationState struct {
	Messages []Message `json:"messages"`
}

// NewConversationState creates a state seeded with the given messages.
func NewConversationState(seed ...Message) ConversationState {
	msgs := make([]Message, len(seed))
	copy(msgs, seed)
	return ConversationState{Messages: msgs}
}

// Append is the reducer: it returns a new state whose messages are the current
// messages followed by partial, in arrival order. No deduplication, no
// reordering. The receiver is left untouched and never shares its backing
// array with the result.
func (s ConversationState) Append(partial ...Message) ConversationState {
	msgs := make([]Message, 0, len(s.Messages)+len(partial))
	msgs = append(msgs, s.Messages...)
	msgs = append(msgs, partial...)
	return ConversationState{Messages: msgs}
}

// Len returns the number of messages.
func (s ConversationState) Len() int { return len(s.Messages) }

// Last returns the most recent message.
func (s ConversationState) Last() (Message, error) {
	if len(s.Messages) == 0 {
		return Message{}, &EmptyStateError{}
	}
	return s.Messages[len(s.Messages)-1], nil
}

// PendingToolCalls returns the tool calls of the last message if it is an
// assistant message, otherwise nil.
func (s ConversationState) PendingToolCalls() []ToolCall {
	last, err := s.Last()
	if err != nil || last.Role != RoleAssistant {
		return nil
	}
	return last.ToolCalls
}

// FinalContent returns the content of the last assistant message, or "" when
// the conversation holds none.
func (s ConversationState) FinalContent() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i].Content
		}
	}
	return ""
}

// Clone returns a copy that shares no backing array with s.
func (s ConversationState) Clone() ConversationState {
	return NewConversationState(s.Messages...)
}
