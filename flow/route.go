package flow

import (
	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/graph"
)

// Decision is the outcome of routing after the agent node.
type Decision int

const (
	// Terminate ends the run; the last assistant message is the answer.
	Terminate Decision = iota
	// ContinueToTools dispatches the pending tool calls.
	ContinueToTools
)

func (d Decision) String() string {
	switch d {
	case ContinueToTools:
		return "continue_to_tools"
	case Terminate:
		return "terminate"
	}
	return "unknown"
}

// Route continues to tools iff the last message carries pending tool calls.
// It depends on nothing but the last message.
func Route(state core.ConversationState) Decision {
	if len(state.PendingToolCalls()) > 0 {
		return ContinueToTools
	}
	return Terminate
}

// ToolsCondition adapts Route to a graph.Router whose targets are toolsNode
// and graph.End.
func ToolsCondition(toolsNode string) graph.Router {
	return func(state core.ConversationState) string {
		if Route(state) == ContinueToTools {
			return toolsNode
		}
		return graph.End
	}
}
