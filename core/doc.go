// Package core provides the foundational domain types shared by every layer of
// agentgraph:
//
//   - Messages and tool call requests (one conversation turn each)
//   - ConversationState (the append-only state threaded through the graph)
//   - ToolResult (the structured outcome of a single tool invocation)
//   - The error taxonomy used by the registry, nodes and graph runtime
//   - HopLimiter (bounds the number of agent turns per run)
//
// The package has no knowledge of models, tools or graphs; it only defines the
// values those layers exchange. All state values are treated as immutable once
// built: the reducer (ConversationState.Append) always returns a new state.
package core
