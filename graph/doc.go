// Package graph provides a small directed-graph runtime for conversational
// agents.
//
// A Graph is assembled from named nodes, static edges and conditional edges
// and compiled into a Runnable. Compile validates the whole structure and
// reports every violation at once. Runnable.Run drives an explicit state
// machine: it runs the current node, merges the node's partial update into
// the conversation state with core.ConversationState.Append, then follows the
// outgoing edge (or asks the router) until the End sentinel is reached.
//
// Runs are bounded: the hop node (by default the entry node) may execute at
// most MaxHops times, after which Run fails with *core.MaxIterationsExceededError
// and returns the partial state. Cancellation of the context is checked before
// every node and reported as *core.CanceledError.
//
// Example:
//
//	g := graph.New().
//		AddNode("agent", agentNode).
//		AddNode("tools", toolNode).
//		SetEntryPoint("agent").
//		AddConditionalEdges("agent", flow.ToolsCondition("tools"), "tools", graph.End).
//		AddEdge("tools", "agent")
//
//	runnable, err := g.Compile(func(o *graph.Options) { o.MaxHops = 10 })
//	final, err := runnable.Run(ctx, core.NewConversationState(core.NewUserMessage("hi")))
package graph
