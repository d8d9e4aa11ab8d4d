// Package runner wires the prebuilt tool-calling agent graph.
//
// A Runner owns one model and one tool catalog and compiles the two-node
// graph
//
//	__start__ -> agent -(tool calls?)-> tools -> agent ... -> __end__
//
// once at construction. It offers a one-shot Invoke, a session-backed Chat
// and a low-level Run on an explicit conversation state. Runs are independent
// of each other; the catalog is shared read-only. CancelAll aborts every
// in-flight run, which is what a CLI does on interrupt.
package runner
