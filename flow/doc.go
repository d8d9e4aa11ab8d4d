// Package flow provides the building blocks of the tool-calling agent loop.
//
// AgentNode asks the model for the next assistant turn. ToolNode dispatches
// every tool call requested by that turn concurrently and answers each with
// exactly one role=tool message, in request order. Route and ToolsCondition
// decide whether the loop continues to the tool node or terminates.
package flow
