package graph

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentgraph/core"
)

// CallbackType defines the lifecycle points where callbacks run.
//
// Callbacks hook into the run loop without modifying node logic:
//   - BeforeNode/AfterNode: around every node execution
//   - OnRoute: after the successor of a node was resolved
//   - OnError: when a run terminates with an error
//
// Callbacks execute synchronously. An error returned from a BeforeNode,
// AfterNode or OnRoute callback terminates the run; errors from OnError
// callbacks are logged and otherwise ignored.
type CallbackType string

const (
	// CallbackBeforeNode is triggered before a node runs.
	CallbackBeforeNode CallbackType = "before_node"

	// CallbackAfterNode is triggered after a node returned, with its update
	// and error (if any). The update has already been merged into State.
	CallbackAfterNode CallbackType = "after_node"

	// CallbackOnRoute is triggered once the next node is known.
	CallbackOnRoute CallbackType = "on_route"

	// CallbackOnError is triggered when the run fails.
	CallbackOnError CallbackType = "on_error"
)

// CallbackContext carries the information available to a callback.
type CallbackContext struct {
	// RunID identifies the run the callback belongs to.
	RunID string

	// Node is the node being executed (or the source node for OnRoute).
	Node string

	// Hop is the number of hop-node executions so far.
	Hop int

	// State is the conversation state visible at this point. Callbacks must
	// treat it as read-only.
	State core.ConversationState

	// Update is the partial update returned by the node. Set for AfterNode.
	Update []core.Message

	// Next is the resolved successor. Set for OnRoute.
	Next string

	// Err is the failure being reported. Set for AfterNode and OnError.
	Err error

	// CallbackType indicates which callback type triggered this execution.
	CallbackType CallbackType

	// Metadata provides extensible storage for custom callback data.
	Metadata map[string]any
}

// Callback defines the interface for run lifecycle hooks.
//
// Implementations should be fast, since they block the run loop, and must
// be safe for concurrent use when the same Runnable serves several runs.
type Callback interface {
	// Type returns the callback type this implementation handles.
	Type() CallbackType

	// Execute performs the callback logic. Returning an error terminates
	// the run (except for OnError callbacks).
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
// Example:
//
//	cb := graph.NewFunctionCallback(graph.CallbackBeforeNode,
//		func(ctx context.Context, cc *graph.CallbackContext) error {
//			log.Printf("entering %s (hop %d)", cc.Node, cc.Hop)
//			return nil
//		})
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType {
	return c.callbackType
}

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager holds the callbacks registered for a graph.
//
// Registration is not synchronized: register everything before the first
// run. Execution is safe for concurrent use afterwards. A nil manager is
// valid and runs nothing.
type CallbackManager struct {
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates a new callback manager instance.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{
		callbacks: make(map[CallbackType][]Callback),
	}
}

// RegisterCallback adds a callback. Callbacks of the same type run in
// registration order.
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	callbackType := callback.Type()
	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
}

// ExecuteCallbacks executes all callbacks registered for callbackType and
// stops at the first error.
func (cm *CallbackManager) ExecuteCallbacks(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) error {
	if cm == nil {
		return nil
	}

	callbacks, exists := cm.callbacks[callbackType]
	if !exists {
		return nil
	}

	callbackCtx.CallbackType = callbackType

	for _, callback := range callbacks {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			return err
		}
	}

	return nil
}

// LoggingCallback forwards lifecycle events to a formatting log function.
//
// Example:
//
//	cb := graph.NewLoggingCallback(graph.CallbackOnRoute, func(msg string) {
//		log.Printf("[GRAPH] %s", msg)
//	})
type LoggingCallback struct {
	callbackType CallbackType
	logger       func(message string)
}

// NewLoggingCallback creates a new logging callback.
func NewLoggingCallback(callbackType CallbackType, logger func(message string)) *LoggingCallback {
	return &LoggingCallback{
		callbackType: callbackType,
		logger:       logger,
	}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType {
	return c.callbackType
}

// Execute logs the event. Without a logger function it silently succeeds.
func (c *LoggingCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	if c.logger == nil {
		return nil
	}

	switch c.callbackType {
	case CallbackOnRoute:
		c.logger(fmt.Sprintf("[%s] Run: %s, Node: %s -> %s", c.callbackType, callbackCtx.RunID, callbackCtx.Node, callbackCtx.Next))
	case CallbackAfterNode:
		c.logger(fmt.Sprintf("[%s] Run: %s, Node: %s, Messages: %d", c.callbackType, callbackCtx.RunID, callbackCtx.Node, len(callbackCtx.Update)))
	case CallbackOnError:
		c.logger(fmt.Sprintf("[%s] Run: %s, Node: %s, Error: %v", c.callbackType, callbackCtx.RunID, callbackCtx.Node, callbackCtx.Err))
	default:
		c.logger(fmt.Sprintf("[%s] Run: %s, Node: %s, Hop: %d", c.callbackType, callbackCtx.RunID, callbackCtx.Node, callbackCtx.Hop))
	}

	return nil
}

// UpdateValidationCallback checks every partial update a node produces.
//
// The validator sees only the messages the node returned. Returning an
// error aborts the run; the update stays merged into the returned state.
//
// Example:
//
//	cb := graph.NewUpdateValidationCallback(func(node string, update []core.Message) error {
//		if node == "agent" && len(update) != 1 {
//			return errors.New("agent must produce exactly one message")
//		}
//		return nil
//	})
type UpdateValidationCallback struct {
	validator func(node string, update []core.Message) error
}

// NewUpdateValidationCallback creates a new update validation callback.
func NewUpdateValidationCallback(validator func(node string, update []core.Message) error) *UpdateValidationCallback {
	return &UpdateValidationCallback{
		validator: validator,
	}
}

// Type returns the callback type (always CallbackAfterNode).
func (c *UpdateValidationCallback) Type() CallbackType {
	return CallbackAfterNode
}

// Execute validates the node's update. Failed nodes are not validated.
func (c *UpdateValidationCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	if c.validator == nil || callbackCtx.Err != nil {
		return nil
	}
	return c.validator(callbackCtx.Node, callbackCtx.Update)
}
