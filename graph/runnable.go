package graph

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/logging"
)

// DefaultMaxHops bounds the hop node when Options.MaxHops is not set.
const DefaultMaxHops = 25

// Options configures a compiled graph.
type Options struct {
	// Name is used in log events. Defaults to "graph".
	Name string

	// MaxHops is the maximum number of hop-node executions per run. Zero
	// disables the bound.
	MaxHops int

	// HopNode is the node whose executions count as hops. Defaults to the
	// entry point.
	HopNode string

	// Logger receives run and node events. Defaults to a no-op logger.
	Logger logging.Logger

	// Callbacks are invoked around node executions.
	Callbacks *CallbackManager
}

// RouteError reports a router that returned a name outside its declared
// target set.
type RouteError struct {
	From    string
	Target  string
	Allowed []string
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("router of node %q returned undeclared target %q (allowed: %v)", e.From, e.Target, e.Allowed)
}

// Runnable is a validated, immutable graph. It is safe for concurrent use;
// every Run has its own state and hop counter.
type Runnable struct {
	nodes       map[string]Node
	order       []string
	static      map[string]string
	conditional map[string]conditionalEdge
	entry       string
	opts        Options
}

// Entry returns the entry node name.
func (r *Runnable) Entry() string { return r.entry }

// Nodes returns the declared node names in registration order.
func (r *Runnable) Nodes() []string { return slices.Clone(r.order) }

// MaxHops returns the configured hop bound (0 means unbounded).
func (r *Runnable) MaxHops() int { return r.opts.MaxHops }

// Run executes the graph from the entry point until End is reached.
//
// The returned state always contains every message produced so far, also
// when an error is returned.
func (r *Runnable) Run(ctx context.Context, state core.ConversationState) (core.ConversationState, error) {
	runID := core.NewID()
	logger := logging.OrNoOp(r.opts.Logger)
	name := r.opts.Name
	if name == "" {
		name = "graph"
	}

	hops := core.NewHopLimiter(r.opts.MaxHops)
	start := time.Now()
	current := r.entry

	logger.Debug("graph.run.start", "graph", name, "run_id", runID, "entry", r.entry, "messages", state.Len())

	fail := func(node string, err error) (core.ConversationState, error) {
		logger.Error("graph.run.failed", "graph", name, "run_id", runID, "node", node, "hops", hops.Count(), "error", err)
		cbErr := r.opts.Callbacks.ExecuteCallbacks(ctx, CallbackOnError, &CallbackContext{
			RunID: runID,
			Node:  node,
			Hop:   hops.Count(),
			State: state,
			Err:   err,
		})
		if cbErr != nil {
			logger.Warn("graph.callback.failed", "graph", name, "run_id", runID, "type", CallbackOnError, "error", cbErr)
		}
		return state, err
	}

	for current != End {
		if err := ctx.Err(); err != nil {
			return fail(current, &core.CanceledError{Cause: context.Cause(ctx)})
		}

		if current == r.opts.HopNode {
			if err := hops.Increment(); err != nil {
				return fail(current, err)
			}
		}

		cbCtx := &CallbackContext{RunID: runID, Node: current, Hop: hops.Count(), State: state}
		if err := r.opts.Callbacks.ExecuteCallbacks(ctx, CallbackBeforeNode, cbCtx); err != nil {
			return fail(current, fmt.Errorf("before node %q: %w", current, err))
		}

		nodeStart := time.Now()
		logger.Debug("graph.node.start",
			"graph", name,
			"run_id", runID,
			"node", current,
			"hop", hops.Count(),
			"hops_remaining", hops.Remaining(),
		)

		update, nodeErr := r.nodes[current].Run(ctx, state)
		state = state.Append(update...)

		logger.Debug("graph.node.complete",
			"graph", name,
			"run_id", runID,
			"node", current,
			"messages", len(update),
			"duration_ms", time.Since(nodeStart).Milliseconds(),
			"success", nodeErr == nil,
		)

		cbCtx = &CallbackContext{RunID: runID, Node: current, Hop: hops.Count(), State: state, Update: update, Err: nodeErr}
		if err := r.opts.Callbacks.ExecuteCallbacks(ctx, CallbackAfterNode, cbCtx); err != nil && nodeErr == nil {
			return fail(current, fmt.Errorf("after node %q: %w", current, err))
		}

		if nodeErr != nil {
			return fail(current, nodeErr)
		}

		next, err := r.next(current, state)
		if err != nil {
			return fail(current, err)
		}

		cbCtx = &CallbackContext{RunID: runID, Node: current, Hop: hops.Count(), State: state, Next: next}
		if err := r.opts.Callbacks.ExecuteCallbacks(ctx, CallbackOnRoute, cbCtx); err != nil {
			return fail(current, fmt.Errorf("route from %q: %w", current, err))
		}

		current = next
	}

	logger.Info("graph.run.completed",
		"graph", name,
		"run_id", runID,
		"hops", hops.Count(),
		"messages", state.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return state, nil
}

func (r *Runnable) next(from string, state core.ConversationState) (string, error) {
	if to, ok := r.static[from]; ok {
		return to, nil
	}

	ce := r.conditional[from]
	target := ce.router(state)
	if !slices.Contains(ce.targets, target) {
		return "", &RouteError{From: from, Target: target, Allowed: slices.Clone(ce.targets)}
	}

	return target, nil
}
