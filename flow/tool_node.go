package flow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/logging"
	"github.com/hupe1980/agentgraph/tool"
)

// ToolNodeConfig configures the parallel tool dispatcher.
type ToolNodeConfig struct {
	Name           string        // used in log events, defaults to "tools"
	MaxParallel    int           // 0 or <1 => no explicit limit (len(calls))
	Timeout        time.Duration // per tool call, 0 => none
	LogStartEvents bool          // log a start line per call
	Logger         logging.Logger
}

// ToolNode executes every pending tool call of the last assistant message.
//
// Guarantees:
//   - exactly one role=tool message per request, ordered by request index
//     regardless of completion order
//   - a failing, panicking or unknown tool never affects its siblings
//   - calls not yet started when ctx is canceled are answered with a
//     canceled failure and the node returns *core.CanceledError
type ToolNode struct {
	resolver tool.Resolver
	cfg      ToolNodeConfig
}

// NewToolNode creates a tool node resolving names through resolver.
func NewToolNode(resolver tool.Resolver, optFns ...func(c *ToolNodeConfig)) *ToolNode {
	cfg := ToolNodeConfig{Name: "tools"}
	for _, fn := range optFns {
		fn(&cfg)
	}

	cfg.Logger = logging.OrNoOp(cfg.Logger)

	return &ToolNode{resolver: resolver, cfg: cfg}
}

// Run implements graph.Node.
func (n *ToolNode) Run(ctx context.Context, state core.ConversationState) ([]core.Message, error) {
	calls := state.PendingToolCalls()
	count := len(calls)
	if count == 0 {
		return nil, nil
	}

	maxPar := n.cfg.MaxParallel
	if maxPar <= 0 || maxPar > count {
		maxPar = count
	}

	results := make([]core.Message, count)
	sem := make(chan struct{}, maxPar)

	var (
		wg       sync.WaitGroup
		canceled bool
	)

	batchStart := time.Now()
	for i, call := range calls {
		acquired := false
		select {
		case sem <- struct{}{}:
			acquired = true
		case <-ctx.Done():
		}

		if ctx.Err() != nil { // checked before each call
			if acquired {
				<-sem
			}
			for j := i; j < count; j++ {
				results[j] = canceledMessage(calls[j], context.Cause(ctx))
			}
			canceled = true
			break
		}

		wg.Add(1)
		go func(idx int, c core.ToolCall) {
			defer wg.Done()
			defer func() { <-sem }()

			results[idx] = n.execute(ctx, c)
		}(i, call)
	}

	wg.Wait()

	n.cfg.Logger.Debug(
		"tool.batch.complete",
		"node", n.cfg.Name,
		"count", count,
		"parallelism", maxPar,
		"canceled", canceled,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	if canceled {
		return results, &core.CanceledError{Cause: context.Cause(ctx)}
	}

	return results, nil
}

func (n *ToolNode) execute(ctx context.Context, call core.ToolCall) core.Message {
	if n.cfg.LogStartEvents {
		n.cfg.Logger.Info("tool.call.start", "node", n.cfg.Name, "tool", call.Name, "tool_call_id", call.ID)
	}

	start := time.Now()
	var result core.ToolResult
	func() { // panic safety for resolvers
		defer func() {
			if r := recover(); r != nil {
				n.cfg.Logger.Error("tool.call.panic", "node", n.cfg.Name, "tool", call.Name, "recover", r)
				result = core.Failure("tool %s panicked: %v", call.Name, r)
			}
		}()
		result = n.dispatch(ctx, call)
	}()

	rec := logging.ToolCall{Node: n.cfg.Name, Tool: call.Name, CallID: call.ID, Duration: time.Since(start)}
	if !result.OK {
		rec.Err = errors.New(result.Error)
	}
	logging.LogToolCall(n.cfg.Logger, rec)

	return core.NewToolMessage(call, result)
}

func (n *ToolNode) dispatch(ctx context.Context, call core.ToolCall) core.ToolResult {
	if call.ArgumentsError != "" {
		return core.Failure("invalid arguments for tool %s: %s", call.Name, call.ArgumentsError)
	}

	impl, err := n.resolver.Resolve(call.Name)
	if err != nil {
		return core.Failure("%s", err.Error())
	}

	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}

	return tool.Invoke(ctx, impl, args, n.cfg.Timeout)
}

func canceledMessage(call core.ToolCall, cause error) core.Message {
	if cause == nil {
		cause = context.Canceled
	}
	return core.NewToolMessage(call, core.Failure("canceled before tool %s started: %v", call.Name, cause))
}

// StaticTools is a fixed tool set usable as resolver and catalog when no
// registry with remote providers is needed.
type StaticTools struct {
	tools map[string]tool.Tool
	order []string
}

// NewStaticTools builds a StaticTools keyed by tool name. Later tools with
// the same name replace earlier ones.
func NewStaticTools(tools ...tool.Tool) *StaticTools {
	s := &StaticTools{tools: make(map[string]tool.Tool, len(tools))}
	for _, t := range tools {
		if _, exists := s.tools[t.Name()]; !exists {
			s.order = append(s.order, t.Name())
		}
		s.tools[t.Name()] = t
	}
	return s
}

// Resolve implements tool.Resolver.
func (s *StaticTools) Resolve(name string) (tool.Tool, error) {
	if t, ok := s.tools[name]; ok {
		return t, nil
	}
	return nil, &core.UnknownToolError{Name: name}
}

// List returns the tool descriptors in registration order.
func (s *StaticTools) List() []tool.Descriptor {
	out := make([]tool.Descriptor, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, tool.Describe(s.tools[name], tool.SourceStatic))
	}
	return out
}
