package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/internal/testutil"
)

var noopNode = NodeFunc(func(context.Context, core.ConversationState) ([]core.Message, error) {
	return nil, nil
})

func pendingRouter(target string) Router {
	return func(state core.ConversationState) string {
		if len(state.PendingToolCalls()) > 0 {
			return target
		}
		return End
	}
}

// scriptedAgent requests one tool call for the first n executions and then
// answers with plain text.
type scriptedAgent struct {
	toolTurns int
	calls     atomic.Int32
}

func (a *scriptedAgent) Run(_ context.Context, _ core.ConversationState) ([]core.Message, error) {
	n := int(a.calls.Add(1))
	if a.toolTurns < 0 || n <= a.toolTurns {
		return []core.Message{testutil.ToolCallMessage(testutil.Call(fmt.Sprintf("c%d", n), "echo"))}, nil
	}
	return []core.Message{core.NewAssistantMessage("done")}, nil
}

type echoTools struct {
	calls atomic.Int32
}

func (t *echoTools) Run(_ context.Context, state core.ConversationState) ([]core.Message, error) {
	t.calls.Add(1)
	var out []core.Message
	for _, c := range state.PendingToolCalls() {
		out = append(out, core.NewToolMessage(c, core.Success("ok")))
	}
	return out, nil
}

func reactGraph(agent, tools Node) *Graph {
	return New().
		AddNode("agent", agent).
		AddNode("tools", tools).
		SetEntryPoint("agent").
		AddConditionalEdges("agent", pendingRouter("tools"), "tools", End).
		AddEdge("tools", "agent")
}

func validationErr(t *testing.T, err error) *core.GraphValidationError {
	t.Helper()
	var gve *core.GraphValidationError
	require.ErrorAs(t, err, &gve)
	return gve
}

func TestCompile_Valid(t *testing.T) {
	r, err := reactGraph(&scriptedAgent{}, &echoTools{}).Compile()
	require.NoError(t, err)
	assert.Equal(t, "agent", r.Entry())
	assert.Equal(t, []string{"agent", "tools"}, r.Nodes())
	assert.Equal(t, DefaultMaxHops, r.MaxHops())
}

func TestCompile_ReportsAllViolations(t *testing.T) {
	g := New().
		AddNode("a", noopNode).
		AddNode("a", noopNode).
		AddNode("", noopNode).
		AddNode(End, noopNode).
		AddNode("nil", nil).
		AddNode("b", noopNode).
		AddNode("c", noopNode).
		AddEdge("a", "ghost").
		AddEdge("b", "a")

	_, err := g.Compile()
	gve := validationErr(t, err)

	assert.Equal(t, []string{
		`node "a" is declared more than once`,
		"node name must not be empty",
		`node name "__end__" is reserved`,
		`node "nil" is nil`,
		"graph has no entry point",
		`edge "a" -> "ghost" targets an undeclared node`,
		`node "c" has no outgoing edge`,
	}, gve.Violations)
}

func TestCompile_EntryAndEdgeViolations(t *testing.T) {
	tests := []struct {
		name  string
		graph *Graph
		want  []string
	}{
		{
			name: "multiple entries and conflicting edges",
			graph: New().
				AddNode("a", noopNode).
				AddNode("b", noopNode).
				SetEntryPoint("a").
				SetEntryPoint("b").
				AddEdge("a", End).
				AddEdge("a", "b").
				AddEdge("b", End),
			want: []string{
				"graph has 2 entry points (a, b), expected exactly one",
				`node "a" has 2 conflicting outgoing edges`,
			},
		},
		{
			name: "undeclared entry",
			graph: New().
				AddNode("a", noopNode).
				SetEntryPoint("zzz").
				AddEdge("a", End),
			want: []string{`entry point "zzz" is not a declared node`},
		},
		{
			name: "unreachable node",
			graph: New().
				AddNode("a", noopNode).
				AddNode("b", noopNode).
				SetEntryPoint("a").
				AddEdge("a", End).
				AddEdge("b", End),
			want: []string{`node "b" is unreachable from entry point "a"`},
		},
		{
			name: "conditional edge problems",
			graph: New().
				AddNode("a", noopNode).
				SetEntryPoint("a").
				AddConditionalEdges("a", nil, "x", End).
				AddEdge("ghost", End),
			want: []string{
				`conditional edge from "a" has no router`,
				`conditional edge from "a" targets undeclared node "x"`,
				`edge source "ghost" is not a declared node`,
			},
		},
		{
			name: "conditional edge without targets",
			graph: New().
				AddNode("a", noopNode).
				SetEntryPoint("a").
				AddConditionalEdges("a", pendingRouter(End)),
			want: []string{`conditional edge from "a" declares no targets`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.graph.Compile()
			assert.Equal(t, tt.want, validationErr(t, err).Violations)
		})
	}
}

func TestCompile_UnknownHopNode(t *testing.T) {
	_, err := reactGraph(&scriptedAgent{}, &echoTools{}).Compile(func(o *Options) {
		o.HopNode = "planner"
	})
	assert.Equal(t, []string{`hop node "planner" is not a declared node`}, validationErr(t, err).Violations)
}

func TestCompile_Idempotent(t *testing.T) {
	g := reactGraph(&scriptedAgent{}, &echoTools{})

	r1, err := g.Compile()
	require.NoError(t, err)
	r2, err := g.Compile()
	require.NoError(t, err)
	assert.Equal(t, r1.Entry(), r2.Entry())
	assert.Equal(t, r1.Nodes(), r2.Nodes())

	bad := New().AddNode("a", noopNode).AddNode("b", noopNode)
	_, err1 := bad.Compile()
	_, err2 := bad.Compile()
	assert.Equal(t, validationErr(t, err1).Violations, validationErr(t, err2).Violations)
}

func TestRun_LoopsUntilEnd(t *testing.T) {
	agent := &scriptedAgent{toolTurns: 2}
	tools := &echoTools{}

	r, err := reactGraph(agent, tools).Compile()
	require.NoError(t, err)

	seed := testutil.NewStateBuilder().User("hi").Build()
	final, err := r.Run(context.Background(), seed)
	require.NoError(t, err)

	assert.Equal(t, 6, final.Len())
	assert.Equal(t, "done", final.FinalContent())
	assert.EqualValues(t, 3, agent.calls.Load())
	assert.EqualValues(t, 2, tools.calls.Load())
	assert.Equal(t, 1, seed.Len(), "input state must not be mutated")

	roles := make([]core.Role, 0, final.Len())
	for _, m := range final.Messages {
		roles = append(roles, m.Role)
	}
	assert.Equal(t, []core.Role{
		core.RoleUser,
		core.RoleAssistant, core.RoleTool,
		core.RoleAssistant, core.RoleTool,
		core.RoleAssistant,
	}, roles)
}

func TestRun_HopBoundIsExact(t *testing.T) {
	for _, limit := range []int{1, 3, 5} {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			agent := &scriptedAgent{toolTurns: -1}
			tools := &echoTools{}

			r, err := reactGraph(agent, tools).Compile(func(o *Options) { o.MaxHops = limit })
			require.NoError(t, err)

			final, err := r.Run(context.Background(), testutil.NewStateBuilder().User("loop").Build())

			var maxErr *core.MaxIterationsExceededError
			require.ErrorAs(t, err, &maxErr)
			assert.Equal(t, limit, maxErr.Limit)
			assert.EqualValues(t, limit, agent.calls.Load())
			assert.Equal(t, 1+2*limit, final.Len(), "partial state is returned")
		})
	}
}

func TestRun_FinishesOnLastAllowedHop(t *testing.T) {
	agent := &scriptedAgent{toolTurns: 2}

	r, err := reactGraph(agent, &echoTools{}).Compile(func(o *Options) { o.MaxHops = 3 })
	require.NoError(t, err)

	final, err := r.Run(context.Background(), testutil.NewStateBuilder().User("hi").Build())
	require.NoError(t, err)
	assert.Equal(t, "done", final.FinalContent())
}

func TestRun_LogsRemainingHops(t *testing.T) {
	logger := &testutil.RecordingLogger{}

	r, err := reactGraph(&scriptedAgent{toolTurns: 2}, &echoTools{}).Compile(func(o *Options) {
		o.MaxHops = 3
		o.Logger = logger
	})
	require.NoError(t, err)

	_, err = r.Run(context.Background(), testutil.NewStateBuilder().User("hi").Build())
	require.NoError(t, err)

	var got []string
	for _, e := range logger.Find("graph.node.start") {
		got = append(got, fmt.Sprintf("%s:%d/%d", e.Attrs["node"], e.Attrs["hop"], e.Attrs["hops_remaining"]))
	}
	assert.Equal(t, []string{"agent:1/2", "tools:1/2", "agent:2/1", "tools:2/1", "agent:3/0"}, got)
}

func TestRun_CustomHopNode(t *testing.T) {
	agent := &scriptedAgent{toolTurns: -1}
	tools := &echoTools{}

	r, err := reactGraph(agent, tools).Compile(func(o *Options) {
		o.MaxHops = 2
		o.HopNode = "tools"
	})
	require.NoError(t, err)

	_, err = r.Run(context.Background(), core.NewConversationState())
	var maxErr *core.MaxIterationsExceededError
	require.ErrorAs(t, err, &maxErr)
	assert.EqualValues(t, 2, tools.calls.Load())
	assert.EqualValues(t, 3, agent.calls.Load())
}

func TestRun_UndeclaredRouteTargetIsFatal(t *testing.T) {
	g := New().
		AddNode("a", noopNode).
		AddNode("b", noopNode).
		SetEntryPoint("a").
		AddConditionalEdges("a", func(core.ConversationState) string { return "nowhere" }, "b", End).
		AddEdge("b", End)

	r, err := g.Compile()
	require.NoError(t, err)

	_, err = r.Run(context.Background(), core.NewConversationState())
	var routeErr *RouteError
	require.ErrorAs(t, err, &routeErr)
	assert.Equal(t, "a", routeErr.From)
	assert.Equal(t, "nowhere", routeErr.Target)
	assert.Equal(t, []string{"b", End}, routeErr.Allowed)
}

func TestRun_NodeErrorKeepsPartialUpdate(t *testing.T) {
	boom := errors.New("boom")
	g := New().
		AddNodeFunc("a", func(context.Context, core.ConversationState) ([]core.Message, error) {
			return []core.Message{core.NewAssistantMessage("diagnostic")}, boom
		}).
		SetEntryPoint("a").
		AddEdge("a", End)

	r, err := g.Compile()
	require.NoError(t, err)

	final, err := r.Run(context.Background(), testutil.NewStateBuilder().User("x").Build())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, final.Len())
	assert.Equal(t, "diagnostic", final.FinalContent())
}

func TestRun_CanceledBeforeFirstNode(t *testing.T) {
	agent := &scriptedAgent{}
	r, err := reactGraph(agent, &echoTools{}).Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	final, err := r.Run(ctx, testutil.NewStateBuilder().User("hi").Build())

	var canceled *core.CanceledError
	require.ErrorAs(t, err, &canceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 0, agent.calls.Load())
	assert.Equal(t, 1, final.Len())
}

func TestRun_CanceledBetweenNodes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	agent := NodeFunc(func(context.Context, core.ConversationState) ([]core.Message, error) {
		cancel()
		return []core.Message{testutil.ToolCallMessage(testutil.Call("c1", "echo"))}, nil
	})
	tools := &echoTools{}

	r, err := reactGraph(agent, tools).Compile()
	require.NoError(t, err)

	final, err := r.Run(ctx, core.NewConversationState(core.NewUserMessage("hi")))

	var canceled *core.CanceledError
	require.ErrorAs(t, err, &canceled)
	assert.EqualValues(t, 0, tools.calls.Load())
	assert.Equal(t, 2, final.Len())
}

func TestRun_Callbacks(t *testing.T) {
	var (
		mu     sync.Mutex
		events []string
	)
	record := func(ct CallbackType) Callback {
		return NewFunctionCallback(ct, func(_ context.Context, cc *CallbackContext) error {
			mu.Lock()
			defer mu.Unlock()
			switch ct {
			case CallbackOnRoute:
				events = append(events, fmt.Sprintf("%s:%s->%s", ct, cc.Node, cc.Next))
			case CallbackAfterNode:
				events = append(events, fmt.Sprintf("%s:%s:%d", ct, cc.Node, len(cc.Update)))
			default:
				events = append(events, fmt.Sprintf("%s:%s:%d", ct, cc.Node, cc.Hop))
			}
			return nil
		})
	}

	cbs := NewCallbackManager()
	cbs.RegisterCallback(record(CallbackBeforeNode))
	cbs.RegisterCallback(record(CallbackAfterNode))
	cbs.RegisterCallback(record(CallbackOnRoute))

	r, err := reactGraph(&scriptedAgent{toolTurns: 1}, &echoTools{}).Compile(func(o *Options) {
		o.Callbacks = cbs
	})
	require.NoError(t, err)

	_, err = r.Run(context.Background(), core.NewConversationState(core.NewUserMessage("hi")))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"before_node:agent:1",
		"after_node:agent:1",
		"on_route:agent->tools",
		"before_node:tools:1",
		"after_node:tools:1",
		"on_route:tools->agent",
		"before_node:agent:2",
		"after_node:agent:1",
		"on_route:agent->__end__",
	}, events)
}

func TestRun_CallbackErrorAbortsRun(t *testing.T) {
	denied := errors.New("denied")
	var onError error

	cbs := NewCallbackManager()
	cbs.RegisterCallback(NewFunctionCallback(CallbackBeforeNode, func(_ context.Context, cc *CallbackContext) error {
		if cc.Node == "tools" {
			return denied
		}
		return nil
	}))
	cbs.RegisterCallback(NewFunctionCallback(CallbackOnError, func(_ context.Context, cc *CallbackContext) error {
		onError = cc.Err
		return errors.New("ignored")
	}))

	tools := &echoTools{}
	r, err := reactGraph(&scriptedAgent{toolTurns: 1}, tools).Compile(func(o *Options) { o.Callbacks = cbs })
	require.NoError(t, err)

	_, err = r.Run(context.Background(), core.NewConversationState(core.NewUserMessage("hi")))
	require.ErrorIs(t, err, denied)
	assert.ErrorIs(t, onError, denied)
	assert.EqualValues(t, 0, tools.calls.Load())
}

func TestUpdateValidationCallback(t *testing.T) {
	cbs := NewCallbackManager()
	cbs.RegisterCallback(NewUpdateValidationCallback(func(node string, update []core.Message) error {
		for _, m := range update {
			if node == "tools" && m.Role != core.RoleTool {
				return fmt.Errorf("tools node produced %s message", m.Role)
			}
		}
		return nil
	}))

	bad := NodeFunc(func(context.Context, core.ConversationState) ([]core.Message, error) {
		return []core.Message{core.NewAssistantMessage("oops")}, nil
	})

	r, err := reactGraph(&scriptedAgent{toolTurns: 1}, bad).Compile(func(o *Options) { o.Callbacks = cbs })
	require.NoError(t, err)

	final, err := r.Run(context.Background(), core.NewConversationState(core.NewUserMessage("hi")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tools node produced assistant message")
	assert.Equal(t, "oops", final.FinalContent())
}

func TestLoggingCallback(t *testing.T) {
	var lines []string
	cb := NewLoggingCallback(CallbackOnRoute, func(msg string) { lines = append(lines, msg) })
	assert.Equal(t, CallbackOnRoute, cb.Type())

	require.NoError(t, cb.Execute(context.Background(), &CallbackContext{RunID: "r1", Node: "agent", Next: "tools"}))
	assert.Equal(t, []string{"[on_route] Run: r1, Node: agent -> tools"}, lines)

	require.NoError(t, NewLoggingCallback(CallbackOnError, nil).Execute(context.Background(), &CallbackContext{}))
}

func TestRun_ConcurrentRunsAreIndependent(t *testing.T) {
	r, err := reactGraph(NodeFunc(func(_ context.Context, s core.ConversationState) ([]core.Message, error) {
		if s.Len() < 3 {
			return []core.Message{testutil.ToolCallMessage(testutil.Call("c", "echo"))}, nil
		}
		return []core.Message{core.NewAssistantMessage(s.Messages[0].Content)}, nil
	}), &echoTools{}).Compile()
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			final, err := r.Run(context.Background(), core.NewConversationState(core.NewUserMessage(fmt.Sprintf("q%d", i))))
			if err == nil {
				results[i] = final.FinalContent()
			}
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		assert.Equal(t, fmt.Sprintf("q%d", i), got)
	}
}
