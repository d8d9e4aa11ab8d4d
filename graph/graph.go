package graph

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/agentgraph/core"
)

// Reserved node names.
const (
	// Start is the virtual source of the entry edge: AddEdge(Start, "agent")
	// is equivalent to SetEntryPoint("agent").
	Start = "__start__"
	// End is the virtual terminal node. Routing to End finishes the run.
	End = "__end__"
)

// Node is a unit of graph execution. It reads the full conversation state and
// returns a partial update that the runtime appends. Nodes must not retain or
// mutate the state they receive.
type Node interface {
	Run(ctx context.Context, state core.ConversationState) ([]core.Message, error)
}

// NodeFunc adapts a plain function to the Node interface.
type NodeFunc func(ctx context.Context, state core.ConversationState) ([]core.Message, error)

// Run implements Node.
func (f NodeFunc) Run(ctx context.Context, state core.ConversationState) ([]core.Message, error) {
	return f(ctx, state)
}

// Router selects the next node after its source node ran. It must be a pure
// function of the state and return one of the targets declared with
// AddConditionalEdges.
type Router func(state core.ConversationState) string

type conditionalEdge struct {
	router  Router
	targets []string
}

// Graph is a mutable builder. It is not safe for concurrent use; compile it
// into a Runnable to execute.
type Graph struct {
	nodes       map[string]Node
	order       []string
	edges       map[string][]string
	conditional map[string][]conditionalEdge
	edgeOrder   []string
	entries     []string
	problems    []string
}

// New creates an empty graph builder.
func New() *Graph {
	return &Graph{
		nodes:       make(map[string]Node),
		edges:       make(map[string][]string),
		conditional: make(map[string][]conditionalEdge),
	}
}

// AddNode registers a node under name. Registration problems (empty or
// reserved names, nil nodes, duplicates) are reported by Compile.
func (g *Graph) AddNode(name string, n Node) *Graph {
	switch {
	case strings.TrimSpace(name) == "":
		g.problems = append(g.problems, "node name must not be empty")
		return g
	case name == Start || name == End:
		g.problems = append(g.problems, fmt.Sprintf("node name %q is reserved", name))
		return g
	case n == nil:
		g.problems = append(g.problems, fmt.Sprintf("node %q is nil", name))
		return g
	}

	if _, exists := g.nodes[name]; exists {
		g.problems = append(g.problems, fmt.Sprintf("node %q is declared more than once", name))
		return g
	}

	g.nodes[name] = n
	g.order = append(g.order, name)
	return g
}

// AddNodeFunc is shorthand for AddNode(name, NodeFunc(fn)).
func (g *Graph) AddNodeFunc(name string, fn func(ctx context.Context, state core.ConversationState) ([]core.Message, error)) *Graph {
	if fn == nil {
		return g.AddNode(name, nil)
	}
	return g.AddNode(name, NodeFunc(fn))
}

// AddEdge adds an unconditional edge. An edge from Start declares the entry point.
func (g *Graph) AddEdge(from, to string) *Graph {
	if from == Start {
		g.entries = append(g.entries, to)
		return g
	}
	g.noteSource(from)
	g.edges[from] = append(g.edges[from], to)
	return g
}

// SetEntryPoint declares the node the run starts at.
func (g *Graph) SetEntryPoint(name string) *Graph {
	return g.AddEdge(Start, name)
}

// AddConditionalEdges makes router decide the successor of from. targets is
// the complete set of names the router may return (End included if the
// router can finish the run).
func (g *Graph) AddConditionalEdges(from string, router Router, targets ...string) *Graph {
	g.noteSource(from)
	g.conditional[from] = append(g.conditional[from], conditionalEdge{router: router, targets: slices.Clone(targets)})
	return g
}

func (g *Graph) noteSource(from string) {
	if _, seen := g.edges[from]; seen {
		return
	}
	if _, seen := g.conditional[from]; seen {
		return
	}
	g.edgeOrder = append(g.edgeOrder, from)
}

// Compile validates the graph and returns an executable Runnable. All
// violations are collected into a single *core.GraphValidationError. Compile
// does not modify the builder, so compiling twice yields equivalent results.
func (g *Graph) Compile(optFns ...func(o *Options)) (*Runnable, error) {
	opts := Options{MaxHops: DefaultMaxHops}
	for _, fn := range optFns {
		fn(&opts)
	}

	if violations := g.validate(opts); len(violations) > 0 {
		return nil, &core.GraphValidationError{Violations: violations}
	}

	r := &Runnable{
		nodes:       make(map[string]Node, len(g.nodes)),
		order:       slices.Clone(g.order),
		static:      make(map[string]string),
		conditional: make(map[string]conditionalEdge),
		entry:       g.entries[0],
		opts:        opts,
	}
	for name, n := range g.nodes {
		r.nodes[name] = n
	}
	for from, tos := range g.edges {
		r.static[from] = tos[0]
	}
	for from, ces := range g.conditional {
		r.conditional[from] = conditionalEdge{router: ces[0].router, targets: slices.Clone(ces[0].targets)}
	}
	if r.opts.HopNode == "" {
		r.opts.HopNode = r.entry
	}

	return r, nil
}

func (g *Graph) declared(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

func (g *Graph) validate(opts Options) []string {
	violations := slices.Clone(g.problems)
	addf := func(format string, args ...any) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	switch len(g.entries) {
	case 0:
		addf("graph has no entry point")
	case 1:
	default:
		addf("graph has %d entry points (%s), expected exactly one", len(g.entries), strings.Join(g.entries, ", "))
	}
	for _, e := range g.entries {
		if !g.declared(e) {
			addf("entry point %q is not a declared node", e)
		}
	}

	if opts.HopNode != "" && !g.declared(opts.HopNode) {
		addf("hop node %q is not a declared node", opts.HopNode)
	}

	for _, from := range g.edgeOrder {
		if !g.declared(from) {
			addf("edge source %q is not a declared node", from)
		}

		for _, to := range g.edges[from] {
			if to != End && !g.declared(to) {
				addf("edge %q -> %q targets an undeclared node", from, to)
			}
		}

		for _, ce := range g.conditional[from] {
			if ce.router == nil {
				addf("conditional edge from %q has no router", from)
			}
			if len(ce.targets) == 0 {
				addf("conditional edge from %q declares no targets", from)
			}
			for _, to := range ce.targets {
				if to != End && !g.declared(to) {
					addf("conditional edge from %q targets undeclared node %q", from, to)
				}
			}
		}

		if n := len(g.edges[from]) + len(g.conditional[from]); n > 1 {
			addf("node %q has %d conflicting outgoing edges", from, n)
		}
	}

	for _, name := range g.order {
		if len(g.edges[name]) == 0 && len(g.conditional[name]) == 0 {
			addf("node %q has no outgoing edge", name)
		}
	}

	if len(g.entries) == 1 && g.declared(g.entries[0]) {
		reached := g.reachableFrom(g.entries[0])
		for _, name := range g.order {
			if !reached[name] {
				addf("node %q is unreachable from entry point %q", name, g.entries[0])
			}
		}
	}

	return violations
}

func (g *Graph) reachableFrom(entry string) map[string]bool {
	seen := map[string]bool{entry: true}
	queue := []string{entry}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		next := slices.Clone(g.edges[cur])
		for _, ce := range g.conditional[cur] {
			next = append(next, ce.targets...)
		}
		for _, n := range next {
			if n == End || seen[n] || !g.declared(n) {
				continue
			}
			seen[n] = true
			queue = append(queue, n)
		}
	}
	return seen
}
