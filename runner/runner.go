package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/flow"
	"github.com/hupe1980/agentgraph/graph"
	"github.com/hupe1980/agentgraph/logging"
	"github.com/hupe1980/agentgraph/model"
	"github.com/hupe1980/agentgraph/session"
	"github.com/hupe1980/agentgraph/tool"
)

// Node names of the prebuilt graph.
const (
	AgentNode = "agent"
	ToolsNode = "tools"
)

// DefaultMaxHops is the hop bound used when Options.MaxHops is not set.
const DefaultMaxHops = graph.DefaultMaxHops

// ErrCanceledByRunner is the cancellation cause of runs stopped by CancelAll.
var ErrCanceledByRunner = errors.New("canceled by runner")

// Catalog is the tool set a Runner dispatches against. *tool.Registry
// implements it.
type Catalog interface {
	tool.Resolver
	List() []tool.Descriptor
}

// Options holds dependency and configuration overrides passed to New.
type Options struct {
	// MaxHops limits agent node executions per run.
	MaxHops int
	// ModelTimeout bounds one model call; exceeding it fails the run.
	ModelTimeout time.Duration
	// ToolTimeout bounds one tool call; exceeding it is a tool failure.
	ToolTimeout time.Duration
	// MaxParallelTools limits concurrent tool calls of one turn (0 = unbounded).
	MaxParallelTools int
	// Instruction is sent as system prompt with every model request.
	Instruction flow.Instruction
	// SessionStore backs Chat.
	SessionStore session.Store
	// Logger receives run, node, model and tool events.
	Logger logging.Logger
	// Callbacks are invoked around graph node executions.
	Callbacks *graph.CallbackManager
}

// Runner executes the prebuilt agent/tools graph. Public methods are safe
// for concurrent use.
type Runner struct {
	model    model.Model
	catalog  Catalog
	graph    *graph.Runnable
	sessions session.Store
	logger   logging.Logger

	activeRuns map[string]context.CancelCauseFunc
	mu         sync.Mutex

	sessionLocks map[string]*sessionLock
	sessionMu    sync.Mutex
}

// sessionLock serializes turns of one session. refs counts holders and
// waiters; the entry is dropped when it reaches zero.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// New constructs a Runner bound to m and catalog.
func New(m model.Model, catalog Catalog, optFns ...func(o *Options)) (*Runner, error) {
	if m == nil {
		return nil, errors.New("runner requires a model")
	}
	if catalog == nil {
		catalog = flow.NewStaticTools()
	}

	opts := Options{
		MaxHops: DefaultMaxHops,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.SessionStore == nil {
		opts.SessionStore = session.NewInMemoryStore()
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	agentNode, err := flow.NewAgentNode(m, flow.ToolDefinitions(catalog.List()), func(o *flow.AgentNodeOptions) {
		o.Name = AgentNode
		o.Instruction = opts.Instruction
		o.Timeout = opts.ModelTimeout
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	toolNode := flow.NewToolNode(catalog, func(c *flow.ToolNodeConfig) {
		c.Name = ToolsNode
		c.MaxParallel = opts.MaxParallelTools
		c.Timeout = opts.ToolTimeout
		c.Logger = opts.Logger
	})

	runnable, err := graph.New().
		AddNode(AgentNode, agentNode).
		AddNode(ToolsNode, toolNode).
		SetEntryPoint(AgentNode).
		AddConditionalEdges(AgentNode, flow.ToolsCondition(ToolsNode), ToolsNode, graph.End).
		AddEdge(ToolsNode, AgentNode).
		Compile(func(o *graph.Options) {
			o.Name = "agent_executor"
			o.MaxHops = opts.MaxHops
			o.HopNode = AgentNode
			o.Logger = opts.Logger
			o.Callbacks = opts.Callbacks
		})
	if err != nil {
		return nil, fmt.Errorf("compile agent graph: %w", err)
	}

	return &Runner{
		model:        m,
		catalog:      catalog,
		graph:        runnable,
		sessions:     opts.SessionStore,
		logger:       opts.Logger,
		activeRuns:   make(map[string]context.CancelCauseFunc),
		sessionLocks: make(map[string]*sessionLock),
	}, nil
}

// Run executes the graph on state and returns the final state. On error the
// returned state holds every message produced before the failure.
func (r *Runner) Run(ctx context.Context, state core.ConversationState) (core.ConversationState, error) {
	runID := core.NewID()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.activeRuns, runID)
		r.mu.Unlock()
	}()

	return r.graph.Run(ctx, state)
}

// Invoke starts a fresh conversation from a single utterance.
func (r *Runner) Invoke(ctx context.Context, utterance string) (core.ConversationState, error) {
	if strings.TrimSpace(utterance) == "" {
		return core.ConversationState{}, errors.New("utterance must not be empty")
	}
	return r.Run(ctx, core.NewConversationState(core.NewUserMessage(utterance)))
}

// Chat continues the conversation stored under sessionID with utterance.
// The session is updated only when the run succeeds, so a failed turn can be
// retried. Calls for the same session are serialized.
func (r *Runner) Chat(ctx context.Context, sessionID, utterance string) (core.ConversationState, error) {
	if strings.TrimSpace(utterance) == "" {
		return core.ConversationState{}, errors.New("utterance must not be empty")
	}

	unlock := r.lockSession(sessionID)
	defer unlock()

	history, err := r.sessions.Load(ctx, sessionID)
	if err != nil {
		return core.ConversationState{}, fmt.Errorf("failed to load session: %w", err)
	}

	final, err := r.Run(ctx, history.Append(core.NewUserMessage(utterance)))
	if err != nil {
		return final, err
	}

	if err := r.sessions.Save(ctx, sessionID, final); err != nil {
		return final, fmt.Errorf("failed to save session: %w", err)
	}

	r.logger.Debug("runner.session.saved", "session_id", sessionID, "messages", final.Len())

	return final, nil
}

// Reset forgets the conversation stored under sessionID.
func (r *Runner) Reset(ctx context.Context, sessionID string) error {
	unlock := r.lockSession(sessionID)
	defer unlock()

	return r.sessions.Delete(ctx, sessionID)
}

// CancelAll aborts every in-flight run. Runs observe the cancellation before
// their next node or tool call and fail with *core.CanceledError.
func (r *Runner) CancelAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cancel := range r.activeRuns {
		cancel(ErrCanceledByRunner)
	}

	return len(r.activeRuns)
}

// ActiveRuns returns the number of in-flight runs.
func (r *Runner) ActiveRuns() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.activeRuns)
}

// Tools returns the descriptors advertised to the model.
func (r *Runner) Tools() []tool.Descriptor { return r.catalog.List() }

// Model returns information about the bound model.
func (r *Runner) Model() model.Info { return r.model.Info() }

// Graph returns the compiled graph.
func (r *Runner) Graph() *graph.Runnable { return r.graph }

func (r *Runner) lockSession(id string) (unlock func()) {
	r.sessionMu.Lock()
	l, ok := r.sessionLocks[id]
	if !ok {
		l = &sessionLock{}
		r.sessionLocks[id] = l
	}
	l.refs++
	r.sessionMu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		r.sessionMu.Lock()
		defer r.sessionMu.Unlock()

		l.refs--
		if l.refs == 0 {
			delete(r.sessionLocks, id)
		}
	}
}
