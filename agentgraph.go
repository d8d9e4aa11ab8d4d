// Package agentgraph provides a high-level façade over the tool-calling agent
// runtime. Most applications interact with this package by:
//  1. Building a config.Config (defaults, YAML file, environment overlay)
//  2. Creating an AgentGraph via New, which connects the model, builtin tools
//     and remote MCP providers into one registry and compiles the graph
//  3. Asking one-shot questions (Ask) or holding a conversation (Chat)
//
// The façade delegates orchestration to runner.Runner while keeping setup and
// usage ergonomics concise. Close releases remote tool provider sessions.
package agentgraph

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/agentgraph/config"
	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/flow"
	"github.com/hupe1980/agentgraph/graph"
	"github.com/hupe1980/agentgraph/logging"
	"github.com/hupe1980/agentgraph/model"
	anthropicmodel "github.com/hupe1980/agentgraph/model/anthropic"
	openaimodel "github.com/hupe1980/agentgraph/model/openai"
	"github.com/hupe1980/agentgraph/runner"
	"github.com/hupe1980/agentgraph/session"
	"github.com/hupe1980/agentgraph/tool"
	"github.com/hupe1980/agentgraph/tool/builtin"
	"github.com/hupe1980/agentgraph/tool/mcp"
)

// Options configures the AgentGraph instance beyond what config.Config covers.
type Options struct {
	// Model overrides the model built from the configuration. Required for
	// the mock provider.
	Model model.Model

	// Tools are registered in addition to the builtin tools.
	Tools []tool.Tool

	// Providers are queried in addition to the configured MCP servers.
	Providers []tool.ProviderSpec

	// MCP configures the client used for configured MCP servers.
	MCP func(o *mcp.Options)

	// SessionStore backs Chat (defaults to an in-memory store).
	SessionStore session.Store

	// Callbacks are invoked around graph node executions.
	Callbacks *graph.CallbackManager

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// AgentGraph aggregates the tool registry and the runner.
type AgentGraph struct {
	cfg      config.Config
	registry *tool.Registry
	runner   *runner.Runner
	logger   logging.Logger
}

// New validates cfg, builds the model and tool registry and compiles the
// agent graph. Remote providers are connected here; call Close when done.
func New(ctx context.Context, cfg config.Config, optFns ...func(o *Options)) (*AgentGraph, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := logging.OrNoOp(opts.Logger)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	m := opts.Model
	if m == nil {
		var err error
		if m, err = NewModel(cfg.Model); err != nil {
			return nil, err
		}
	}

	var static []tool.Tool
	if cfg.Tools.Builtin {
		static = append(static, builtin.Tools(func(o *builtin.Options) {
			o.AlphaVantageAPIKey = cfg.Tools.AlphaVantageAPIKey
			o.SearchRegion = cfg.Tools.SearchRegion
			o.Enabled = cfg.Tools.Enabled
		})...)
	}
	static = append(static, opts.Tools...)

	providers := make([]tool.ProviderSpec, 0, len(cfg.Providers)+len(opts.Providers))
	for _, pc := range cfg.Providers {
		var mcpOpts []func(o *mcp.Options)
		if opts.MCP != nil {
			mcpOpts = append(mcpOpts, opts.MCP)
		}
		providers = append(providers, tool.ProviderSpec{
			Provider: mcp.NewProvider(pc, mcpOpts...),
			Optional: pc.Optional,
		})
	}
	providers = append(providers, opts.Providers...)

	registry, err := tool.NewRegistry(ctx, func(o *tool.RegistryOptions) {
		o.Tools = static
		o.Providers = providers
		o.Logger = logger
	})
	if err != nil {
		return nil, err
	}

	r, err := runner.New(m, registry, func(o *runner.Options) {
		o.MaxHops = cfg.Runtime.MaxHops
		o.ModelTimeout = cfg.Runtime.ModelTimeout
		o.ToolTimeout = cfg.Runtime.ToolTimeout
		o.MaxParallelTools = cfg.Runtime.MaxParallelTools
		if cfg.Runtime.Instruction != "" {
			o.Instruction = flow.NewInstructionFromText(cfg.Runtime.Instruction, nil)
		}
		o.SessionStore = opts.SessionStore
		o.Callbacks = opts.Callbacks
		o.Logger = logger
	})
	if err != nil {
		return nil, errors.Join(err, registry.Close())
	}

	info := m.Info()
	logger.Info("agentgraph.ready",
		"model", info.Name,
		"provider", info.Provider,
		"tools", registry.Len(),
		"skipped_providers", len(registry.Skipped()),
	)

	return &AgentGraph{cfg: cfg, registry: registry, runner: r, logger: logger}, nil
}

// NewModel builds the model adapter selected by mc.
func NewModel(mc config.ModelConfig) (model.Model, error) {
	switch mc.Provider {
	case config.ProviderOpenAI:
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			if mc.Name != "" {
				o.Model = mc.Name
			}
			o.Temperature = mc.Temperature
			if mc.MaxTokens > 0 {
				o.MaxCompletionTokens = mc.MaxTokens
			}
			o.APIKey = mc.APIKey
			o.BaseURL = mc.BaseURL
			o.MaxRetries = mc.MaxRetries
		}), nil
	case config.ProviderAnthropic:
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if mc.Name != "" {
				o.Model = anthropic.Model(mc.Name)
			}
			o.Temperature = mc.Temperature
			if mc.MaxTokens > 0 {
				o.MaxTokens = mc.MaxTokens
			}
			o.APIKey = mc.APIKey
			o.BaseURL = mc.BaseURL
			o.MaxRetries = mc.MaxRetries
		}), nil
	case config.ProviderMock:
		return nil, errors.New("mock provider requires Options.Model")
	default:
		return nil, fmt.Errorf("unsupported model provider %q", mc.Provider)
	}
}

// Ask runs a fresh conversation and returns the final assistant content.
func (g *AgentGraph) Ask(ctx context.Context, utterance string) (string, error) {
	final, err := g.runner.Invoke(ctx, utterance)
	if err != nil {
		return "", err
	}
	return final.FinalContent(), nil
}

// Invoke runs a fresh conversation and returns the full final state.
func (g *AgentGraph) Invoke(ctx context.Context, utterance string) (core.ConversationState, error) {
	return g.runner.Invoke(ctx, utterance)
}

// Chat continues the conversation stored under sessionID.
func (g *AgentGraph) Chat(ctx context.Context, sessionID, utterance string) (string, error) {
	final, err := g.runner.Chat(ctx, sessionID, utterance)
	if err != nil {
		return "", err
	}
	return final.FinalContent(), nil
}

// Reset forgets the conversation stored under sessionID.
func (g *AgentGraph) Reset(ctx context.Context, sessionID string) error {
	return g.runner.Reset(ctx, sessionID)
}

// Tools lists the merged registry in declaration order.
func (g *AgentGraph) Tools() []tool.Descriptor { return g.registry.List() }

// SkippedProviders names optional providers that were unavailable.
func (g *AgentGraph) SkippedProviders() []string { return g.registry.Skipped() }

// Model returns information about the bound model.
func (g *AgentGraph) Model() model.Info { return g.runner.Model() }

// Runner exposes the underlying runner.
func (g *AgentGraph) Runner() *runner.Runner { return g.runner }

// CancelAll aborts every in-flight run.
func (g *AgentGraph) CancelAll() int { return g.runner.CancelAll() }

// Close releases remote provider sessions.
func (g *AgentGraph) Close() error {
	return g.registry.Close()
}
