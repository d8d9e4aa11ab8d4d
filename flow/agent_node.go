package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/logging"
	"github.com/hupe1980/agentgraph/model"
	"github.com/hupe1980/agentgraph/tool"
)

// AgentNodeOptions configures an AgentNode.
type AgentNodeOptions struct {
	// Name is used in log events. Defaults to "agent".
	Name string

	// Instruction is sent as system prompt with every request.
	Instruction Instruction

	// Timeout bounds a single model call. Zero means no timeout.
	Timeout time.Duration

	// Logger receives model call events.
	Logger logging.Logger
}

// AgentNode sends the conversation to the model and appends the single
// assistant message it returns.
type AgentNode struct {
	model model.Model
	tools []model.ToolDefinition
	opts  AgentNodeOptions
}

// NewAgentNode creates an agent node bound to m, advertising tools.
func NewAgentNode(m model.Model, tools []model.ToolDefinition, optFns ...func(o *AgentNodeOptions)) (*AgentNode, error) {
	if m == nil {
		return nil, errors.New("agent node requires a model")
	}

	opts := AgentNodeOptions{Name: "agent"}
	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	return &AgentNode{
		model: m,
		tools: append([]model.ToolDefinition(nil), tools...),
		opts:  opts,
	}, nil
}

// ToolDefinitions converts registry descriptors into model tool definitions.
func ToolDefinitions(descs []tool.Descriptor) []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(descs))
	for _, d := range descs {
		defs = append(defs, model.NewToolDefinition(d.Name, d.Description, d.Parameters))
	}
	return defs
}

// Run implements graph.Node.
func (n *AgentNode) Run(ctx context.Context, state core.ConversationState) ([]core.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, &core.CanceledError{Cause: context.Cause(ctx)}
	}

	info := n.model.Info()

	instructions, err := n.opts.Instruction.Resolve(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("resolve instruction: %w", err)
	}

	callCtx := ctx
	if n.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, n.opts.Timeout)
		defer cancel()
	}

	req := model.Request{
		Instructions: instructions,
		Messages:     state.Clone().Messages,
		Tools:        n.tools,
	}

	start := time.Now()
	resp, err := n.model.Generate(callCtx, req)
	dur := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return nil, &core.CanceledError{Cause: context.Cause(ctx)}
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("model call timed out after %s: %w", n.opts.Timeout, err)
		}
		logging.LogModelCall(n.opts.Logger, logging.ModelCall{Node: n.opts.Name, Model: info.Name, Duration: dur, Err: err})
		return nil, &core.UpstreamModelError{Model: info.Name, Err: err}
	}

	if resp == nil {
		return nil, &core.UpstreamModelError{Model: info.Name, Err: errors.New("model returned no response")}
	}

	msg := normalizeAssistant(resp.Message)

	call := logging.ModelCall{
		Node:         n.opts.Name,
		Model:        info.Name,
		ToolCalls:    len(msg.ToolCalls),
		FinishReason: resp.FinishReason,
		Duration:     dur,
	}
	if resp.Usage != nil {
		call.Tokens = resp.Usage.TotalTokens
	}
	logging.LogModelCall(n.opts.Logger, call)

	return []core.Message{msg}, nil
}

// normalizeAssistant forces the assistant role and makes every tool call id
// present and unique within the message.
func normalizeAssistant(in core.Message) core.Message {
	msg := in
	msg.Role = core.RoleAssistant
	msg.ToolCallID = ""
	if msg.ID == "" {
		msg.ID = core.NewID()
	}

	if len(in.ToolCalls) == 0 {
		msg.ToolCalls = nil
		return msg
	}

	msg.ToolCalls = make([]core.ToolCall, len(in.ToolCalls))
	seen := make(map[string]struct{}, len(in.ToolCalls))
	for i, c := range in.ToolCalls {
		if _, dup := seen[c.ID]; c.ID == "" || dup {
			c.ID = "call_" + core.NewID()
		}
		seen[c.ID] = struct{}{}
		if c.Arguments == nil {
			c.Arguments = map[string]any{}
		}
		msg.ToolCalls[i] = c
	}

	return msg
}
