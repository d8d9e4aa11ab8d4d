// Package mcp exposes tools served by Model Context Protocol servers as
// tool.Tool values. A Provider connects lazily on the first ListTools call
// and keeps the session open until Close.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hupe1980/agentgraph/tool"
)

// Supported transports.
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable_http"
	TransportSSE            = "sse"
)

// Config describes how to reach one MCP server.
type Config struct {
	Name      string            `yaml:"name"`
	Transport string            `yaml:"transport"`
	Command   string            `yaml:"command,omitempty"`
	Args      []string          `yaml:"args,omitempty"`
	Env       map[string]string `yaml:"env,omitempty"`
	URL       string            `yaml:"url,omitempty"`
	Optional  bool              `yaml:"optional,omitempty"`
}

// Validate checks that the transport specific fields are present.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("mcp: provider name is required")
	}
	switch c.Transport {
	case TransportStdio, "":
		if strings.TrimSpace(c.Command) == "" {
			return fmt.Errorf("mcp: provider %q: command is required for stdio transport", c.Name)
		}
	case TransportStreamableHTTP, TransportSSE:
		if strings.TrimSpace(c.URL) == "" {
			return fmt.Errorf("mcp: provider %q: url is required for %s transport", c.Name, c.Transport)
		}
	default:
		return fmt.Errorf("mcp: provider %q: unsupported transport %q", c.Name, c.Transport)
	}
	return nil
}

// Options configure a Provider.
type Options struct {
	// ClientName and ClientVersion identify this client to the server.
	ClientName    string
	ClientVersion string
	// Transport overrides the transport built from Config. Used by tests to
	// connect through in-memory transports.
	Transport mcpsdk.Transport
}

// Provider implements tool.Provider on top of an MCP client session.
type Provider struct {
	cfg    Config
	opts   Options
	client *mcpsdk.Client

	mu      sync.Mutex
	session *mcpsdk.ClientSession
}

// NewProvider creates a provider for cfg. No connection is made until ListTools.
func NewProvider(cfg Config, optFns ...func(o *Options)) *Provider {
	opts := Options{ClientName: "agentgraph", ClientVersion: "dev"}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Provider{
		cfg:    cfg,
		opts:   opts,
		client: mcpsdk.NewClient(&mcpsdk.Implementation{Name: opts.ClientName, Version: opts.ClientVersion}, nil),
	}
}

// Name returns the configured provider name.
func (p *Provider) Name() string { return p.cfg.Name }

// ListTools connects (once) and returns every tool the server exposes.
func (p *Provider) ListTools(ctx context.Context) ([]tool.Tool, error) {
	session, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}

	var tools []tool.Tool
	for t, err := range session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("mcp: list tools from %q: %w", p.cfg.Name, err)
		}
		tools = append(tools, &remoteTool{
			session:     session,
			name:        t.Name,
			description: t.Description,
			parameters:  toSchema(t.InputSchema),
		})
	}

	return tools, nil
}

// Close terminates the session, if any.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return nil
	}
	err := p.session.Close()
	p.session = nil
	return err
}

func (p *Provider) connect(ctx context.Context) (*mcpsdk.ClientSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != nil {
		return p.session, nil
	}

	transport := p.opts.Transport
	if transport == nil {
		var err error
		if transport, err = buildTransport(p.cfg); err != nil {
			return nil, err
		}
	}

	session, err := p.client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp: connect to %q: %w", p.cfg.Name, err)
	}
	p.session = session
	return session, nil
}

func buildTransport(cfg Config) (mcpsdk.Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Transport {
	case TransportStreamableHTTP:
		return &mcpsdk.StreamableClientTransport{Endpoint: cfg.URL}, nil
	case TransportSSE:
		return &mcpsdk.SSEClientTransport{Endpoint: cfg.URL}, nil
	default:
		// The subprocess outlives the registry build context, so it is not
		// bound to ctx; Close terminates it.
		// #nosec G204 -- command comes from operator configuration
		cmd := exec.Command(cfg.Command, cfg.Args...)
		if len(cfg.Env) > 0 {
			cmd.Env = append(os.Environ(), envList(cfg.Env)...)
		}
		return &mcpsdk.CommandTransport{Command: cmd}, nil
	}
}

func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// toSchema normalizes the decoded input schema into a map.
func toSchema(v any) map[string]any {
	switch s := v.(type) {
	case map[string]any:
		return s
	case nil:
	default:
		if b, err := json.Marshal(s); err == nil {
			var m map[string]any
			if json.Unmarshal(b, &m) == nil && m != nil {
				return m
			}
		}
	}
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

// remoteTool forwards calls to the MCP server over the shared session.
type remoteTool struct {
	session     *mcpsdk.ClientSession
	name        string
	description string
	parameters  map[string]any
}

func (t *remoteTool) Name() string { return t.name }

func (t *remoteTool) Description() string { return t.description }

func (t *remoteTool) Parameters() map[string]any { return t.parameters }

// Call invokes the remote tool. Structured content is returned as is; text
// content blocks are joined with newlines. A result flagged IsError becomes
// a *tool.ToolError carrying the text.
func (t *remoteTool) Call(ctx context.Context, args map[string]any) (any, error) {
	if args == nil {
		args = map[string]any{}
	}

	res, err := t.session.CallTool(ctx, &mcpsdk.CallToolParams{Name: t.name, Arguments: args})
	if err != nil {
		return nil, err
	}

	text := joinText(res.Content)
	if res.IsError {
		if text == "" {
			text = "remote tool reported an error"
		}
		return nil, tool.NewToolError(t.name, text, tool.CodeExecution)
	}

	if res.StructuredContent != nil {
		return res.StructuredContent, nil
	}
	return text, nil
}

func joinText(content []mcpsdk.Content) string {
	parts := make([]string, 0, len(content))
	for _, c := range content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
