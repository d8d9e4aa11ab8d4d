package tool

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/logging"
)

// SourceStatic names tools registered directly in code.
const SourceStatic = "static"

// Provider is a remote source of tools (e.g. an MCP server). ListTools is
// called once while the registry is built and must be the first call that
// performs I/O: constructors only record configuration, so a provider the
// registry never listed holds nothing to release. Providers implementing
// io.Closer are closed by the registry, including those skipped or abandoned
// because construction failed.
type Provider interface {
	Name() string
	ListTools(ctx context.Context) ([]Tool, error)
}

// ProviderSpec declares a provider and whether its failure is tolerated.
type ProviderSpec struct {
	Provider Provider
	// Optional providers that fail to answer are logged and skipped instead
	// of failing registry construction.
	Optional bool
}

// RegistryOptions configures NewRegistry.
type RegistryOptions struct {
	Tools     []Tool
	Providers []ProviderSpec
	Logger    logging.Logger
}

// Resolver looks tools up by name. The tool dispatch node depends on this
// rather than on *Registry.
type Resolver interface {
	Resolve(name string) (Tool, error)
}

// Registry is the immutable, name-indexed set of tools available to a run.
// It is safe for concurrent reads.
type Registry struct {
	tools     map[string]Tool
	sources   map[string]string
	order     []string
	providers []Provider
	skipped   []string
}

// NewRegistry builds a registry from static tools and providers. Providers
// are queried concurrently; their tools are merged in declaration order
// after the static tools. Any name exposed by two sources fails construction
// with *core.DuplicateToolNameError. A required provider that cannot be
// listed fails construction with *core.RegistryUnavailableError.
func NewRegistry(ctx context.Context, optFns ...func(o *RegistryOptions)) (*Registry, error) {
	opts := RegistryOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := logging.OrNoOp(opts.Logger)

	r := &Registry{
		tools:   make(map[string]Tool),
		sources: make(map[string]string),
	}

	for _, t := range opts.Tools {
		if err := r.add(t, SourceStatic); err != nil {
			closeRemaining(opts.Providers)
			return nil, err
		}
	}

	type listing struct {
		tools []Tool
		err   error
		dur   time.Duration
	}

	listings := make([]listing, len(opts.Providers))

	var wg sync.WaitGroup
	for i, spec := range opts.Providers {
		wg.Add(1)
		go func(idx int, p Provider) {
			defer wg.Done()
			start := time.Now()
			tools, err := p.ListTools(ctx)
			listings[idx] = listing{tools: tools, err: err, dur: time.Since(start)}
		}(i, spec.Provider)
	}
	wg.Wait()

	for i, spec := range opts.Providers {
		name := spec.Provider.Name()
		l := listings[i]
		if l.err != nil {
			if spec.Optional {
				logger.Warn("registry.provider.skipped", "provider", name, "error", l.err)
				closeProvider(spec.Provider)
				r.skipped = append(r.skipped, name)
				continue
			}
			_ = r.Close()
			closeRemaining(opts.Providers[i:])
			return nil, &core.RegistryUnavailableError{Provider: name, Err: l.err}
		}

		r.providers = append(r.providers, spec.Provider)
		for _, t := range l.tools {
			if err := r.add(t, name); err != nil {
				_ = r.Close()
				closeRemaining(opts.Providers[i+1:])
				return nil, err
			}
		}
		logger.Info("registry.provider.loaded", "provider", name, "tools", len(l.tools), "duration_ms", l.dur.Milliseconds())
	}

	logger.Debug("registry.built", "tools", len(r.order), "providers", len(r.providers), "skipped", len(r.skipped))

	return r, nil
}

func (r *Registry) add(t Tool, source string) error {
	name := t.Name()
	if prev, exists := r.sources[name]; exists {
		return &core.DuplicateToolNameError{Name: name, Sources: []string{prev, source}}
	}
	r.tools[name] = t
	r.sources[name] = source
	r.order = append(r.order, name)
	return nil
}

// Resolve returns the tool registered under name or *core.UnknownToolError.
func (r *Registry) Resolve(name string) (Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, &core.UnknownToolError{Name: name}
	}
	return t, nil
}

// List returns the descriptors of all tools in registration order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, Describe(r.tools[name], r.sources[name]))
	}
	return out
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }

// Skipped returns the optional providers that were unavailable at build time.
func (r *Registry) Skipped() []string {
	return append([]string(nil), r.skipped...)
}

// Close releases provider connections. Providers not implementing io.Closer
// are ignored.
func (r *Registry) Close() error {
	var errs []error
	for _, p := range r.providers {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	r.providers = nil
	return errors.Join(errs...)
}

func closeProvider(p Provider) {
	if c, ok := p.(io.Closer); ok {
		_ = c.Close()
	}
}

func closeRemaining(specs []ProviderSpec) {
	for _, s := range specs {
		closeProvider(s.Provider)
	}
}
