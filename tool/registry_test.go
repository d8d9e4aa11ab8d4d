package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgraph/core"
)

type fakeProvider struct {
	name   string
	tools  []Tool
	err    error
	closed bool
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) ListTools(context.Context) ([]Tool, error) { return p.tools, p.err }

func (p *fakeProvider) Close() error {
	p.closed = true
	return nil
}

func named(name string) Tool {
	return NewFunctionTool(name, name+" tool", nil, func(context.Context, map[string]any) (any, error) {
		return name, nil
	})
}

func TestRegistry_MergesInDeclarationOrder(t *testing.T) {
	a := &fakeProvider{name: "a", tools: []Tool{named("a1"), named("a2")}}
	b := &fakeProvider{name: "b", tools: []Tool{named("b1")}}

	reg, err := NewRegistry(context.Background(), func(o *RegistryOptions) {
		o.Tools = []Tool{named("calculator")}
		o.Providers = []ProviderSpec{{Provider: a}, {Provider: b}}
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"calculator", "a1", "a2", "b1"}, reg.Names())
	assert.Equal(t, 4, reg.Len())

	list := reg.List()
	assert.Equal(t, SourceStatic, list[0].Source)
	assert.Equal(t, "b", list[3].Source)

	got, err := reg.Resolve("a2")
	require.NoError(t, err)
	assert.Equal(t, "a2", got.Name())

	require.NoError(t, reg.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	reg, err := NewRegistry(context.Background())
	require.NoError(t, err)

	_, err = reg.Resolve("foo")
	var unknown *core.UnknownToolError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "unknown tool: foo", err.Error())
}

func TestRegistry_DuplicateName(t *testing.T) {
	p := &fakeProvider{name: "demo", tools: []Tool{named("calculator")}}

	_, err := NewRegistry(context.Background(), func(o *RegistryOptions) {
		o.Tools = []Tool{named("calculator")}
		o.Providers = []ProviderSpec{{Provider: p}}
	})

	var dup *core.DuplicateToolNameError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "calculator", dup.Name)
	assert.Equal(t, []string{SourceStatic, "demo"}, dup.Sources)
	assert.True(t, p.closed)
}

func TestRegistry_RequiredProviderUnavailable(t *testing.T) {
	down := &fakeProvider{name: "expense", err: errors.New("connection refused")}

	_, err := NewRegistry(context.Background(), func(o *RegistryOptions) {
		o.Providers = []ProviderSpec{{Provider: down}}
	})

	var unavailable *core.RegistryUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, "expense", unavailable.Provider)
}

func TestRegistry_OptionalProviderSkipped(t *testing.T) {
	down := &fakeProvider{name: "expense", err: errors.New("connection refused")}
	up := &fakeProvider{name: "math", tools: []Tool{named("add")}}

	reg, err := NewRegistry(context.Background(), func(o *RegistryOptions) {
		o.Providers = []ProviderSpec{{Provider: down, Optional: true}, {Provider: up}}
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"add"}, reg.Names())
	assert.Equal(t, []string{"expense"}, reg.Skipped())
	assert.True(t, down.closed)
	assert.False(t, up.closed)

	require.NoError(t, reg.Close())
	assert.True(t, up.closed)
}

func TestRegistry_ClosesEveryProviderOnFailure(t *testing.T) {
	optional := &fakeProvider{name: "weather", err: errors.New("list failed")}
	loaded := &fakeProvider{name: "math", tools: []Tool{named("add")}}
	required := &fakeProvider{name: "expense", err: errors.New("connection refused")}
	later := &fakeProvider{name: "search", tools: []Tool{named("search")}}

	_, err := NewRegistry(context.Background(), func(o *RegistryOptions) {
		o.Providers = []ProviderSpec{
			{Provider: optional, Optional: true},
			{Provider: loaded},
			{Provider: required},
			{Provider: later},
		}
	})

	var unavailable *core.RegistryUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, "expense", unavailable.Provider)

	for _, p := range []*fakeProvider{optional, loaded, required, later} {
		assert.True(t, p.closed, p.name)
	}
}

func TestRegistry_DuplicateStaticToolClosesProviders(t *testing.T) {
	p := &fakeProvider{name: "math", tools: []Tool{named("add")}}

	_, err := NewRegistry(context.Background(), func(o *RegistryOptions) {
		o.Tools = []Tool{named("calculator"), named("calculator")}
		o.Providers = []ProviderSpec{{Provider: p}}
	})

	var dup *core.DuplicateToolNameError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, []string{SourceStatic, SourceStatic}, dup.Sources)
	assert.True(t, p.closed)
}
