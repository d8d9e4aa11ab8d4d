package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgraph/logging"
	"github.com/hupe1980/agentgraph/tool/mcp"
)

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ProviderOpenAI, cfg.Model.Provider)
	assert.Equal(t, 25, cfg.Runtime.MaxHops)
	assert.Equal(t, 60*time.Second, cfg.Runtime.ModelTimeout)
	assert.Equal(t, 30*time.Second, cfg.Runtime.ToolTimeout)
	assert.Equal(t, 0, cfg.Runtime.MaxParallelTools)
	assert.True(t, cfg.Tools.Builtin)
	assert.Equal(t, "us-en", cfg.Tools.SearchRegion)
	assert.NoError(t, cfg.Validate())
}

func TestParse_OverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
model:
  provider: anthropic
  name: claude-sonnet-4-20250514
runtime:
  max_hops: 10
  tool_timeout: 5s
  instruction: "You are a helpful assistant."
tools:
  enabled: [calculator]
providers:
  - name: math
    transport: stdio
    command: python
    args: ["math_server.py"]
  - name: weather
    transport: streamable_http
    url: http://localhost:8000/mcp
    optional: true
logging:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, ProviderAnthropic, cfg.Model.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Model.Name)
	assert.Equal(t, 0.7, cfg.Model.Temperature, "untouched keys keep defaults")
	assert.Equal(t, 10, cfg.Runtime.MaxHops)
	assert.Equal(t, 5*time.Second, cfg.Runtime.ToolTimeout)
	assert.Equal(t, 60*time.Second, cfg.Runtime.ModelTimeout)
	assert.Equal(t, "You are a helpful assistant.", cfg.Runtime.Instruction)
	assert.Equal(t, []string{"calculator"}, cfg.Tools.Enabled)
	assert.True(t, cfg.Tools.Builtin)

	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, mcp.Config{Name: "math", Transport: mcp.TransportStdio, Command: "python", Args: []string{"math_server.py"}}, cfg.Providers[0])
	assert.True(t, cfg.Providers[1].Optional)

	assert.NoError(t, cfg.Validate())

	lc := cfg.LoggerConfig()
	assert.Equal(t, logging.LogLevelDebug, lc.Level)
	assert.Equal(t, logging.FormatJSON, lc.Format)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("runtime:\n  max_hopz: 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("runtime:\n  max_hops: 3\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Runtime.MaxHops)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(mapLookup(map[string]string{
		"AGENTGRAPH_MODEL_PROVIDER": "Anthropic",
		"AGENTGRAPH_MODEL":          "claude-3-7-sonnet-latest",
		"OPENAI_API_KEY":            "sk-openai",
		"ANTHROPIC_API_KEY":         "sk-ant",
		"ALPHAVANTAGE_API_KEY":      "av-key",
		"AGENTGRAPH_MAX_HOPS":       "7",
		"AGENTGRAPH_LOG_LEVEL":      "DEBUG",
	}))
	require.NoError(t, err)

	assert.Equal(t, ProviderAnthropic, cfg.Model.Provider)
	assert.Equal(t, "claude-3-7-sonnet-latest", cfg.Model.Name)
	assert.Empty(t, cfg.Model.APIKey, "keys are resolved by ResolveModel")
	assert.Equal(t, "av-key", cfg.Tools.AlphaVantageAPIKey)
	assert.Equal(t, 7, cfg.Runtime.MaxHops)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestApplyEnv_ExplicitValuesWin(t *testing.T) {
	cfg := Default()
	cfg.Model.APIKey = "from-file"
	cfg.Tools.AlphaVantageAPIKey = "file-av"

	env := mapLookup(map[string]string{
		"OPENAI_API_KEY":       "env",
		"ALPHAVANTAGE_API_KEY": "env-av",
		"AGENTGRAPH_MODEL":     "  ",
	})
	require.NoError(t, cfg.ApplyEnv(env))
	cfg.ResolveModel(env)

	assert.Equal(t, "from-file", cfg.Model.APIKey)
	assert.Equal(t, "file-av", cfg.Tools.AlphaVantageAPIKey)
	assert.Equal(t, defaultOpenAIModel, cfg.Model.Name, "blank values are ignored")
}

func TestResolveModel(t *testing.T) {
	env := mapLookup(map[string]string{
		"OPENAI_API_KEY":    "sk-openai",
		"ANTHROPIC_API_KEY": "sk-ant",
	})

	tests := []struct {
		name      string
		provider  string
		model     string
		wantModel string
		wantKey   string
	}{
		{name: "openai defaults", provider: ProviderOpenAI, wantModel: defaultOpenAIModel, wantKey: "sk-openai"},
		{name: "anthropic defaults", provider: ProviderAnthropic, wantModel: defaultAnthropicModel, wantKey: "sk-ant"},
		{name: "explicit model kept", provider: ProviderAnthropic, model: "claude-3-5-haiku-latest", wantModel: "claude-3-5-haiku-latest", wantKey: "sk-ant"},
		{name: "mock needs nothing", provider: ProviderMock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Model.Provider = tt.provider
			cfg.Model.Name = tt.model
			cfg.ResolveModel(env)

			assert.Equal(t, tt.wantModel, cfg.Model.Name)
			assert.Equal(t, tt.wantKey, cfg.Model.APIKey)
		})
	}
}

func TestResolveModel_ProviderFromEnv(t *testing.T) {
	env := mapLookup(map[string]string{
		"AGENTGRAPH_MODEL_PROVIDER": "anthropic",
		"OPENAI_API_KEY":            "sk-openai",
		"ANTHROPIC_API_KEY":         "sk-ant",
	})

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(env))
	cfg.ResolveModel(env)

	assert.Equal(t, ProviderAnthropic, cfg.Model.Provider)
	assert.Equal(t, defaultAnthropicModel, cfg.Model.Name)
	assert.Equal(t, "sk-ant", cfg.Model.APIKey)
}

func TestApplyEnv_BadMaxHops(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(mapLookup(map[string]string{"AGENTGRAPH_MAX_HOPS": "many"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AGENTGRAPH_MAX_HOPS")
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Model.Provider = "llama"
	cfg.Model.Temperature = 3
	cfg.Runtime.MaxHops = 0
	cfg.Runtime.ToolTimeout = -time.Second
	cfg.Runtime.MaxParallelTools = -1
	cfg.Providers = []mcp.Config{
		{Name: "a", Transport: mcp.TransportStdio},
		{Name: "b", Transport: "carrier-pigeon"},
		{Name: "b", Transport: mcp.TransportSSE, URL: "http://x"},
	}
	cfg.Logging.Level = "loud"
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		`model.provider: unsupported provider "llama"`,
		"model.temperature",
		"runtime.max_hops",
		"runtime.tool_timeout",
		"runtime.max_parallel_tools",
		"providers[0]: mcp: provider \"a\": command is required",
		"providers[1]: mcp: provider \"b\": unsupported transport",
		`providers[2]: duplicate provider name "b"`,
		"logging.level",
		`logging.format: unsupported format "xml"`,
	} {
		assert.Contains(t, msg, want)
	}
}
