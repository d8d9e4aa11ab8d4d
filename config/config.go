// Package config holds the explicit configuration of an agentgraph process:
// which model to talk to, runtime bounds, builtin tools, remote tool
// providers and logging. Values come from Default, an optional YAML file and
// an environment overlay applied by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentgraph/logging"
	"github.com/hupe1980/agentgraph/tool/mcp"
)

// Model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

const (
	defaultMaxHops        = 25
	defaultModelTimeout   = 60 * time.Second
	defaultToolTimeout    = 30 * time.Second
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-sonnet-4-20250514"
	defaultSearchRegion   = "us-en"
)

// Config is the root configuration.
type Config struct {
	Model     ModelConfig   `yaml:"model"`
	Runtime   RuntimeConfig `yaml:"runtime"`
	Tools     ToolsConfig   `yaml:"tools"`
	Providers []mcp.Config  `yaml:"providers"`
	Logging   LoggingConfig `yaml:"logging"`
}

// ModelConfig selects the LLM.
type ModelConfig struct {
	Provider    string  `yaml:"provider"` // openai | anthropic | mock
	Name        string  `yaml:"name"` // empty selects DefaultModelName(Provider)
	APIKey      string  `yaml:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
	MaxRetries  int     `yaml:"max_retries"` // negative keeps the SDK default
}

// RuntimeConfig bounds a single run.
type RuntimeConfig struct {
	MaxHops          int           `yaml:"max_hops"`
	ModelTimeout     time.Duration `yaml:"model_timeout"`
	ToolTimeout      time.Duration `yaml:"tool_timeout"`
	MaxParallelTools int           `yaml:"max_parallel_tools"` // 0 = unbounded
	Instruction      string        `yaml:"instruction,omitempty"`
}

// ToolsConfig configures the builtin tools.
type ToolsConfig struct {
	Builtin            bool     `yaml:"builtin"`
	Enabled            []string `yaml:"enabled,omitempty"` // empty = all builtins
	AlphaVantageAPIKey string   `yaml:"alphavantage_api_key,omitempty"`
	SearchRegion       string   `yaml:"search_region"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`  // debug | info | warn | error
	Format    string `yaml:"format"` // pretty | text | json
	AddSource bool   `yaml:"add_source"`
	NoColor   bool   `yaml:"no_color"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Model: ModelConfig{
			Provider:    ProviderOpenAI,
			Temperature: 0.7,
			MaxTokens:   4096,
			MaxRetries:  -1,
		},
		Runtime: RuntimeConfig{
			MaxHops:      defaultMaxHops,
			ModelTimeout: defaultModelTimeout,
			ToolTimeout:  defaultToolTimeout,
		},
		Tools: ToolsConfig{
			Builtin:      true,
			SearchRegion: defaultSearchRegion,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: logging.FormatPretty,
		},
	}
}

// Load reads a YAML file on top of Default. Keys missing from the file keep
// their default value.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overlays values from the environment. lookup is usually
// os.LookupEnv; tests pass a map-backed function. Blank values are ignored.
//
// Recognized variables: ALPHAVANTAGE_API_KEY, AGENTGRAPH_MODEL,
// AGENTGRAPH_MODEL_PROVIDER, AGENTGRAPH_MAX_HOPS and AGENTGRAPH_LOG_LEVEL.
// Provider API keys depend on the final provider and are read by
// ResolveModel once every other override has been applied.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("AGENTGRAPH_MODEL_PROVIDER"); ok {
		c.Model.Provider = strings.ToLower(v)
	}
	if v, ok := get("AGENTGRAPH_MODEL"); ok {
		c.Model.Name = v
	}

	if v, ok := get("ALPHAVANTAGE_API_KEY"); ok && c.Tools.AlphaVantageAPIKey == "" {
		c.Tools.AlphaVantageAPIKey = v
	}

	if v, ok := get("AGENTGRAPH_MAX_HOPS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse AGENTGRAPH_MAX_HOPS: %w", err)
		}
		c.Runtime.MaxHops = n
	}

	if v, ok := get("AGENTGRAPH_LOG_LEVEL"); ok {
		c.Logging.Level = strings.ToLower(v)
	}

	return nil
}

// ResolveModel fills the model name and API key that were not set
// explicitly, based on the selected provider: the name falls back to
// DefaultModelName and the key is read from OPENAI_API_KEY or
// ANTHROPIC_API_KEY. Call it after all overrides so a provider switch never
// carries over another provider's model or key.
func (c *Config) ResolveModel(lookup func(string) (string, bool)) {
	if c.Model.Name == "" {
		c.Model.Name = DefaultModelName(c.Model.Provider)
	}

	if c.Model.APIKey != "" {
		return
	}

	var key string
	switch c.Model.Provider {
	case ProviderOpenAI:
		key = "OPENAI_API_KEY"
	case ProviderAnthropic:
		key = "ANTHROPIC_API_KEY"
	default:
		return
	}
	if v, ok := lookup(key); ok {
		c.Model.APIKey = strings.TrimSpace(v)
	}
}

// DefaultModelName returns the model used for provider when none is
// configured, or "" for providers without a default.
func DefaultModelName(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return defaultOpenAIModel
	case ProviderAnthropic:
		return defaultAnthropicModel
	default:
		return ""
	}
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error

	switch c.Model.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("model.provider: unsupported provider %q", c.Model.Provider))
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		errs = append(errs, fmt.Errorf("model.temperature: %v is outside [0, 2]", c.Model.Temperature))
	}
	if c.Model.MaxTokens < 0 {
		errs = append(errs, errors.New("model.max_tokens: must not be negative"))
	}

	if c.Runtime.MaxHops < 1 {
		errs = append(errs, fmt.Errorf("runtime.max_hops: must be at least 1, got %d", c.Runtime.MaxHops))
	}
	if c.Runtime.ModelTimeout < 0 {
		errs = append(errs, errors.New("runtime.model_timeout: must not be negative"))
	}
	if c.Runtime.ToolTimeout < 0 {
		errs = append(errs, errors.New("runtime.tool_timeout: must not be negative"))
	}
	if c.Runtime.MaxParallelTools < 0 {
		errs = append(errs, errors.New("runtime.max_parallel_tools: must not be negative"))
	}

	seen := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("providers[%d]: %w", i, err))
		}
		if p.Name != "" && seen[p.Name] {
			errs = append(errs, fmt.Errorf("providers[%d]: duplicate provider name %q", i, p.Name))
		}
		seen[p.Name] = true
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	switch c.Logging.Format {
	case logging.FormatPretty, logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("logging.format: unsupported format %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// LoggerConfig converts the logging section for logging.NewLogger.
func (c Config) LoggerConfig() *logging.LoggerConfig {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		level = logging.LogLevelInfo
	}
	return &logging.LoggerConfig{
		Level:     level,
		Format:    c.Logging.Format,
		AddSource: c.Logging.AddSource,
		NoColor:   c.Logging.NoColor,
		Component: "agentgraph",
	}
}
