// Package main provides the agentgraph CLI entrypoint.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hupe1980/agentgraph"
	"github.com/hupe1980/agentgraph/config"
	"github.com/hupe1980/agentgraph/logging"
	"github.com/hupe1980/agentgraph/tool"
)

var version = "0.1.0"

type globalFlags struct {
	configPath string
	provider   string
	model      string
	maxHops    int
	logLevel   string
	logFormat  string
	noColor    bool
	jsonOut    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "agentgraph",
		Short: "Tool-calling conversational agent",
		Long: `agentgraph runs a conversational agent that loops between a language
model and its tools until the model answers without requesting a tool.

Tools come from the builtin set (calculator, get_stock_price, web_search)
and from MCP servers listed in the configuration file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.noColor {
				color.NoColor = true
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Path to a YAML configuration file")
	pf.StringVar(&flags.provider, "provider", "", "Model provider (openai, anthropic)")
	pf.StringVarP(&flags.model, "model", "m", "", "Model name")
	pf.IntVar(&flags.maxHops, "max-hops", 0, "Maximum agent turns per run")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&flags.logFormat, "log-format", "", "Log format (pretty, text, json)")
	pf.BoolVar(&flags.noColor, "no-color", false, "Disable colored output")
	pf.BoolVar(&flags.jsonOut, "json", false, "Output as JSON")

	rootCmd.AddCommand(askCmd(flags), chatCmd(flags), toolsCmd(flags))

	return rootCmd
}

func askCmd(flags *globalFlags) *cobra.Command {
	var showTrace bool

	cmd := &cobra.Command{
		Use:   "ask <utterance...>",
		Short: "Ask a single question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, err := build(ctx, flags)
			if err != nil {
				return report(cmd.ErrOrStderr(), err)
			}
			defer closeQuietly(g)

			final, err := g.Invoke(ctx, strings.Join(args, " "))
			if showTrace {
				renderTrace(cmd.OutOrStdout(), final)
			}
			if err != nil {
				return report(cmd.ErrOrStderr(), err)
			}

			if flags.jsonOut {
				return renderJSON(cmd.OutOrStdout(), final)
			}
			renderAnswer(cmd.OutOrStdout(), final.FinalContent())
			return nil
		},
	}

	cmd.Flags().BoolVar(&showTrace, "trace", false, "Print every message of the run")

	return cmd
}

func chatCmd(flags *globalFlags) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long: `Start an interactive conversation. Every line is one utterance; the
conversation history is kept for the lifetime of the process.

Commands:
  /reset   forget the conversation
  /tools   list available tools
  /exit    quit (Ctrl-D works too)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			g, err := build(ctx, flags)
			if err != nil {
				return report(cmd.ErrOrStderr(), err)
			}
			defer closeQuietly(g)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt)
			defer signal.Stop(sigCh)
			go func() {
				for range sigCh {
					if n := g.CancelAll(); n == 0 {
						fmt.Fprintln(cmd.ErrOrStderr())
						os.Exit(130)
					}
				}
			}()

			return chatLoop(ctx, g, sessionID, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "cli", "Session id")

	return cmd
}

// chatter is the part of *agentgraph.AgentGraph the REPL needs.
type chatter interface {
	Chat(ctx context.Context, sessionID, utterance string) (string, error)
	Reset(ctx context.Context, sessionID string) error
	Tools() []tool.Descriptor
}

func chatLoop(ctx context.Context, g chatter, sessionID string, in io.Reader, out, errOut io.Writer) error {
	scanner := bufio.NewScanner(in)
	prompt := color.New(color.FgCyan, color.Bold).SprintFunc()

	for {
		fmt.Fprint(out, prompt("you> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/exit" || line == "/quit":
			return nil
		case line == "/reset":
			if err := g.Reset(ctx, sessionID); err != nil {
				return err
			}
			fmt.Fprintln(out, color.HiBlackString("conversation reset"))
			continue
		case line == "/tools":
			renderTools(out, g.Tools(), nil)
			continue
		}

		answer, err := g.Chat(ctx, sessionID, line)
		if err != nil {
			_ = report(errOut, err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		renderAnswer(out, answer)
	}
}

func toolsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools available to the agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := build(cmd.Context(), flags)
			if err != nil {
				return report(cmd.ErrOrStderr(), err)
			}
			defer closeQuietly(g)

			if flags.jsonOut {
				return renderJSON(cmd.OutOrStdout(), g.Tools())
			}
			renderTools(cmd.OutOrStdout(), g.Tools(), g.SkippedProviders())
			return nil
		},
	}
}

// loadConfig resolves the configuration: defaults, optional file, process
// environment, then command line flags. Model name and API key defaults are
// resolved last, for the provider that won.
func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg := config.Default()
	if flags.configPath != "" {
		var err error
		if cfg, err = config.Load(flags.configPath); err != nil {
			return config.Config{}, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return config.Config{}, err
	}

	if flags.provider != "" {
		cfg.Model.Provider = flags.provider
	}
	if flags.model != "" {
		cfg.Model.Name = flags.model
	}
	if flags.maxHops > 0 {
		cfg.Runtime.MaxHops = flags.maxHops
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = flags.logFormat
	}
	if flags.noColor {
		cfg.Logging.NoColor = true
	}

	cfg.ResolveModel(os.LookupEnv)

	return cfg, nil
}

func build(ctx context.Context, flags *globalFlags) (*agentgraph.AgentGraph, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger(cfg.LoggerConfig())

	return agentgraph.New(ctx, cfg, func(o *agentgraph.Options) {
		o.Logger = logger
	})
}

func closeQuietly(g *agentgraph.AgentGraph) {
	_ = g.Close()
}
