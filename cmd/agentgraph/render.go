package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/tool"
)

func renderAnswer(w io.Writer, answer string) {
	fmt.Fprintf(w, "%s %s\n", color.GreenString("agent>"), answer)
}

func renderTrace(w io.Writer, state core.ConversationState) {
	for _, m := range state.Messages {
		switch m.Role {
		case core.RoleUser:
			fmt.Fprintf(w, "%s %s\n", color.CyanString("[user]"), m.Content)
		case core.RoleAssistant:
			if m.Content != "" {
				fmt.Fprintf(w, "%s %s\n", color.GreenString("[assistant]"), m.Content)
			}
			for _, c := range m.ToolCalls {
				fmt.Fprintf(w, "%s %s(%s) %s\n",
					color.YellowString("[call]"), c.Name, core.EncodeArguments(c.Arguments), color.HiBlackString(c.ID))
			}
		case core.RoleTool:
			label := color.MagentaString("[result]")
			if strings.HasPrefix(m.Content, `{"error":`) {
				label = color.RedString("[result]")
			}
			fmt.Fprintf(w, "%s %s %s\n", label, m.Name, m.Content)
		default:
			fmt.Fprintf(w, "[%s] %s\n", m.Role, m.Content)
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", 60))
}

func renderTools(w io.Writer, tools []tool.Descriptor, skipped []string) {
	if len(tools) == 0 {
		fmt.Fprintln(w, "No tools available")
	}

	width := 0
	for _, t := range tools {
		width = max(width, len(t.Name))
	}

	for _, t := range tools {
		fmt.Fprintf(w, "%s  %s %s\n",
			color.CyanString("%-*s", width, t.Name),
			t.Description,
			color.HiBlackString("(%s)", t.Source),
		)
	}

	for _, name := range skipped {
		fmt.Fprintf(w, "%s provider %s unavailable, skipped\n", color.YellowString("!"), name)
	}
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// report prints err with a short hint for the well-known failure kinds and
// returns it so RunE fails.
func report(w io.Writer, err error) error {
	var (
		maxErr      *core.MaxIterationsExceededError
		canceled    *core.CanceledError
		upstream    *core.UpstreamModelError
		unavailable *core.RegistryUnavailableError
		dup         *core.DuplicateToolNameError
	)

	hint := ""
	switch {
	case errors.As(err, &maxErr):
		hint = "the model kept requesting tools; raise --max-hops or rephrase"
	case errors.As(err, &canceled):
		hint = "run canceled"
	case errors.As(err, &upstream):
		hint = "check the model provider, API key and network"
	case errors.As(err, &unavailable):
		hint = "mark the provider optional to start without it"
	case errors.As(err, &dup):
		hint = "two tool sources expose the same name"
	}

	fmt.Fprintf(w, "%s %v\n", color.RedString("error:"), err)
	if hint != "" {
		fmt.Fprintf(w, "%s %s\n", color.HiBlackString("hint:"), hint)
	}

	return err
}
