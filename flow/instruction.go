package flow

import (
	"context"

	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/internal/util"
)

// InstructionProvider supplies instruction text at runtime.
type InstructionProvider interface {
	Instruction(ctx context.Context, state core.ConversationState) (string, error)
}

// InstructionFunc is a functional adapter to allow ordinary functions to be
// used as InstructionProviders.
type InstructionFunc func(ctx context.Context, state core.ConversationState) (string, error)

// Instruction implements InstructionProvider.
func (f InstructionFunc) Instruction(ctx context.Context, state core.ConversationState) (string, error) {
	return f(ctx, state)
}

// Instruction is either static (template) text or a dynamic provider.
type Instruction struct {
	text     string
	vars     map[string]any
	provider InstructionProvider
}

// NewInstructionFromText creates an Instruction from static text. The text
// may contain text/template placeholders filled from vars.
func NewInstructionFromText(text string, vars map[string]any) Instruction {
	return Instruction{text: text, vars: vars}
}

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p InstructionProvider) Instruction {
	return Instruction{provider: p}
}

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(ctx context.Context, state core.ConversationState) (string, error)) Instruction {
	return Instruction{provider: InstructionFunc(f)}
}

// IsStatic returns true if the instruction is backed by static text.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// IsZero reports whether no instruction was configured.
func (i Instruction) IsZero() bool { return i.provider == nil && i.text == "" }

// Resolve returns the instruction text, invoking the provider if needed.
func (i Instruction) Resolve(ctx context.Context, state core.ConversationState) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(ctx, state)
	}
	return util.RenderTemplate(i.text, i.vars)
}
