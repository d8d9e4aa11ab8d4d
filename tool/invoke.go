package tool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/agentgraph/core"
)

// PanicError is produced when a tool implementation panics.
type PanicError struct {
	Tool  string
	Value any
	Stack []byte
}

func (p *PanicError) Error() string { return fmt.Sprintf("tool %s panicked: %v", p.Tool, p.Value) }

// Invoke runs one tool call in isolation and always returns a ToolResult.
// Errors, panics and timeouts become failure results. The call is detached
// from ctx cancellation so a started call finishes (bounded by timeout) even
// when the run is aborted; values carried by ctx are preserved.
func Invoke(ctx context.Context, t Tool, args map[string]any, timeout time.Duration) core.ToolResult {
	callCtx := context.WithoutCancel(ctx)
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, timeout)
		defer cancel()
	}

	type outcome struct {
		value any
		err   error
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: &PanicError{Tool: t.Name(), Value: r, Stack: debug.Stack()}}
			}
		}()
		v, err := t.Call(callCtx, args)
		done <- outcome{value: v, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
				return core.Failure("tool %s timed out after %s", t.Name(), timeout)
			}
			return core.Failure("%s", o.err.Error())
		}
		return core.Success(o.value)
	case <-callCtx.Done():
		return core.Failure("tool %s timed out after %s", t.Name(), timeout)
	}
}
