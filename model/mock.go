package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentgraph/core"
)

// GenerateFunc computes the reply for the n-th call (zero based).
type GenerateFunc func(ctx context.Context, req Request, n int) (core.Message, error)

// MockModel is a lightweight in-memory Model useful for tests & examples.
// It either replays a fixed script of assistant messages or delegates to a
// GenerateFunc.
type MockModel struct {
	info Info
	fn   GenerateFunc

	mu       sync.Mutex
	script   []core.Message
	requests []Request
}

// NewMockModel constructs a MockModel replaying responses in order. Once the
// script is exhausted Generate returns an error.
func NewMockModel(name string, responses ...core.Message) *MockModel {
	return &MockModel{
		info:   Info{Name: name, Provider: "mock", SupportsTools: true},
		script: responses,
	}
}

// NewMockModelFunc constructs a MockModel whose replies are computed by fn.
func NewMockModelFunc(name string, fn GenerateFunc) *MockModel {
	return &MockModel{
		info: Info{Name: name, Provider: "mock", SupportsTools: true},
		fn:   fn,
	}
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	n := len(m.requests)
	req.Messages = append([]core.Message(nil), req.Messages...)
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	var (
		msg core.Message
		err error
	)
	if m.fn != nil {
		msg, err = m.fn(ctx, req, n)
	} else if n < len(m.script) {
		msg = m.script[n]
	} else {
		err = fmt.Errorf("mock model %s: script exhausted after %d responses", m.info.Name, len(m.script))
	}
	if err != nil {
		return nil, err
	}

	finish := "stop"
	if msg.HasToolCalls() {
		finish = "tool_calls"
	}
	return &Response{ID: core.NewID(), Message: msg, FinishReason: finish}, nil
}

// Calls returns how many times Generate was invoked.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
