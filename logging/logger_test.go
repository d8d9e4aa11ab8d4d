package logging

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONFormat(t *testing.T) {
	var out bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: FormatJSON, Output: &out}).WithComponent("graph")
	logger.Info("graph.run.started", "key", "value")

	line := out.String()
	assert.Contains(t, line, `"msg":"graph.run.started"`)
	assert.Contains(t, line, `"key":"value"`)
	assert.Contains(t, line, `"component":"graph"`)
}

func TestNewLogger_TextFormat(t *testing.T) {
	var out bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: FormatText, Output: &out})
	logger.WithRun("run-1", "s-1").Info("text log test", "key", "value")

	line := out.String()
	assert.Contains(t, line, "text log test")
	assert.Contains(t, line, "key=value")
	assert.Contains(t, line, "run_id=run-1")
	assert.Contains(t, line, "session_id=s-1")
}

func TestNewLogger_PrettyFormat(t *testing.T) {
	var out bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelDebug, Format: FormatPretty, Output: &out, NoColor: true})
	LogToolCall(logger, ToolCall{Tool: "calculator", CallID: "c1", Duration: 5 * time.Millisecond, Err: errors.New("boom")})

	line := out.String()
	assert.Contains(t, line, "tool.call.failed")
	assert.Contains(t, line, "tool_name=calculator")
	assert.Contains(t, line, "boom")
}

func TestStructuredLogger_LevelFilter(t *testing.T) {
	var out bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LogLevelWarn, Format: FormatJSON, Output: &out})
	logger.Debug("hidden")
	logger.Info("hidden")
	assert.Empty(t, out.String())

	logger.Warn("shown")
	assert.Contains(t, out.String(), "shown")
}

func TestStructuredLogger_WithContextDoesNotLeak(t *testing.T) {
	var out bytes.Buffer
	base := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: FormatJSON, Output: &out})
	_ = base.WithContext("tool", "calculator")
	base.Info("plain")
	assert.NotContains(t, out.String(), "calculator")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{"debug": LogLevelDebug, "INFO": LogLevelInfo, "": LogLevelInfo, "warning": LogLevelWarn, "error": LogLevelError} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestOrNoOp(t *testing.T) {
	assert.IsType(t, NoOpLogger{}, OrNoOp(nil))
	l := NewSlogLogger(LogLevelError, FormatJSON, false)
	assert.Same(t, l, OrNoOp(l))
}
