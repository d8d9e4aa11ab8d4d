package testutil

import (
	"sync"

	"github.com/hupe1980/agentgraph/logging"
)

// LogEntry is one event captured by RecordingLogger.
type LogEntry struct {
	Level string
	Msg   string
	Attrs map[string]any
}

// RecordingLogger is a logging.Logger that keeps every event in memory.
// It is safe for concurrent use.
type RecordingLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ logging.Logger = (*RecordingLogger)(nil)

func (l *RecordingLogger) Debug(msg string, args ...any) { l.record("debug", msg, args) }
func (l *RecordingLogger) Info(msg string, args ...any)  { l.record("info", msg, args) }
func (l *RecordingLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args) }
func (l *RecordingLogger) Error(msg string, args ...any) { l.record("error", msg, args) }

func (l *RecordingLogger) record(level, msg string, args []any) {
	attrs := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		if k, ok := args[i].(string); ok {
			attrs[k] = args[i+1]
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Attrs: attrs})
}

// Find returns the events named msg in emission order.
func (l *RecordingLogger) Find(msg string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []LogEntry
	for _, e := range l.entries {
		if e.Msg == msg {
			out = append(out, e)
		}
	}
	return out
}
