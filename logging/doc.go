// Package logging provides a minimal logging interface and adapters.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the graph runtime, the nodes and the tool registry use for observability.
// This package includes:
//
//   - Logger interface for dependency injection
//   - StructuredLogger with json, text and pretty (tint) output
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, logging.FormatPretty, false)
//	r, err := runner.New(model, registry, func(o *runner.Options) { o.Logger = logger })
//
// Event names are dotted, lower case identifiers such as "graph.node.completed"
// or "tool.call.failed"; details travel as key/value attributes.
package logging
