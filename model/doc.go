// Package model defines the provider-agnostic abstractions for interacting
// with language models.
//
// Core goals:
//   - A single synchronous Generate call returning a complete assistant turn
//   - Normalize tool / function call representation (ToolDefinition, core.ToolCall)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic) implement the Model interface in sub-packages
// so the graph runtime stays decoupled from vendor SDKs.
package model
