// Package builtin provides the tools shipped with agentgraph: an arithmetic
// calculator, a stock quote lookup backed by Alpha Vantage and a web search
// backed by the DuckDuckGo instant answer API.
package builtin
