// Package server assembles a runnable cookie-jar process from configuration.
//
// A Server owns exactly one jar. In stdio mode it serves a single MCP client
// over stdin/stdout. In http mode it exposes the Streamable HTTP endpoint at
// /mcp alongside /health, /guide and, when enabled, Prometheus metrics, on
// either a TCP address or a Tailscale tsnet node.
package server
