// Package logging configures structured slog output for evidencemcp.
//
// Logs are JSON lines written to ~/.evidencemcp/logs/server.log through a
// size-rotating writer. In MCP stdio mode nothing is written to stdout or
// stderr, because stdout carries the JSON-RPC stream.
package logging
