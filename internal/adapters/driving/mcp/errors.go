// Package mcp provides an MCP (Model Context Protocol) server adapter
// for hrdesk. It lets AI assistants answer policy questions and drive
// leave applications through the same core services the CLI uses.
package mcp

import "errors"

// ErrMissingAssistant is returned when the assistant service is not provided.
var ErrMissingAssistant = errors.New("mcp: assistant service is required")
