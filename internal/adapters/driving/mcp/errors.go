// Package mcp provides an MCP (Model Context Protocol) server adapter for reportqa.
// It lets AI assistants ask questions against the indexed reports and browse the catalog.
package mcp

import "errors"

// ErrMissingAsker is returned when the ask service is not provided.
var ErrMissingAsker = errors.New("mcp: ask service is required")
