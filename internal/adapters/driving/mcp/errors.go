// Package mcp provides an MCP (Model Context Protocol) server adapter for docrag.
// It lets AI assistants ask questions of, and search, the local document corpus.
package mcp

import "errors"

// ErrMissingEngine is returned when the query engine is not provided.
var ErrMissingEngine = errors.New("mcp: engine is required")
