// Package mcp provides an MCP (Model Context Protocol) server adapter
// for the course library. It exposes the retrieval tools to MCP clients
// so external assistants can search course content and read outlines
// without going through the built-in assistant loop.
package mcp

import "errors"

// ErrMissingLibraryService is returned when the library service is not provided.
var ErrMissingLibraryService = errors.New("mcp: library service is required")
