// Package tools defines the capabilities the assistant's model may invoke
// and the registry that manages them.
//
// Each tool declares a name, a natural-language description the model uses
// to decide when to call it, and a JSON Schema for its parameters. The
// Registry maps tool names to handlers, exports the declarations for a
// generation request, executes a named call, and accumulates citation
// sources as an explicit side channel that the orchestrator drains after
// each completed exchange.
package tools
