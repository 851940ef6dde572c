// Package tools defines the capability set shared by native (in-process)
// tools and MCP-wrapped (remote) tools: both are expressed as the same
// interface so the registry and facade don't need to know which kind
// they're holding.
package tools

import (
	"context"
	"encoding/json"
)

// NativeTool is an in-process tool: one that never leaves the Go process to
// execute, as opposed to a tool discovered from and routed to an upstream
// MCP server. It implements the same capability set
// (get_input_schema/validate_input/check_permissions/execute) a wrapped MCP
// tool exposes through internal/mcp/validator and internal/mcp/permission,
// so the registry can treat both uniformly.
type NativeTool interface {
	// Name is the tool's bare name before namespacing.
	Name() string

	// Description is a human-readable summary shown by search_tools/
	// get_tool_info.
	Description() string

	// InputSchema returns the tool's JSON-Schema input description, or nil
	// if the tool accepts arbitrary arguments.
	InputSchema() json.RawMessage

	// Execute runs the tool against already-validated arguments and
	// returns a JSON-encoded result string.
	Execute(ctx context.Context, args map[string]any) (string, error)
}
