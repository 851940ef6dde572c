package mcptype

import "errors"

// Error taxonomy shared across the MCP integration stack. Callers should use
// errors.Is/errors.As against these sentinels; layers that wrap lower errors
// do so with fmt.Errorf("%w").
var (
	ErrConnectionFailed = errors.New("mcp: connection failed")
	ErrTimeout          = errors.New("mcp: timeout")
	ErrProtocol         = errors.New("mcp: protocol error")
	ErrToolNotFound     = errors.New("mcp: tool not found")
	ErrInvalidInput     = errors.New("mcp: invalid input")
	ErrPermissionDenied = errors.New("mcp: permission denied")
	ErrServerUnhealthy  = errors.New("mcp: server unhealthy")
)
