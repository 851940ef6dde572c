package transport

import (
	"fmt"

	"github.com/MrWong99/mcpcore/internal/mcp/mcptype"
)

// New builds the Transport variant named by cfg.Transport.
func New(cfg mcptype.ServerConfig) (Transport, error) {
	switch cfg.Transport {
	case mcptype.TransportStdio:
		if cfg.Command == "" {
			return nil, fmt.Errorf("mcp: stdio transport requires a command")
		}
		return NewStdioTransport(cfg.Command, cfg.Args, cfg.Env), nil
	case mcptype.TransportWebSocket:
		if cfg.URL == "" {
			return nil, fmt.Errorf("mcp: websocket transport requires a url")
		}
		return NewWebSocketTransport(cfg.URL, cfg.Headers), nil
	default:
		return nil, fmt.Errorf("mcp: unknown transport kind %q", cfg.Transport)
	}
}
