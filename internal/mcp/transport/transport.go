// Package transport implements the lowest layer of the MCP integration
// stack: moving framed JSON-RPC messages across a stdio child process or a
// WebSocket connection. Transport never parses or correlates messages; that
// is the protocol package's job.
package transport

import "context"

// Transport is the uniform send/receive/connect contract both the stdio and
// WebSocket variants implement.
type Transport interface {
	// Connect establishes the underlying channel (spawns the subprocess or
	// dials the socket). It returns mcptype.ErrConnectionFailed on failure.
	Connect(ctx context.Context) error

	// Disconnect tears the channel down gracefully, escalating as needed.
	Disconnect(ctx context.Context) error

	// Send writes one message. msg must contain no embedded newlines.
	Send(ctx context.Context, msg []byte) error

	// Receive reads exactly one message. An EOF on the underlying channel
	// marks the transport disconnected and returns mcptype.ErrConnectionFailed.
	Receive(ctx context.Context) ([]byte, error)

	// IsConnected reports the transport's last-known connectivity state.
	IsConnected() bool
}
