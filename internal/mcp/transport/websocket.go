package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/MrWong99/mcpcore/internal/mcp/mcptype"
)

// WebSocketTransport speaks one JSON-RPC message per text frame over a
// WebSocket connection.
type WebSocketTransport struct {
	url     string
	headers http.Header

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// NewWebSocketTransport returns a Transport that dials url with the given
// extra headers on Connect.
func NewWebSocketTransport(url string, headers map[string]string) *WebSocketTransport {
	h := make(http.Header, len(headers))
	for k, v := range headers {
		h.Set(k, v)
	}
	return &WebSocketTransport{url: url, headers: h}
}

var _ Transport = (*WebSocketTransport)(nil)

func (t *WebSocketTransport) Connect(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, t.url, &websocket.DialOptions{HTTPHeader: t.headers})
	if err != nil {
		return fmt.Errorf("%w: dial %q: %v", mcptype.ErrConnectionFailed, t.url, err)
	}

	t.mu.Lock()
	t.conn = conn
	t.connected = true
	t.mu.Unlock()
	return nil
}

func (t *WebSocketTransport) Send(ctx context.Context, msg []byte) error {
	t.mu.Lock()
	conn := t.conn
	connected := t.connected
	t.mu.Unlock()

	if !connected || conn == nil {
		return fmt.Errorf("%w: not connected", mcptype.ErrConnectionFailed)
	}

	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		t.mu.Lock()
		t.connected = false
		t.mu.Unlock()
		return fmt.Errorf("%w: write: %v", mcptype.ErrConnectionFailed, err)
	}
	return nil
}

func (t *WebSocketTransport) Receive(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	conn := t.conn
	connected := t.connected
	t.mu.Unlock()

	if !connected || conn == nil {
		return nil, fmt.Errorf("%w: not connected", mcptype.ErrConnectionFailed)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.mu.Lock()
		t.connected = false
		t.mu.Unlock()
		return nil, fmt.Errorf("%w: read: %v", mcptype.ErrConnectionFailed, err)
	}
	return data, nil
}

func (t *WebSocketTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *WebSocketTransport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	conn := t.conn
	t.connected = false
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "shutdown")
}
