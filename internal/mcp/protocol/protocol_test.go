package protocol

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/mcpcore/internal/mcp/mcptype"
)

// fakeTransport is an in-memory Transport double: Send appends to sent,
// Receive pops from a channel the test feeds responses into.
type fakeTransport struct {
	mu        sync.Mutex
	sent      [][]byte
	inbound   chan []byte
	connected bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{inbound: make(chan []byte, 16), connected: true}
}

func (f *fakeTransport) Connect(ctx context.Context) error { return nil }
func (f *fakeTransport) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	return nil
}
func (f *fakeTransport) Send(ctx context.Context, msg []byte) error {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
	return nil
}
func (f *fakeTransport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case b, ok := <-f.inbound:
		if !ok {
			return nil, mcptype.ErrConnectionFailed
		}
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) lastSentID(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("nothing sent")
	}
	var m mcptype.Message
	if err := json.Unmarshal(f.sent[len(f.sent)-1], &m); err != nil {
		t.Fatalf("unmarshal sent: %v", err)
	}
	return *m.ID
}

func TestCallMethodSuccess(t *testing.T) {
	ft := newFakeTransport()
	p := New(ft)

	go func() {
		time.Sleep(10 * time.Millisecond)
		id := ft.lastSentID(t)
		resp := mcptype.Message{JSONRPC: "2.0", ID: &id, Result: json.RawMessage(`{"pong":true}`)}
		b, _ := resp.Marshal()
		ft.inbound <- b
	}()

	result, err := p.CallMethod(context.Background(), "ping", nil)
	if err != nil {
		t.Fatalf("CallMethod: %v", err)
	}
	if string(result) != `{"pong":true}` {
		t.Fatalf("got %s", result)
	}
}

func TestCallMethodTimeout(t *testing.T) {
	ft := newFakeTransport()
	p := New(ft)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.CallMethod(ctx, "slow", nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}

	p.mu.Lock()
	n := len(p.pending)
	p.mu.Unlock()
	if n != 0 {
		t.Fatalf("pending table not cleaned up after timeout: %d entries", n)
	}
}

func TestDuplicateResponseIgnored(t *testing.T) {
	ft := newFakeTransport()
	p := New(ft)

	done := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		id := ft.lastSentID(t)
		resp := mcptype.Message{JSONRPC: "2.0", ID: &id, Result: json.RawMessage(`1`)}
		b, _ := resp.Marshal()
		ft.inbound <- b
		ft.inbound <- b // duplicate, must be discarded silently
		close(done)
	}()

	if _, err := p.CallMethod(context.Background(), "m", nil); err != nil {
		t.Fatalf("CallMethod: %v", err)
	}
	<-done
}

func TestShutdownFailsPendingWaiters(t *testing.T) {
	ft := newFakeTransport()
	p := New(ft)

	errCh := make(chan error, 1)
	go func() {
		_, err := p.CallMethod(context.Background(), "never-replied", nil)
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	p.Shutdown()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected error after shutdown")
		}
	case <-time.After(time.Second):
		t.Fatal("CallMethod did not return after Shutdown")
	}

	if _, err := p.CallMethod(context.Background(), "after-shutdown", nil); err == nil {
		t.Fatal("expected call_method to fail fast after shutdown")
	}
}
