package mcpconn

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/mcpcore/internal/mcp/mcptype"
	"github.com/MrWong99/mcpcore/internal/resilience"
)

type stubTransport struct {
	mu        sync.Mutex
	connected bool
	connects  int
}

func (s *stubTransport) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	s.connects++
	return nil
}
func (s *stubTransport) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}
func (s *stubTransport) Send(ctx context.Context, msg []byte) error { return nil }
func (s *stubTransport) Receive(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (s *stubTransport) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

type alwaysFailTransport struct {
	attempts int
}

func (a *alwaysFailTransport) Connect(ctx context.Context) error {
	a.attempts++
	return errors.New("dial refused")
}
func (a *alwaysFailTransport) Disconnect(ctx context.Context) error { return nil }
func (a *alwaysFailTransport) Send(ctx context.Context, msg []byte) error { return nil }
func (a *alwaysFailTransport) Receive(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (a *alwaysFailTransport) IsConnected() bool { return false }

func TestConnectionConnectReportsHealthy(t *testing.T) {
	tr := &stubTransport{}
	conn := New("srv", tr, mcptype.ReconnectPolicy{}, nil)

	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer conn.Disconnect(context.Background())

	h := conn.Health()
	if h.Status != mcptype.HealthHealthy {
		t.Fatalf("got status %v, want healthy", h.Status)
	}
}

func TestConnectionDisconnectStopsHealthLoop(t *testing.T) {
	tr := &stubTransport{}
	conn := New("srv", tr, mcptype.ReconnectPolicy{}, nil)

	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := conn.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if tr.IsConnected() {
		t.Fatal("expected transport disconnected")
	}
}

func TestAttemptReconnectTripsCircuitBreakerAfterMaxFailures(t *testing.T) {
	tr := &alwaysFailTransport{}
	policy := mcptype.ReconnectPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond}
	conn := New("flaky", tr, policy, nil)

	// Each failed attemptReconnect bumps reconnectTry and feeds the breaker;
	// after MaxAttempts (== the breaker's MaxFailures here) both the policy
	// counter and the breaker have given up.
	conn.attemptReconnect()
	conn.attemptReconnect()

	h := conn.Health()
	if h.Status != mcptype.HealthDegraded {
		t.Fatalf("got status %v, want degraded after 2 failed attempts", h.Status)
	}
	if conn.breaker.State() != resilience.StateOpen {
		t.Fatalf("got breaker state %v, want open", conn.breaker.State())
	}

	attemptsBefore := tr.attempts
	conn.attemptReconnect()
	if tr.attempts != attemptsBefore {
		t.Fatalf("expected attemptReconnect to skip the dial once attempts are exhausted, got %d more calls", tr.attempts-attemptsBefore)
	}
	if conn.Health().Status != mcptype.HealthUnhealthy {
		t.Fatalf("got status %v, want unhealthy once reconnect attempts are exhausted", conn.Health().Status)
	}
}
