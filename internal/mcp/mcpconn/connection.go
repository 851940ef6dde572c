// Package mcpconn implements Connection: a Transport+Protocol pair with
// health monitoring and bounded-backoff reconnection.
package mcpconn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/mcpcore/internal/mcp/mcptype"
	"github.com/MrWong99/mcpcore/internal/mcp/protocol"
	"github.com/MrWong99/mcpcore/internal/mcp/transport"
	"github.com/MrWong99/mcpcore/internal/resilience"
)

const (
	connectDeadline   = 30 * time.Second
	healthCheckPeriod = 30 * time.Second
)

// Connection owns a Transport and the Protocol layered on top of it, and
// keeps both alive across transient failures via a health-check loop.
type Connection struct {
	name     string
	tr       transport.Transport
	proto    *protocol.Protocol
	policy   mcptype.ReconnectPolicy
	onHealth func(mcptype.ServerHealth)

	breaker *resilience.CircuitBreaker

	mu            sync.Mutex
	health        mcptype.ServerHealth
	reconnectTry  int
	healthDone    chan struct{}
	healthStopped chan struct{}
}

// New builds a Connection over tr. policy bounds reconnect attempts; a
// zero value means mcptype.DefaultReconnectPolicy(). A CircuitBreaker sized
// to the policy's MaxAttempts guards the reconnect path itself, so a server
// that is flapping fast enough to exhaust MaxAttempts inside one
// ResetTimeout window gets a trip rather than a continuous attempt storm.
func New(name string, tr transport.Transport, policy mcptype.ReconnectPolicy, onHealth func(mcptype.ServerHealth)) *Connection {
	if policy.MaxAttempts == 0 {
		policy = mcptype.DefaultReconnectPolicy()
	}
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:         name,
		MaxFailures:  policy.MaxAttempts,
		ResetTimeout: policy.BaseDelay * time.Duration(1<<uint(policy.MaxAttempts)),
	})
	return &Connection{
		name:     name,
		tr:       tr,
		proto:    protocol.New(tr),
		policy:   policy,
		onHealth: onHealth,
		breaker:  breaker,
		health:   mcptype.ServerHealth{ServerName: name, Status: mcptype.HealthUnknown},
	}
}

// Protocol returns the Protocol layered on this Connection's Transport.
func (c *Connection) Protocol() *protocol.Protocol { return c.proto }

// Connect establishes the transport under an overall deadline and starts
// the health-check loop.
func (c *Connection) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, connectDeadline)
	defer cancel()

	if err := c.tr.Connect(ctx); err != nil {
		c.setHealth(mcptype.HealthUnhealthy, err.Error())
		return err
	}
	c.setHealth(mcptype.HealthHealthy, "")

	c.mu.Lock()
	c.healthDone = make(chan struct{})
	c.healthStopped = make(chan struct{})
	done := c.healthDone
	stopped := c.healthStopped
	c.mu.Unlock()

	go c.healthLoop(done, stopped)
	return nil
}

// Disconnect stops the health loop then tears down the transport.
func (c *Connection) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	done := c.healthDone
	stopped := c.healthStopped
	c.mu.Unlock()

	if done != nil {
		close(done)
		<-stopped
	}
	c.proto.Shutdown()
	return c.tr.Disconnect(ctx)
}

// Health returns the last-known health observation.
func (c *Connection) Health() mcptype.ServerHealth {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.health
}

func (c *Connection) setHealth(status mcptype.HealthStatus, diagnostic string) {
	c.mu.Lock()
	c.health = mcptype.ServerHealth{
		ServerName: c.name,
		Status:     status,
		LastCheck:  time.Now(),
		Diagnostic: diagnostic,
	}
	h := c.health
	c.mu.Unlock()

	if c.onHealth != nil {
		c.onHealth(h)
	}
}

func (c *Connection) healthLoop(done, stopped chan struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(healthCheckPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if c.tr.IsConnected() {
				c.setHealth(mcptype.HealthHealthy, "")
				c.mu.Lock()
				c.reconnectTry = 0
				c.mu.Unlock()
				c.breaker.Reset()
				continue
			}
			c.attemptReconnect()
		}
	}
}

// attemptReconnect retries Connect with exponential backoff (2^n seconds),
// giving up after policy.MaxAttempts. The dial itself runs through a
// CircuitBreaker: once MaxFailures reconnects have failed the breaker trips,
// and an attempt made while it is open skips the dial with ErrCircuitOpen
// (the backoff sleep still happens first).
func (c *Connection) attemptReconnect() {
	c.mu.Lock()
	attempt := c.reconnectTry
	c.mu.Unlock()

	if attempt >= c.policy.MaxAttempts {
		c.setHealth(mcptype.HealthUnhealthy, "reconnect attempts exhausted")
		return
	}

	backoff := c.policy.BaseDelay * time.Duration(1<<uint(attempt))
	slog.Warn("mcp connection: attempting reconnect", "server", c.name, "attempt", attempt+1, "backoff", backoff)
	time.Sleep(backoff)

	ctx, cancel := context.WithTimeout(context.Background(), connectDeadline)
	defer cancel()

	err := c.breaker.Execute(func() error { return c.tr.Connect(ctx) })
	if errors.Is(err, resilience.ErrCircuitOpen) {
		c.setHealth(mcptype.HealthUnhealthy, fmt.Sprintf("reconnect circuit open for %s", c.name))
		return
	}
	if err != nil {
		c.mu.Lock()
		c.reconnectTry++
		c.mu.Unlock()
		c.setHealth(mcptype.HealthDegraded, fmt.Sprintf("reconnect attempt %d failed: %v", attempt+1, err))
		return
	}

	c.mu.Lock()
	c.reconnectTry = 0
	c.mu.Unlock()
	c.setHealth(mcptype.HealthHealthy, "")
}

// A separate send-with-timeout/receive-with-timeout pair isn't exposed here:
// callers use Protocol().CallMethod, which already carries its own timeout
// context, so the deadline lives once in the protocol layer rather than
// being duplicated at this layer too.
