// Package protocol implements JSON-RPC 2.0 request/response correlation on
// top of a transport.Transport: request id allocation, a pending request
// table, a single reader goroutine that demultiplexes responses to their
// waiters, and per-call timeouts.
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/mcpcore/internal/mcp/mcptype"
	"github.com/MrWong99/mcpcore/internal/mcp/transport"
	"github.com/MrWong99/mcpcore/internal/observe"
)

// DefaultCallTimeout is the per-call_method deadline when the caller
// supplies none.
const DefaultCallTimeout = 30 * time.Second

type state int

const (
	stateIdle state = iota
	stateReceiving
	stateShut
)

// waiter is a single-shot delivery slot for one in-flight request.
type waiter struct {
	ch chan Message
}

// Message is the decoded result of a response: either a result payload or
// an error, never both.
type Message struct {
	Result json.RawMessage
	Err    *mcptype.RPCError
}

// Protocol owns exactly one Transport and multiplexes call_method/
// send_notification traffic across it.
type Protocol struct {
	tr transport.Transport

	mu      sync.Mutex // guards state below; transport Sends run outside it
	st      state
	pending map[string]*waiter
	counter atomic.Int64

	readerCancel context.CancelFunc
	readerDone   chan struct{}

	// owner is the logical owner id last passed to Rebind, which mirrors
	// the original's event-loop identity check by discarding in-flight
	// waiters on a handoff. Nothing in this module calls Rebind.
	owner atomic.Int64
}

// New wraps tr in a Protocol. The reader is started lazily on first
// CallMethod or SendNotification.
func New(tr transport.Transport) *Protocol {
	return &Protocol{tr: tr, pending: make(map[string]*waiter)}
}

// Rebind records a new logical owner id, fails all pending waiters and
// stops the reader; the next CallMethod or SendNotification starts a fresh
// one. No caller in this module invokes it.
func (p *Protocol) Rebind(ownerID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.owner.Store(ownerID)
	p.failAllLocked(fmt.Errorf("%w: rebound to new owner", mcptype.ErrProtocol))
	p.stopReaderLocked()
	p.st = stateIdle
}

func (p *Protocol) ensureReaderLocked(ctx context.Context) {
	if p.st == stateReceiving {
		return
	}
	readerCtx, cancel := context.WithCancel(context.Background())
	p.readerCancel = cancel
	p.readerDone = make(chan struct{})
	p.st = stateReceiving
	go p.readerLoop(readerCtx)
}

func (p *Protocol) stopReaderLocked() {
	if p.readerCancel != nil {
		p.readerCancel()
		p.readerCancel = nil
	}
}

// CallMethod sends a request and blocks until the matching response
// arrives, timeout elapses, or ctx is cancelled.
func (p *Protocol) CallMethod(ctx context.Context, method string, params any) (json.RawMessage, error) {
	p.mu.Lock()
	if p.st == stateShut {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: not connected", mcptype.ErrProtocol)
	}
	p.ensureReaderLocked(ctx)

	id := fmt.Sprintf("req_%d", p.counter.Add(1))
	w := &waiter{ch: make(chan Message, 1)}
	p.pending[id] = w
	p.mu.Unlock()

	raw, err := marshalParams(params)
	if err != nil {
		p.removeWaiter(id)
		return nil, err
	}

	msg := mcptype.NewRequest(id, method, raw)
	b, err := msg.Marshal()
	if err != nil {
		p.removeWaiter(id)
		return nil, err
	}

	start := time.Now()
	metrics := observe.DefaultMetrics()
	recordRPC := func() {
		metrics.RPCCallDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(observe.Attr("method", method)))
	}

	if err := p.tr.Send(ctx, b); err != nil {
		p.removeWaiter(id)
		recordRPC()
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, DefaultCallTimeout)
	defer cancel()

	select {
	case m := <-w.ch:
		p.removeWaiter(id)
		recordRPC()
		if m.Err != nil {
			return nil, fmt.Errorf("%w: %s", mcptype.ErrProtocol, m.Err.Error())
		}
		return m.Result, nil
	case <-timeoutCtx.Done():
		p.removeWaiter(id)
		recordRPC()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: call_method %q", mcptype.ErrTimeout, method)
	}
}

// SendNotification sends a one-way message with no id and no waiter.
func (p *Protocol) SendNotification(ctx context.Context, method string, params any) error {
	p.mu.Lock()
	if p.st == stateShut {
		p.mu.Unlock()
		return fmt.Errorf("%w: not connected", mcptype.ErrProtocol)
	}
	p.ensureReaderLocked(ctx)
	p.mu.Unlock()

	raw, err := marshalParams(params)
	if err != nil {
		return err
	}
	msg := mcptype.NewNotification(method, raw)
	b, err := msg.Marshal()
	if err != nil {
		return err
	}
	return p.tr.Send(ctx, b)
}

func (p *Protocol) removeWaiter(id string) {
	p.mu.Lock()
	delete(p.pending, id)
	p.mu.Unlock()
}

// Shutdown cancels the reader, fails every pending waiter, and marks the
// protocol shut so future calls fail fast.
func (p *Protocol) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAllLocked(fmt.Errorf("%w: shutdown", mcptype.ErrProtocol))
	p.stopReaderLocked()
	p.st = stateShut
}

func (p *Protocol) failAllLocked(err error) {
	rpcErr := &mcptype.RPCError{Code: mcptype.ErrCodeInternalError, Message: err.Error()}
	for id, w := range p.pending {
		select {
		case w.ch <- Message{Err: rpcErr}:
		default:
		}
		delete(p.pending, id)
	}
}

// readerLoop receives one message at a time, classifying and routing it
// until the transport fails or the reader is cancelled.
func (p *Protocol) readerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		raw, err := p.tr.Receive(ctx)
		if err != nil {
			p.mu.Lock()
			p.failAllLocked(err)
			p.mu.Unlock()
			return
		}

		msg, err := mcptype.ParseMessage(raw)
		if err != nil {
			slog.Error("mcp protocol: unparsable message, failing all pending calls", "err", err)
			p.mu.Lock()
			p.failAllLocked(err)
			p.mu.Unlock()
			return
		}

		switch {
		case msg.IsResponse():
			p.deliver(*msg.ID, Message{Result: msg.Result, Err: msg.Error})
		case msg.IsNotification():
			// Notifications have no waiter; nothing to correlate.
		default:
			slog.Warn("mcp protocol: discarding message of unknown shape")
		}
	}
}

func (p *Protocol) deliver(id string, m Message) {
	p.mu.Lock()
	w, ok := p.pending[id]
	if ok {
		delete(p.pending, id)
	}
	p.mu.Unlock()

	if !ok {
		// Unknown id: either a duplicate response for an id already
		// delivered/timed out, or a server bug. Discarded either way.
		slog.Warn("mcp protocol: discarding response for unknown or already-resolved id", "id", id)
		return
	}
	select {
	case w.ch <- m:
	default:
	}
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	b, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal params: %w", err)
	}
	return b, nil
}
