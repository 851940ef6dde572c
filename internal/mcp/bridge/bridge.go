// Package bridge implements the Loop-Safe Bridge: a dedicated worker
// goroutine that owns all MCP protocol activity, so callers running on a
// foreign scheduler (an HTTP handler, a UI event loop) can safely request
// tool calls without corrupting in-flight waiters.
package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrWong99/mcpcore/internal/mcp/mcptype"
)

// DefaultCallTimeout bounds how long call_tool_safe waits for its task to
// complete on the worker.
const DefaultCallTimeout = 60 * time.Second

// task is one unit of work submitted to the worker.
type task struct {
	fn     func(ctx context.Context) (mcptype.ToolResult, error)
	result chan<- taskResult
}

type taskResult struct {
	value mcptype.ToolResult
	err   error
}

// Bridge owns a single worker goroutine for process lifetime. All
// submitted tasks execute serialized on that goroutine.
type Bridge struct {
	tasks chan task

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New returns a Bridge whose worker has not yet started. The worker starts
// lazily and only once: the first CallToolSafe starts it.
func New() *Bridge {
	return &Bridge{tasks: make(chan task, 64)}
}

// ensureStarted lazily starts the worker goroutine under a mutex, so
// concurrent first callers race safely.
func (b *Bridge) ensureStarted() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})
	b.started = true
	go b.run(ctx)
}

func (b *Bridge) run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-b.tasks:
			if !ok {
				return
			}
			value, err := t.fn(ctx)
			t.result <- taskResult{value: value, err: err}
		}
	}
}

// CallToolSafe submits fn to the worker and blocks until it completes, the
// default timeout elapses, or ctx is cancelled — the structural analogue
// of run_coroutine_threadsafe(...).result(timeout=...).
func (b *Bridge) CallToolSafe(ctx context.Context, fn func(ctx context.Context) (mcptype.ToolResult, error)) (mcptype.ToolResult, error) {
	b.ensureStarted()

	timeoutCtx, cancel := context.WithTimeout(ctx, DefaultCallTimeout)
	defer cancel()

	resultCh := make(chan taskResult, 1)
	select {
	case b.tasks <- task{fn: fn, result: resultCh}:
	case <-timeoutCtx.Done():
		return mcptype.ToolResult{}, fmt.Errorf("%w: bridge queue full or shutting down", mcptype.ErrTimeout)
	}

	select {
	case r := <-resultCh:
		return r.value, r.err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return mcptype.ToolResult{}, ctx.Err()
		}
		return mcptype.ToolResult{}, fmt.Errorf("%w: call_tool_safe", mcptype.ErrTimeout)
	}
}

// Shutdown cancels outstanding tasks and stops the worker. Safe to call
// even if the worker was never started.
func (b *Bridge) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return
	}
	b.cancel()
	<-b.done
}
