package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/mcpcore/internal/mcp/mcptype"
)

func TestCallToolSafeReturnsResult(t *testing.T) {
	b := New()
	defer b.Shutdown()

	result, err := b.CallToolSafe(context.Background(), func(ctx context.Context) (mcptype.ToolResult, error) {
		return mcptype.ToolResult{Kind: mcptype.KindSuccess, Content: "ok"}, nil
	})
	if err != nil {
		t.Fatalf("CallToolSafe: %v", err)
	}
	if result.Content != "ok" {
		t.Fatalf("got %+v", result)
	}
}

func TestCallToolSafePropagatesError(t *testing.T) {
	b := New()
	defer b.Shutdown()

	wantErr := errors.New("boom")
	_, err := b.CallToolSafe(context.Background(), func(ctx context.Context) (mcptype.ToolResult, error) {
		return mcptype.ToolResult{}, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
}

func TestCallToolSafeSerializesCalls(t *testing.T) {
	b := New()
	defer b.Shutdown()

	order := make(chan int, 2)
	go func() {
		b.CallToolSafe(context.Background(), func(ctx context.Context) (mcptype.ToolResult, error) {
			time.Sleep(20 * time.Millisecond)
			order <- 1
			return mcptype.ToolResult{}, nil
		})
	}()
	time.Sleep(5 * time.Millisecond)
	go func() {
		b.CallToolSafe(context.Background(), func(ctx context.Context) (mcptype.ToolResult, error) {
			order <- 2
			return mcptype.ToolResult{}, nil
		})
	}()

	first := <-order
	second := <-order
	if first != 1 || second != 2 {
		t.Fatalf("expected serialized execution order 1,2, got %d,%d", first, second)
	}
}

func TestShutdownWithoutStart(t *testing.T) {
	b := New()
	b.Shutdown() // must not block or panic
}
