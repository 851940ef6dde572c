// Package mcpmock provides call-recording test doubles for the MCP
// integration stack's interfaces, in the teacher's mock style (record every
// call, return pre-configured results).
package mcpmock

import (
	"context"
	"sync"

	"github.com/MrWong99/mcpcore/internal/mcp/mcptype"
	"github.com/MrWong99/mcpcore/internal/mcp/servermanager"
)

// Call records one method invocation against a mock.
type Call struct {
	Method string
	Args   []any
}

// Router is a test double for registry.ServerRouter.
type Router struct {
	mu sync.Mutex

	calls []Call

	CallToolResults map[string]*servermanager.CallToolResult
	CallToolErrs    map[string]error
	Tools           map[string][]mcptype.ToolDescriptor
}

// NewRouter returns an empty, ready-to-use Router.
func NewRouter() *Router {
	return &Router{
		CallToolResults: make(map[string]*servermanager.CallToolResult),
		CallToolErrs:    make(map[string]error),
		Tools:           make(map[string][]mcptype.ToolDescriptor),
	}
}

// Calls returns every recorded call in order.
func (r *Router) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// CallCount returns how many times method was invoked.
func (r *Router) CallCount(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset clears recorded calls.
func (r *Router) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *Router) record(method string, args ...any) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Method: method, Args: args})
	r.mu.Unlock()
}

// CallTool implements registry.ServerRouter.
func (r *Router) CallTool(ctx context.Context, server, tool string, args map[string]any) (*servermanager.CallToolResult, error) {
	r.record("CallTool", server, tool, args)
	key := server + "/" + tool
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.CallToolErrs[key]; ok {
		return nil, err
	}
	if res, ok := r.CallToolResults[key]; ok {
		copied := *res
		return &copied, nil
	}
	return &servermanager.CallToolResult{Content: "ok"}, nil
}

// GetAllTools implements registry.ServerRouter.
func (r *Router) GetAllTools(ctx context.Context) map[string][]mcptype.ToolDescriptor {
	r.record("GetAllTools")
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]mcptype.ToolDescriptor, len(r.Tools))
	for k, v := range r.Tools {
		out[k] = append([]mcptype.ToolDescriptor(nil), v...)
	}
	return out
}
