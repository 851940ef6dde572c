// Package registry implements the Tool Registry: a unified namespaced tool
// catalog backed by namespace.Manager, with schema validation, permission
// enforcement, and the execute_tool lazy-sequence pipeline.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/antzucaro/matchr"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/mcpcore/internal/mcp/mcptype"
	"github.com/MrWong99/mcpcore/internal/mcp/namespace"
	"github.com/MrWong99/mcpcore/internal/mcp/permission"
	"github.com/MrWong99/mcpcore/internal/mcp/servermanager"
	"github.com/MrWong99/mcpcore/internal/mcp/tools"
	"github.com/MrWong99/mcpcore/internal/mcp/validator"
	"github.com/MrWong99/mcpcore/internal/observe"
)

// nativeServerName marks Records backed by an in-process tools.NativeTool
// rather than a remote MCP server, so ExecuteTool can branch without a
// separate lookup table leaking into namespace.Manager.
const nativeServerName = "__native__"

// SecurityPolicyLookup returns the security policy configured for a
// server, used to run the MCP-side permission check in execute_tool.
type SecurityPolicyLookup func(server string) mcptype.SecurityPolicy

// ServerRouter is the subset of servermanager.Manager the Registry needs:
// routing a call to a named server and fetching every server's tool list.
// Declared here so the Registry can be tested against a fake.
type ServerRouter interface {
	CallTool(ctx context.Context, server, tool string, args map[string]any) (*servermanager.CallToolResult, error)
	GetAllTools(ctx context.Context) map[string][]mcptype.ToolDescriptor
}

// DiscoveryEvent is published by the auto-discovery loop whenever a tool
// is registered or unregistered.
type DiscoveryEvent struct {
	Kind       string // "registered" | "unregistered" | "registration_failed"
	FullName   string
	ServerName string
	Detail     string
}

// Registry is the unified tool catalog: discovery, validation, permission
// checks, and execution all flow through it.
type Registry struct {
	ns       *namespace.Manager
	servers  ServerRouter
	policies SecurityPolicyLookup
	caller   permission.CallerPolicy
	onEvent  func(DiscoveryEvent)

	nativeMu sync.Mutex
	native   map[string]tools.NativeTool // keyed by Record.FullName
}

// New builds a Registry over an already-started server router (normally a
// *servermanager.Manager).
func New(servers ServerRouter, policies SecurityPolicyLookup, caller permission.CallerPolicy, conflictPolicy namespace.ConflictPolicy, onEvent func(DiscoveryEvent)) *Registry {
	return &Registry{
		ns:       namespace.New(conflictPolicy),
		servers:  servers,
		policies: policies,
		caller:   caller,
		onEvent:  onEvent,
		native:   make(map[string]tools.NativeTool),
	}
}

// RegisterNative registers an in-process tools.NativeTool under ns, giving
// it the same namespacing, conflict resolution, and validation treatment as
// a server-discovered tool.
func (r *Registry) RegisterNative(ns string, t tools.NativeTool) (*namespace.Record, error) {
	v, ok := validator.FromSchema(t.InputSchema())
	if !ok {
		slog.Warn("mcp registry: native tool schema absent or malformed, using permissive validator", "tool", t.Name())
	}
	rec, err := r.ns.RegisterToolName(t.Name(), nativeServerName, ns, v)
	if err != nil {
		r.publish(DiscoveryEvent{Kind: "registration_failed", ServerName: nativeServerName, Detail: err.Error()})
		return nil, err
	}
	r.nativeMu.Lock()
	r.native[rec.FullName] = t
	r.nativeMu.Unlock()
	r.publish(DiscoveryEvent{Kind: "registered", FullName: rec.FullName, ServerName: nativeServerName})
	return rec, nil
}

func (r *Registry) publish(ev DiscoveryEvent) {
	if r.onEvent != nil {
		r.onEvent(ev)
	}
}

// RegisterDiscovered builds a Record for a server-advertised ToolDescriptor,
// validator included.
func (r *Registry) RegisterDiscovered(ns string, td mcptype.ToolDescriptor) (*namespace.Record, error) {
	v, ok := validator.FromSchema(td.InputSchema)
	if !ok {
		slog.Warn("mcp registry: schema absent or malformed, using permissive validator", "tool", td.Name, "server", td.ServerName)
	}
	rec, err := r.ns.RegisterToolName(td.Name, td.ServerName, ns, v)
	if err != nil {
		r.publish(DiscoveryEvent{Kind: "registration_failed", ServerName: td.ServerName, Detail: err.Error()})
		return nil, err
	}
	r.publish(DiscoveryEvent{Kind: "registered", FullName: rec.FullName, ServerName: td.ServerName})
	return rec, nil
}

// ListTools returns every currently registered full tool name.
func (r *Registry) ListTools() []string {
	recs := r.ns.ListRecords()
	out := make([]string, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.FullName)
	}
	sort.Strings(out)
	return out
}

// GetTool resolves name (full name or alias) to its Record.
func (r *Registry) GetTool(name string) (*namespace.Record, bool) {
	return r.ns.Resolve(name)
}

// ToolInfo is the descriptive payload get_tool_info returns.
type ToolInfo struct {
	FullName      string
	ServerName    string
	OriginalName  string
	Namespace     string
	Aliases       []string
	ExecCount     int64
	TotalExecTime time.Duration
}

// GetToolInfo returns descriptive + usage information about a tool.
func (r *Registry) GetToolInfo(name string) (ToolInfo, bool) {
	rec, ok := r.ns.Resolve(name)
	if !ok {
		return ToolInfo{}, false
	}
	count, total := rec.Stats()
	return ToolInfo{
		FullName:      rec.FullName,
		ServerName:    rec.ServerName,
		OriginalName:  rec.OriginalName,
		Namespace:     rec.Namespace,
		Aliases:       rec.Aliases,
		ExecCount:     count,
		TotalExecTime: total,
	}, true
}

// SearchMatch is one search_tools result with its match score.
type SearchMatch struct {
	FullName string
	Score    float64
}

// SearchTools finds tools by substring or fuzzy match, returning a stably
// ranked list (best match first, ties broken by name).
func (r *Registry) SearchTools(query string, fuzzy bool) []SearchMatch {
	recs := r.ns.ListRecords()
	matches := make([]SearchMatch, 0, len(recs))
	lowerQuery := strings.ToLower(query)

	for _, rec := range recs {
		lowerName := strings.ToLower(rec.FullName)
		switch {
		case strings.Contains(lowerName, lowerQuery):
			matches = append(matches, SearchMatch{FullName: rec.FullName, Score: 1.0})
		case fuzzy:
			score := matchr.JaroWinkler(lowerQuery, lowerName, true)
			if score >= 0.7 {
				matches = append(matches, SearchMatch{FullName: rec.FullName, Score: score})
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].FullName < matches[j].FullName
	})
	return matches
}

// sessionFields are stripped from arguments before they're forwarded to the
// remote server, mirroring tool_wrapper.py's _convert_input_to_mcp_args.
var sessionFields = []string{"execution_id", "metadata", "session_id", "session_context"}

// supportsSessionContext sniffs a tool's raw schema text for session-aware
// keywords, a pragmatic heuristic rather than a full schema walk.
func supportsSessionContext(raw []byte) bool {
	s := strings.ToLower(string(raw))
	return strings.Contains(s, "session") || strings.Contains(s, "_session_context")
}

func stripSessionFields(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		skip := false
		for _, f := range sessionFields {
			if k == f {
				skip = true
				break
			}
		}
		if !skip {
			out[k] = v
		}
	}
	return out
}

// ExecuteTool runs the full execute_tool pipeline — lookup, validation,
// permission check, dispatch — and returns a channel that yields every
// ToolResult in the sequence, closed after the terminal result is sent.
func (r *Registry) ExecuteTool(ctx context.Context, fullName string, args map[string]any, rawSchema []byte) <-chan mcptype.ToolResult {
	out := make(chan mcptype.ToolResult, 4)
	execID := uuid.NewString()
	metrics := observe.DefaultMetrics()

	go func() {
		defer close(out)

		rec, ok := r.ns.Resolve(fullName)
		if !ok {
			metrics.RecordToolCall(ctx, fullName, "error")
			out <- mcptype.NewErrorResult(fullName, execID, fmt.Sprintf("tool %q not found", fullName), mcptype.ErrKindToolNotFound)
			return
		}

		if err := rec.Validator.Validate(args); err != nil {
			metrics.RecordToolCall(ctx, rec.FullName, "error")
			out <- mcptype.NewErrorResult(rec.FullName, execID, fmt.Sprintf("invalid input: %v", err), mcptype.ErrKindInvalidInput)
			return
		}

		policy := mcptype.SecurityPolicy{}
		if r.policies != nil {
			policy = r.policies(rec.ServerName)
		}
		if err := permission.Check(r.caller, policy, rec.OriginalName, args); err != nil {
			metrics.RecordToolCall(ctx, rec.FullName, "error")
			out <- mcptype.NewErrorResult(rec.FullName, execID, err.Error(), mcptype.ErrKindPermission)
			return
		}

		out <- mcptype.NewProgressResult(rec.FullName, execID, "executing")

		if rec.ServerName == nativeServerName {
			r.executeNative(ctx, rec, args, execID, out, metrics)
			return
		}

		remoteArgs := stripSessionFields(args)
		if supportsSessionContext(rawSchema) {
			remoteArgs["_session_context"] = map[string]any{"execution_id": execID}
		}

		start := time.Now()
		result, err := r.servers.CallTool(ctx, rec.ServerName, rec.OriginalName, remoteArgs)
		elapsed := time.Since(start)
		rec.RecordExecution(elapsed)
		metrics.ToolExecutionDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(observe.Attr("tool", rec.FullName)))

		if err != nil {
			metrics.RecordToolCall(ctx, rec.FullName, "error")
			metrics.RecordServerError(ctx, rec.ServerName, mcptype.ErrKindConnection)
			out <- mcptype.NewErrorResult(rec.FullName, execID, err.Error(), mcptype.ErrKindConnection)
			return
		}
		if result.IsError {
			metrics.RecordToolCall(ctx, rec.FullName, "error")
			metrics.RecordServerError(ctx, rec.ServerName, mcptype.ErrKindExecution)
			out <- mcptype.NewErrorResult(rec.FullName, execID, result.Content, mcptype.ErrKindExecution)
			return
		}

		metrics.RecordToolCall(ctx, rec.FullName, "success")
		metadata := map[string]any{"server": rec.ServerName, "duration_ms": elapsed.Milliseconds()}
		for k, v := range result.Metadata {
			metadata[k] = v
		}
		out <- mcptype.NewSuccessResult(rec.FullName, execID, result.Content, metadata)
	}()

	return out
}

// executeNative runs a tools.NativeTool's Execute method in place of a
// remote CallTool round trip, publishing the same success/error result
// shape so callers can't tell native and remote tools apart.
func (r *Registry) executeNative(ctx context.Context, rec *namespace.Record, args map[string]any, execID string, out chan<- mcptype.ToolResult, metrics *observe.Metrics) {
	r.nativeMu.Lock()
	t, ok := r.native[rec.FullName]
	r.nativeMu.Unlock()
	if !ok {
		metrics.RecordToolCall(ctx, rec.FullName, "error")
		out <- mcptype.NewErrorResult(rec.FullName, execID, "native tool implementation missing", mcptype.ErrKindToolNotFound)
		return
	}

	start := time.Now()
	content, err := t.Execute(ctx, args)
	elapsed := time.Since(start)
	rec.RecordExecution(elapsed)
	metrics.ToolExecutionDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(observe.Attr("tool", rec.FullName)))

	if err != nil {
		metrics.RecordToolCall(ctx, rec.FullName, "error")
		out <- mcptype.NewErrorResult(rec.FullName, execID, err.Error(), mcptype.ErrKindExecution)
		return
	}
	metrics.RecordToolCall(ctx, rec.FullName, "success")
	out <- mcptype.NewSuccessResult(rec.FullName, execID, content, map[string]any{"server": nativeServerName, "duration_ms": elapsed.Milliseconds()})
}

// UnregisterServer removes every currently registered tool belonging to
// server, regardless of whether that server responded on the most recent
// discovery cycle. Unlike RefreshTools's failure-isolation behavior, this is
// for a server being removed from configuration on purpose.
func (r *Registry) UnregisterServer(server string) int {
	removed := 0
	for _, rec := range r.ns.ListRecords() {
		if rec.ServerName == server {
			r.ns.Unregister(rec.FullName)
			r.publish(DiscoveryEvent{Kind: "unregistered", FullName: rec.FullName, ServerName: rec.ServerName})
			removed++
		}
	}
	return removed
}

// RefreshTools runs one discovery cycle: fetch get_all_tools from every
// server concurrently (handled inside servermanager.GetAllTools), diff
// against current registrations, and atomically register new tools and
// unregister missing ones, each server isolated from the others' failures.
func (r *Registry) RefreshTools(ctx context.Context, namespaceOf func(serverName string) string) (added, removed int) {
	discovered := r.servers.GetAllTools(ctx)

	// Tools already registered from the same server keep their Record;
	// only (server, tool) pairs not yet known are registered.
	existing := make(map[string]string)
	for _, rec := range r.ns.ListRecords() {
		existing[rec.ServerName+"\x00"+rec.OriginalName] = rec.FullName
	}

	seen := make(map[string]bool)
	g := new(errgroup.Group)
	var mu sync.Mutex

	for server, tools := range discovered {
		server, tools := server, tools
		g.Go(func() error {
			ns := namespaceOf(server)
			for _, td := range tools {
				if full, ok := existing[td.ServerName+"\x00"+td.Name]; ok {
					mu.Lock()
					seen[full] = true
					mu.Unlock()
					continue
				}
				rec, err := r.RegisterDiscovered(ns, td)
				mu.Lock()
				if err == nil {
					seen[rec.FullName] = true
					added++
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, rec := range r.ns.ListRecords() {
		if !seen[rec.FullName] {
			// Only unregister records belonging to a server we just
			// discovered from; servers that errored entirely this cycle
			// keep their previously registered tools (failure isolation).
			if _, stillDiscovered := discovered[rec.ServerName]; stillDiscovered {
				r.ns.Unregister(rec.FullName)
				r.publish(DiscoveryEvent{Kind: "unregistered", FullName: rec.FullName, ServerName: rec.ServerName})
				removed++
			}
		}
	}

	return added, removed
}
