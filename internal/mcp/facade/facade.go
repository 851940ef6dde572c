// Package facade exposes the unified Integration Facade: the single
// external entry point composing the Tool Registry, Server Manager, and
// Loop-Safe Bridge.
package facade

import (
	"context"
	"fmt"
	"time"

	"github.com/MrWong99/mcpcore/internal/mcp/bridge"
	"github.com/MrWong99/mcpcore/internal/mcp/mcptype"
	"github.com/MrWong99/mcpcore/internal/mcp/namespace"
	"github.com/MrWong99/mcpcore/internal/mcp/permission"
	"github.com/MrWong99/mcpcore/internal/mcp/registry"
	"github.com/MrWong99/mcpcore/internal/mcp/servermanager"
	"github.com/MrWong99/mcpcore/internal/mcp/tools"
)

// builtinNamespace is where in-process NativeTools are registered, distinct
// from any server's own namespace.
const builtinNamespace = "builtin"

// Config bundles everything needed to bring a Facade up.
type Config struct {
	ClientName     string
	ClientVersion  string
	Servers        []mcptype.ServerConfig
	Policies       registry.SecurityPolicyLookup
	Caller         permission.CallerPolicy
	ConflictPolicy namespace.ConflictPolicy
	OnDiscovery    func(registry.DiscoveryEvent)
	NativeTools    []tools.NativeTool
}

// Facade is the sole entry point callers outside this package use: it owns
// the Server Manager, the Tool Registry, and the Loop-Safe Bridge that
// isolates all MCP protocol work from the caller's own goroutine/scheduler.
type Facade struct {
	servers  *servermanager.Manager
	registry *registry.Registry
	bridge   *bridge.Bridge
}

// New constructs and starts a Facade: every configured server is connected
// and handshaken, and the registry is populated from an initial discovery
// pass.
func New(ctx context.Context, cfg Config) (*Facade, error) {
	servers := servermanager.New(servermanager.ClientInfo{Name: cfg.ClientName, Version: cfg.ClientVersion})
	servers.Start(ctx, cfg.Servers)

	reg := registry.New(servers, cfg.Policies, cfg.Caller, cfg.ConflictPolicy, cfg.OnDiscovery)

	for _, t := range cfg.NativeTools {
		if _, err := reg.RegisterNative(builtinNamespace, t); err != nil {
			return nil, fmt.Errorf("facade: registering native tool %q: %w", t.Name(), err)
		}
	}

	f := &Facade{servers: servers, registry: reg, bridge: bridge.New()}

	if _, _, err := f.RefreshTools(ctx); err != nil {
		return f, fmt.Errorf("facade: initial discovery: %w", err)
	}
	return f, nil
}

// namespaceFor assigns every server's tools to a namespace named after the
// server itself, the simplest policy that still demonstrates conflict
// resolution when two servers share a tool name.
func namespaceFor(server string) string { return server }

// RefreshTools runs one discovery cycle against every server.
func (f *Facade) RefreshTools(ctx context.Context) (added, removed int, err error) {
	added, removed = f.registry.RefreshTools(ctx, namespaceFor)
	return added, removed, nil
}

// ListTools returns every currently registered full tool name.
func (f *Facade) ListTools() []string { return f.registry.ListTools() }

// GetToolInfo returns descriptive information about one tool.
func (f *Facade) GetToolInfo(name string) (registry.ToolInfo, bool) { return f.registry.GetToolInfo(name) }

// SearchTools finds tools by substring or fuzzy match.
func (f *Facade) SearchTools(query string, fuzzy bool) []registry.SearchMatch {
	return f.registry.SearchTools(query, fuzzy)
}

// ExecuteTool runs a tool call through the Loop-Safe Bridge, collapsing the
// registry's lazy result sequence into a single terminal ToolResult plus
// every intermediate (progress/info) result observed along the way.
//
// Callers on a foreign scheduler should call this rather than reaching
// into the registry directly, so all protocol I/O stays pinned to the
// bridge's dedicated worker.
func (f *Facade) ExecuteTool(ctx context.Context, fullName string, args map[string]any) ([]mcptype.ToolResult, error) {
	var all []mcptype.ToolResult
	terminal, err := f.bridge.CallToolSafe(ctx, func(ctx context.Context) (mcptype.ToolResult, error) {
		var last mcptype.ToolResult
		for r := range f.registry.ExecuteTool(ctx, fullName, args, nil) {
			all = append(all, r)
			last = r
		}
		if last.Kind == mcptype.KindError {
			return last, fmt.Errorf("%s", last.Content)
		}
		return last, nil
	})
	if err != nil && terminal.Kind == "" {
		return all, err
	}
	return all, nil
}

// Reconnect tears down and re-establishes the named server's connection
// with cfg, then re-runs discovery so the registry picks up whatever the
// server now exposes. Callers drive this from a config hot-reload diff
// whose TransportOrURL flag is set.
func (f *Facade) Reconnect(ctx context.Context, cfg mcptype.ServerConfig) error {
	if err := f.servers.Reconnect(ctx, cfg); err != nil {
		return err
	}
	_, _, err := f.RefreshTools(ctx)
	return err
}

// RemoveServer disconnects and forgets the named server and removes its
// tools from the registry.
func (f *Facade) RemoveServer(ctx context.Context, name string) {
	f.servers.RemoveServer(ctx, name)
	f.registry.UnregisterServer(name)
}

// GetServerHealth returns the last-known health of a server.
func (f *Facade) GetServerHealth(server string) (mcptype.ServerHealth, bool) {
	return f.servers.GetServerHealth(server)
}

// ListServers returns every configured server's name.
func (f *Facade) ListServers() []string { return f.servers.ListServers() }

// Shutdown tears down every Connection and stops the bridge worker.
func (f *Facade) Shutdown(ctx context.Context) {
	f.bridge.Shutdown()
	f.servers.Stop(ctx)
}

// DiscoveryLoop runs RefreshTools on a fixed interval until ctx is
// cancelled, implementing the Auto-Discovery operational mode.
func (f *Facade) DiscoveryLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _, _ = f.RefreshTools(ctx)
		}
	}
}
