// Package servermanager owns named Connections, performs the MCP handshake
// on each, and routes tool calls to the right upstream server.
package servermanager

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/mcpcore/internal/mcp/mcpconn"
	"github.com/MrWong99/mcpcore/internal/mcp/mcptype"
	"github.com/MrWong99/mcpcore/internal/mcp/transport"
)

// ClientInfo identifies this client during the initialize handshake.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      ClientInfo     `json:"clientInfo"`
}

type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      ClientInfo     `json:"serverInfo"`
}

type toolsListResult struct {
	Tools []mcptype.ToolDescriptor `json:"tools"`
}

type toolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type toolsCallResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError  bool           `json:"isError,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type serverEntry struct {
	cfg   mcptype.ServerConfig
	conn  *mcpconn.Connection
	state mcptype.HandshakeState
}

// Manager owns every configured server's Connection and lifecycle.
type Manager struct {
	clientInfo ClientInfo

	mu      sync.RWMutex
	servers map[string]*serverEntry
}

// New returns a Manager that identifies itself as clientInfo during every
// handshake.
func New(clientInfo ClientInfo) *Manager {
	return &Manager{clientInfo: clientInfo, servers: make(map[string]*serverEntry)}
}

// Start brings up every configured server: Transport -> Connection ->
// connect -> handshake. Per-server failures are logged, not fatal; the
// server is simply left out of the healthy set.
func (m *Manager) Start(ctx context.Context, configs []mcptype.ServerConfig) {
	g, gctx := errgroup.WithContext(ctx)
	for _, cfg := range configs {
		cfg := cfg
		g.Go(func() error {
			if err := m.startOne(gctx, cfg); err != nil {
				slog.Error("mcp server manager: failed to start server", "server", cfg.Name, "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (m *Manager) startOne(ctx context.Context, cfg mcptype.ServerConfig) error {
	tr, err := transport.New(cfg)
	if err != nil {
		return err
	}

	entry := &serverEntry{cfg: cfg, state: mcptype.HandshakeDisconnected}
	entry.conn = mcpconn.New(cfg.Name, tr, cfg.ReconnectPolicy, nil)

	m.mu.Lock()
	m.servers[cfg.Name] = entry
	m.mu.Unlock()

	if err := entry.conn.Connect(ctx); err != nil {
		entry.state = mcptype.HandshakeUnhealthy
		return err
	}
	entry.state = mcptype.HandshakeConnected

	if err := m.handshake(ctx, entry); err != nil {
		entry.state = mcptype.HandshakeUnhealthy
		_ = entry.conn.Disconnect(ctx)
		return fmt.Errorf("handshake with %q: %w", cfg.Name, err)
	}
	entry.state = mcptype.HandshakeInitialized
	return nil
}

// handshake performs initialize followed by notifications/initialized.
// Tool calls are only admitted once this completes.
func (m *Manager) handshake(ctx context.Context, entry *serverEntry) error {
	params := initializeParams{
		ProtocolVersion: mcptype.ProtocolVersion,
		Capabilities:    map[string]any{},
		ClientInfo:      m.clientInfo,
	}

	raw, err := entry.conn.Protocol().CallMethod(ctx, "initialize", params)
	if err != nil {
		return err
	}

	var result initializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("%w: parse initialize result: %v", mcptype.ErrProtocol, err)
	}

	return entry.conn.Protocol().SendNotification(ctx, "notifications/initialized", nil)
}

// Stop disconnects every server.
func (m *Manager) Stop(ctx context.Context) {
	m.mu.RLock()
	entries := make([]*serverEntry, 0, len(m.servers))
	for _, e := range m.servers {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	for _, e := range entries {
		if err := e.conn.Disconnect(ctx); err != nil {
			slog.Warn("mcp server manager: error disconnecting server", "server", e.cfg.Name, "err", err)
		}
	}
}

// ListServers returns the names of every configured server, healthy or
// not.
func (m *Manager) ListServers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.servers))
	for name := range m.servers {
		names = append(names, name)
	}
	return names
}

func (m *Manager) isInitialized(entry *serverEntry) bool {
	return entry.state == mcptype.HandshakeInitialized
}

// GetAllTools fetches tools/list from every initialized server concurrently,
// isolating per-server failures.
func (m *Manager) GetAllTools(ctx context.Context) map[string][]mcptype.ToolDescriptor {
	m.mu.RLock()
	entries := make(map[string]*serverEntry, len(m.servers))
	for name, e := range m.servers {
		entries[name] = e
	}
	m.mu.RUnlock()

	var mu sync.Mutex
	out := make(map[string][]mcptype.ToolDescriptor, len(entries))

	var wg sync.WaitGroup
	for name, entry := range entries {
		if !m.isInitialized(entry) {
			continue
		}
		wg.Add(1)
		go func(name string, entry *serverEntry) {
			defer wg.Done()
			tools, err := m.listTools(ctx, entry)
			if err != nil {
				slog.Warn("mcp server manager: tools/list failed", "server", name, "err", err)
				return
			}
			mu.Lock()
			out[name] = tools
			mu.Unlock()
		}(name, entry)
	}
	wg.Wait()
	return out
}

func (m *Manager) listTools(ctx context.Context, entry *serverEntry) ([]mcptype.ToolDescriptor, error) {
	raw, err := entry.conn.Protocol().CallMethod(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	var result toolsListResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: parse tools/list result: %v", mcptype.ErrProtocol, err)
	}
	for i := range result.Tools {
		result.Tools[i].ServerName = entry.cfg.Name
	}
	return result.Tools, nil
}

// CallToolResult is the routed, server-agnostic result of a tools/call.
type CallToolResult struct {
	Content  string
	IsError  bool
	Metadata map[string]any
}

// CallTool routes a tools/call to the named server.
func (m *Manager) CallTool(ctx context.Context, server, tool string, args map[string]any) (*CallToolResult, error) {
	m.mu.RLock()
	entry, ok := m.servers[server]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: server %q", mcptype.ErrServerUnhealthy, server)
	}
	if !m.isInitialized(entry) {
		return nil, fmt.Errorf("%w: server %q not initialized", mcptype.ErrServerUnhealthy, server)
	}

	if entry.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, entry.cfg.CallTimeout)
		defer cancel()
	}

	params := toolsCallParams{Name: tool, Arguments: args}
	raw, err := entry.conn.Protocol().CallMethod(ctx, "tools/call", params)
	if err != nil {
		return nil, err
	}

	var result toolsCallResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: parse tools/call result: %v", mcptype.ErrProtocol, err)
	}

	var content string
	for _, c := range result.Content {
		content += c.Text
	}

	return &CallToolResult{Content: content, IsError: result.IsError, Metadata: result.Metadata}, nil
}

// Reconnect tears down the named server's Connection (if any) and brings it
// back up with cfg, driving the Registry's Dynamic Updates mode for changes
// that touch transport, command, args, env, headers, or url (see
// [internal/config.ServerDiff.TransportOrURL]) — changes a running
// Connection cannot absorb in place.
func (m *Manager) Reconnect(ctx context.Context, cfg mcptype.ServerConfig) error {
	m.mu.Lock()
	old, existed := m.servers[cfg.Name]
	m.mu.Unlock()

	if existed {
		if err := old.conn.Disconnect(ctx); err != nil {
			slog.Warn("mcp server manager: error disconnecting server before reconnect", "server", cfg.Name, "err", err)
		}
	}

	if err := m.startOne(ctx, cfg); err != nil {
		slog.Error("mcp server manager: reconnect failed", "server", cfg.Name, "err", err)
		return err
	}
	slog.Info("mcp server manager: server reconnected", "server", cfg.Name)
	return nil
}

// RemoveServer disconnects and forgets the named server, for when it is
// removed from configuration entirely.
func (m *Manager) RemoveServer(ctx context.Context, name string) {
	m.mu.Lock()
	entry, ok := m.servers[name]
	if ok {
		delete(m.servers, name)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	if err := entry.conn.Disconnect(ctx); err != nil {
		slog.Warn("mcp server manager: error disconnecting removed server", "server", name, "err", err)
	}
}

// GetServerHealth returns the last-known health of the named server.
func (m *Manager) GetServerHealth(server string) (mcptype.ServerHealth, bool) {
	m.mu.RLock()
	entry, ok := m.servers[server]
	m.mu.RUnlock()
	if !ok {
		return mcptype.ServerHealth{}, false
	}
	return entry.conn.Health(), true
}
