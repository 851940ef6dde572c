package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/mcpcore/internal/config"
)

const sampleYAML = `
server:
  listen_addr: ":8080"
  log_level: info

mcp:
  client_name: mcpcore
  client_version: "1.0.0"
  conflict_policy: suffix
  discovery_interval: 30s
  servers:
    - name: tools
      transport: stdio
      command: /usr/local/bin/mcp-tools
      security:
        allowed_operations: ["read", "write"]
        forbidden_paths: ["/etc", "/root"]
      call_timeout: 10s
      reconnect_policy:
        max_attempts: 3
        base_delay: 1s
    - name: web
      transport: websocket
      url: wss://tools.example.com/mcp
`

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("server.listen_addr: got %q, want %q", cfg.Server.ListenAddr, ":8080")
	}
	if cfg.Server.LogLevel != config.LogLevelInfo {
		t.Errorf("server.log_level: got %q, want %q", cfg.Server.LogLevel, config.LogLevelInfo)
	}
	if cfg.MCP.ClientName != "mcpcore" {
		t.Errorf("mcp.client_name: got %q", cfg.MCP.ClientName)
	}
	if cfg.MCP.DiscoveryInterval != 30*time.Second {
		t.Errorf("mcp.discovery_interval: got %v, want 30s", cfg.MCP.DiscoveryInterval)
	}
	if len(cfg.MCP.Servers) != 2 {
		t.Fatalf("mcp.servers: got %d, want 2", len(cfg.MCP.Servers))
	}
	first := cfg.MCP.Servers[0]
	if first.Name != "tools" || first.Transport != config.TransportStdio {
		t.Errorf("mcp.servers[0]: got %+v", first)
	}
	if len(first.Security.ForbiddenPaths) != 2 {
		t.Errorf("mcp.servers[0].security.forbidden_paths: got %v", first.Security.ForbiddenPaths)
	}
	if first.ReconnectPolicy.MaxAttempts != 3 {
		t.Errorf("mcp.servers[0].reconnect_policy.max_attempts: got %d, want 3", first.ReconnectPolicy.MaxAttempts)
	}
}

func TestLoadFromReader_EmptyIsValid(t *testing.T) {
	// An empty config should succeed (no required top-level fields).
	_, err := config.LoadFromReader(strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("unexpected error for empty config: %v", err)
	}
}

func TestToServerConfigs_TranslatesSecurityAndReconnectPolicy(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	servers := cfg.MCP.ToServerConfigs()
	if len(servers) != 2 {
		t.Fatalf("got %d server configs, want 2", len(servers))
	}
	if servers[0].Security.ForbiddenPaths[0] != "/etc" {
		t.Errorf("unexpected forbidden paths: %v", servers[0].Security.ForbiddenPaths)
	}
	if servers[0].ReconnectPolicy.MaxAttempts != 3 {
		t.Errorf("unexpected reconnect policy: %+v", servers[0].ReconnectPolicy)
	}
}

func TestToNamespaceConflictPolicy(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	policy, err := cfg.MCP.ToNamespaceConflictPolicy()
	if err != nil {
		t.Fatalf("ToNamespaceConflictPolicy: %v", err)
	}
	_ = policy // suffix is the zero value; just assert no error above.
}

func TestToNamespaceConflictPolicy_Unknown(t *testing.T) {
	mcp := config.MCPConfig{ConflictPolicy: "clobber"}
	if _, err := mcp.ToNamespaceConflictPolicy(); err == nil {
		t.Fatal("expected error for unknown conflict policy")
	}
}
