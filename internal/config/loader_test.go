package config_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/mcpcore/internal/config"
)

func TestValidate_DuplicateServerNames(t *testing.T) {
	t.Parallel()
	yaml := `
mcp:
  servers:
    - name: fs
      transport: stdio
      command: fs-server
    - name: fs
      transport: stdio
      command: fs-server
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for duplicate server names, got nil")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error should mention duplicate, got: %v", err)
	}
}

func TestValidate_StdioRequiresCommand(t *testing.T) {
	t.Parallel()
	yaml := `
mcp:
  servers:
    - name: fs
      transport: stdio
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for stdio server missing command, got nil")
	}
	if !strings.Contains(err.Error(), "command is required") {
		t.Errorf("error should mention command, got: %v", err)
	}
}

func TestValidate_WebSocketRequiresURL(t *testing.T) {
	t.Parallel()
	yaml := `
mcp:
  servers:
    - name: remote
      transport: websocket
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for websocket server missing url, got nil")
	}
	if !strings.Contains(err.Error(), "url is required") {
		t.Errorf("error should mention url, got: %v", err)
	}
}

func TestValidate_InvalidConflictPolicy(t *testing.T) {
	t.Parallel()
	yaml := `
mcp:
  conflict_policy: clobber
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid conflict_policy, got nil")
	}
	if !strings.Contains(err.Error(), "conflict_policy") {
		t.Errorf("error should mention conflict_policy, got: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: verbose
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log_level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_WellFormedConfigIsValid(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8080"
  log_level: info
mcp:
  client_name: mcpcore
  client_version: "1.0"
  conflict_policy: suffix
  discovery_interval: 30s
  servers:
    - name: fs
      transport: stdio
      command: fs-server
      security:
        allowed_operations: ["read"]
        forbidden_paths: ["/etc"]
      call_timeout: 10s
      reconnect_policy:
        max_attempts: 3
        base_delay: 1s
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.MCP.Servers) != 1 || cfg.MCP.Servers[0].Name != "fs" {
		t.Fatalf("unexpected servers: %+v", cfg.MCP.Servers)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
mcp:
  servers:
    - name: fs
      transport: stdio
    - name: fs
      transport: websocket
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "duplicate") {
		t.Errorf("error should mention duplicate, got: %v", err)
	}
	if !strings.Contains(errStr, "command is required") {
		t.Errorf("error should mention missing command, got: %v", err)
	}
	if !strings.Contains(errStr, "url is required") {
		t.Errorf("error should mention missing url, got: %v", err)
	}
}
