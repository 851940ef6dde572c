// Package config provides the configuration schema, loader, and hot-reload
// machinery for the MCP integration core.
package config

import "time"

// Config is the root configuration structure.
type Config struct {
	Server ServerConfig `yaml:"server"`
	MCP    MCPConfig    `yaml:"mcp"`
}

// ServerConfig holds network and logging settings for the core's own
// process (health/readiness endpoints), distinct from the MCP servers it
// connects out to.
type ServerConfig struct {
	// ListenAddr is the TCP address the health/readiness server listens on
	// (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Valid values: "debug", "info", "warn", "error".
	LogLevel LogLevel `yaml:"log_level"`
}

// LogLevel is a validated slog level name.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// IsValid reports whether l is one of the known level names.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}

// MCPConfig holds everything needed to bring the Integration Facade up:
// client identity, the conflict-resolution policy, the auto-discovery
// interval, and the list of MCP servers to connect to.
type MCPConfig struct {
	// ClientName and ClientVersion are reported to every server during the
	// initialize handshake.
	ClientName    string `yaml:"client_name"`
	ClientVersion string `yaml:"client_version"`

	// ConflictPolicy selects how namespace collisions are resolved.
	// Valid values: "suffix" (default), "reject", "replace".
	ConflictPolicy ConflictPolicy `yaml:"conflict_policy"`

	// DiscoveryInterval is how often the auto-discovery loop re-fetches
	// each server's tool list. Zero disables the loop (discovery then runs
	// only once, at startup).
	DiscoveryInterval time.Duration `yaml:"discovery_interval"`

	Servers []MCPServerConfig `yaml:"servers"`
}

// ConflictPolicy names a namespace conflict-resolution strategy.
type ConflictPolicy string

const (
	ConflictSuffix  ConflictPolicy = "suffix"
	ConflictReject  ConflictPolicy = "reject"
	ConflictReplace ConflictPolicy = "replace"
)

// IsValid reports whether p is a known conflict-resolution strategy.
func (p ConflictPolicy) IsValid() bool {
	switch p {
	case ConflictSuffix, ConflictReject, ConflictReplace:
		return true
	default:
		return false
	}
}

// TransportKind selects how a Connection reaches its MCP server process.
type TransportKind string

const (
	TransportStdio     TransportKind = "stdio"
	TransportWebSocket TransportKind = "websocket"
)

// IsValid reports whether t is a supported transport kind.
func (t TransportKind) IsValid() bool {
	switch t {
	case TransportStdio, TransportWebSocket:
		return true
	default:
		return false
	}
}

// MCPServerConfig describes how to connect to, and what to permit from, a
// single MCP tool server.
type MCPServerConfig struct {
	// Name is a unique human-readable identifier for this server (used in
	// logs and as the default namespace for its tools).
	Name string `yaml:"name"`

	// Transport specifies the connection mechanism.
	Transport TransportKind `yaml:"transport"`

	// Command is the executable (with optional arguments) launched when
	// Transport is "stdio".
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`

	// URL is the endpoint address used when Transport is "websocket".
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`

	// Env holds additional environment variables injected into the
	// subprocess when Transport is "stdio".
	Env map[string]string `yaml:"env"`

	// Security restricts what operations and filesystem paths this
	// server's tools may exercise.
	Security SecurityPolicy `yaml:"security"`

	// CallTimeout bounds a single tools/call round trip. The protocol's own
	// 30s per-call deadline still applies, so larger values have no effect;
	// zero leaves that deadline as the only bound.
	CallTimeout time.Duration `yaml:"call_timeout"`

	ReconnectPolicy ReconnectPolicy `yaml:"reconnect_policy"`
}

// SecurityPolicy restricts what operations and filesystem paths a server's
// tools may exercise.
type SecurityPolicy struct {
	AllowedOperations []string `yaml:"allowed_operations"`
	AllowedPaths      []string `yaml:"allowed_paths"`
	ForbiddenPaths    []string `yaml:"forbidden_paths"`
}

// ReconnectPolicy bounds a Connection's reconnect attempts.
type ReconnectPolicy struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
}
