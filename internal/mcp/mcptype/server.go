package mcptype

import "time"

// TransportKind selects how a Connection reaches its MCP server process.
type TransportKind string

const (
	TransportStdio     TransportKind = "stdio"
	TransportWebSocket TransportKind = "websocket"
)

// SecurityPolicy restricts what operations and filesystem paths a server's
// tools may exercise.
type SecurityPolicy struct {
	AllowedOperations []string `yaml:"allowed_operations,omitempty"`
	AllowedPaths      []string `yaml:"allowed_paths,omitempty"`
	ForbiddenPaths    []string `yaml:"forbidden_paths,omitempty"`
}

// ReconnectPolicy bounds a Connection's reconnect attempts.
type ReconnectPolicy struct {
	MaxAttempts int           `yaml:"max_attempts,omitempty"`
	BaseDelay   time.Duration `yaml:"base_delay,omitempty"`
}

// DefaultReconnectPolicy matches the original reconnect schedule: 2^n
// seconds, capped at 3 attempts.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

// ServerConfig fully describes one upstream MCP server: how to reach it and
// what it's permitted to do.
type ServerConfig struct {
	Name            string            `yaml:"name"`
	Transport       TransportKind     `yaml:"transport"`
	Command         string            `yaml:"command,omitempty"`
	Args            []string          `yaml:"args,omitempty"`
	URL             string            `yaml:"url,omitempty"`
	Env             map[string]string `yaml:"env,omitempty"`
	Headers         map[string]string `yaml:"headers,omitempty"`
	Security        SecurityPolicy    `yaml:"security,omitempty"`
	CallTimeout     time.Duration     `yaml:"call_timeout,omitempty"`
	ReconnectPolicy ReconnectPolicy   `yaml:"reconnect_policy,omitempty"`
}

// HealthStatus classifies a server's current reachability.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthUnknown   HealthStatus = "unknown"
)

// ServerHealth is a point-in-time health observation for one server.
type ServerHealth struct {
	ServerName string
	Status     HealthStatus
	LastCheck  time.Time
	Diagnostic string
}

// HandshakeState tracks a Connection's progress through the MCP handshake:
// disconnected -> connected -> initialized, or unhealthy on failure at any
// point.
type HandshakeState string

const (
	HandshakeDisconnected HandshakeState = "disconnected"
	HandshakeConnected    HandshakeState = "connected"
	HandshakeInitialized  HandshakeState = "initialized"
	HandshakeUnhealthy    HandshakeState = "unhealthy"
)
