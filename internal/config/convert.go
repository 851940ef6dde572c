package config

import (
	"fmt"

	"github.com/MrWong99/mcpcore/internal/mcp/mcptype"
	"github.com/MrWong99/mcpcore/internal/mcp/namespace"
)

// ToServerConfig translates a decoded MCPServerConfig into the mcptype
// shape the Server Manager consumes.
func (c MCPServerConfig) ToServerConfig() mcptype.ServerConfig {
	return mcptype.ServerConfig{
		Name:      c.Name,
		Transport: mcptype.TransportKind(c.Transport),
		Command:   c.Command,
		Args:      c.Args,
		URL:       c.URL,
		Env:       c.Env,
		Headers:   c.Headers,
		Security: mcptype.SecurityPolicy{
			AllowedOperations: c.Security.AllowedOperations,
			AllowedPaths:      c.Security.AllowedPaths,
			ForbiddenPaths:    c.Security.ForbiddenPaths,
		},
		CallTimeout: c.CallTimeout,
		ReconnectPolicy: mcptype.ReconnectPolicy{
			MaxAttempts: c.ReconnectPolicy.MaxAttempts,
			BaseDelay:   c.ReconnectPolicy.BaseDelay,
		},
	}
}

// ToServerConfigs translates every configured server.
func (m MCPConfig) ToServerConfigs() []mcptype.ServerConfig {
	out := make([]mcptype.ServerConfig, len(m.Servers))
	for i, s := range m.Servers {
		out[i] = s.ToServerConfig()
	}
	return out
}

// ToNamespaceConflictPolicy translates the configured conflict policy name
// into namespace.ConflictPolicy, defaulting to ConflictSuffix for an empty
// value and erroring on an unrecognized one.
func (m MCPConfig) ToNamespaceConflictPolicy() (namespace.ConflictPolicy, error) {
	switch m.ConflictPolicy {
	case "", ConflictSuffix:
		return namespace.ConflictSuffix, nil
	case ConflictReject:
		return namespace.ConflictReject, nil
	case ConflictReplace:
		return namespace.ConflictReplace, nil
	default:
		return 0, fmt.Errorf("config: unknown mcp.conflict_policy %q", m.ConflictPolicy)
	}
}
