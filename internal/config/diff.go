package config

import "reflect"

// ConfigDiff describes what changed between two configs, driving the
// registry's Dynamic Updates mode without a full process restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	ServersChanged bool
	ServerChanges  []ServerDiff
}

// ServerDiff describes what changed for a single MCP server between two
// configs.
type ServerDiff struct {
	Name           string
	Added          bool
	Removed        bool
	TransportOrURL bool // transport, command, args, env, headers, or url changed — requires reconnect
	SecurityOnly   bool // only the security policy changed — can be applied in place
}

// Diff compares old and new configs and returns what changed. Only tracks
// changes that are safe to apply without a full process restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	oldServers := make(map[string]*MCPServerConfig, len(old.MCP.Servers))
	for i := range old.MCP.Servers {
		oldServers[old.MCP.Servers[i].Name] = &old.MCP.Servers[i]
	}
	newServers := make(map[string]*MCPServerConfig, len(new.MCP.Servers))
	for i := range new.MCP.Servers {
		newServers[new.MCP.Servers[i].Name] = &new.MCP.Servers[i]
	}

	for name, oldSrv := range oldServers {
		newSrv, exists := newServers[name]
		if !exists {
			d.ServerChanges = append(d.ServerChanges, ServerDiff{Name: name, Removed: true})
			d.ServersChanged = true
			continue
		}
		if sd, changed := diffServer(name, oldSrv, newSrv); changed {
			d.ServerChanges = append(d.ServerChanges, sd)
			d.ServersChanged = true
		}
	}

	for name := range newServers {
		if _, exists := oldServers[name]; !exists {
			d.ServerChanges = append(d.ServerChanges, ServerDiff{Name: name, Added: true})
			d.ServersChanged = true
		}
	}

	return d
}

// diffServer compares two server configs with the same name.
func diffServer(name string, old, new *MCPServerConfig) (ServerDiff, bool) {
	sd := ServerDiff{Name: name}

	transportOrURL := old.Transport != new.Transport ||
		old.Command != new.Command ||
		old.URL != new.URL ||
		!reflect.DeepEqual(old.Args, new.Args) ||
		!reflect.DeepEqual(old.Env, new.Env) ||
		!reflect.DeepEqual(old.Headers, new.Headers)

	securityChanged := !reflect.DeepEqual(old.Security, new.Security)

	sd.TransportOrURL = transportOrURL
	sd.SecurityOnly = securityChanged && !transportOrURL

	return sd, transportOrURL || securityChanged
}
