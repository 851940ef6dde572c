// Command mcpcore is the main entry point for the MCP integration server:
// it connects to every configured MCP server, exposes their tools through
// a namespaced registry, and serves health/readiness over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/MrWong99/mcpcore/internal/config"
	"github.com/MrWong99/mcpcore/internal/health"
	"github.com/MrWong99/mcpcore/internal/mcp/facade"
	"github.com/MrWong99/mcpcore/internal/mcp/mcptype"
	"github.com/MrWong99/mcpcore/internal/mcp/registry"
	"github.com/MrWong99/mcpcore/internal/mcp/tools"
	"github.com/MrWong99/mcpcore/internal/mcp/tools/diceroller"
	"github.com/MrWong99/mcpcore/internal/observe"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ───────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "mcpcore: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "mcpcore: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("mcpcore starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"servers", len(cfg.MCP.Servers),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ───────────────────────────────────────────────────────
	shutdownOTel, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "mcpcore"})
	if err != nil {
		slog.Error("failed to initialise observability provider", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOTel(shutdownCtx)
	}()
	metrics := observe.DefaultMetrics()

	// ── Security policy table, mutated in place by hot-reload ─────────────
	policies := newPolicyTable(cfg.MCP.Servers)

	conflictPolicy, err := cfg.MCP.ToNamespaceConflictPolicy()
	if err != nil {
		slog.Error("invalid mcp.conflict_policy", "err", err)
		return 1
	}

	f, err := facade.New(ctx, facade.Config{
		ClientName:     cfg.MCP.ClientName,
		ClientVersion:  cfg.MCP.ClientVersion,
		Servers:        cfg.MCP.ToServerConfigs(),
		Policies:       policies.lookup,
		Caller:         nil,
		ConflictPolicy: conflictPolicy,
		OnDiscovery:    discoveryLogger(metrics),
		NativeTools:    builtinTools(),
	})
	if err != nil {
		slog.Error("failed to initialise mcp facade", "err", err)
		return 1
	}

	if cfg.MCP.DiscoveryInterval > 0 {
		go f.DiscoveryLoop(ctx, cfg.MCP.DiscoveryInterval)
	}

	// ── Config hot-reload ───────────────────────────────────────────────────
	reloader := &configReloader{facade: f, policies: policies}
	watcher, err := config.NewWatcher(*configPath, reloader.onChange)
	if err != nil {
		slog.Error("failed to start config watcher", "err", err)
		return 1
	}
	defer watcher.Stop()

	// ── HTTP: health, readiness ─────────────────────────────────────────────
	mux := http.NewServeMux()
	healthHandler := health.New(serverCheckers(f)...)
	healthHandler.Register(mux)

	var srv *http.Server
	if cfg.Server.ListenAddr != "" {
		srv = &http.Server{Addr: cfg.Server.ListenAddr, Handler: observe.Middleware(metrics)(mux)}
		go func() {
			slog.Info("http server listening", "addr", cfg.Server.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("http server error", "err", err)
			}
		}()
	}

	slog.Info("server ready — press Ctrl+C to shut down", "tools", len(f.ListTools()))
	<-ctx.Done()

	// ── Graceful shutdown ───────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http shutdown error", "err", err)
		}
	}
	f.Shutdown(shutdownCtx)
	slog.Info("goodbye")
	return 0
}

// ── Native tools ──────────────────────────────────────────────────────────

// builtinTools returns every in-process NativeTool shipped with this binary.
func builtinTools() []tools.NativeTool {
	return diceroller.Tools()
}

// ── Security policy table ────────────────────────────────────────────────

// policyTable is a mutable, concurrency-safe view over each server's
// SecurityPolicy, read live by the registry on every permission check. A
// SecurityOnly config change (see config.ServerDiff) is applied here in
// place, without touching the server's Connection.
type policyTable struct {
	mu       sync.RWMutex
	policies map[string]mcptype.SecurityPolicy
}

func newPolicyTable(servers []config.MCPServerConfig) *policyTable {
	pt := &policyTable{policies: make(map[string]mcptype.SecurityPolicy, len(servers))}
	for _, s := range servers {
		pt.policies[s.Name] = s.ToServerConfig().Security
	}
	return pt
}

func (pt *policyTable) lookup(server string) mcptype.SecurityPolicy {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return pt.policies[server]
}

func (pt *policyTable) set(server string, policy mcptype.SecurityPolicy) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.policies[server] = policy
}

func (pt *policyTable) remove(server string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	delete(pt.policies, server)
}

// ── Config hot-reload ─────────────────────────────────────────────────────

// configReloader drives the registry's Dynamic Updates mode from a
// config.Watcher callback: security-only changes are applied in place via
// policyTable, everything else forces a reconnect (or removal) of the
// affected server through the facade.
type configReloader struct {
	facade   *facade.Facade
	policies *policyTable
}

func (cr *configReloader) onChange(old, new *config.Config) {
	diff := config.Diff(old, new)
	if diff.LogLevelChanged {
		slog.Info("config hot-reload: log level changed", "new_level", diff.NewLogLevel)
	}
	if !diff.ServersChanged {
		return
	}

	byName := make(map[string]config.MCPServerConfig, len(new.MCP.Servers))
	for _, s := range new.MCP.Servers {
		byName[s.Name] = s
	}

	// Reconnects run with a bounded timeout each so one wedged server can't
	// hang the whole reload cycle.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, sc := range diff.ServerChanges {
		switch {
		case sc.Removed:
			slog.Info("config hot-reload: server removed", "server", sc.Name)
			cr.facade.RemoveServer(ctx, sc.Name)
			cr.policies.remove(sc.Name)

		case sc.TransportOrURL || sc.Added:
			newCfg, ok := byName[sc.Name]
			if !ok {
				slog.Warn("config hot-reload: server change with no matching new config", "server", sc.Name)
				continue
			}
			slog.Info("config hot-reload: reconnecting server", "server", sc.Name, "added", sc.Added)
			cr.policies.set(sc.Name, newCfg.ToServerConfig().Security)
			if err := cr.facade.Reconnect(ctx, newCfg.ToServerConfig()); err != nil {
				slog.Error("config hot-reload: reconnect failed", "server", sc.Name, "err", err)
			}

		case sc.SecurityOnly:
			newCfg, ok := byName[sc.Name]
			if !ok {
				continue
			}
			slog.Info("config hot-reload: security policy changed in place", "server", sc.Name)
			cr.policies.set(sc.Name, newCfg.ToServerConfig().Security)
		}
	}
}

// ── HTTP health checkers ──────────────────────────────────────────────────

// serverCheckers builds one health.Checker per configured MCP server,
// reporting the facade's last-known health observation for it.
func serverCheckers(f *facade.Facade) []health.Checker {
	var checkers []health.Checker
	for _, name := range f.ListServers() {
		name := name
		checkers = append(checkers, health.Checker{
			Name: name,
			Check: func(ctx context.Context) error {
				h, ok := f.GetServerHealth(name)
				if !ok {
					return fmt.Errorf("no health observation for %q", name)
				}
				if h.Status != mcptype.HealthHealthy {
					return fmt.Errorf("%s: %s", h.Status, h.Diagnostic)
				}
				return nil
			},
		})
	}
	return checkers
}

// discoveryLogger logs every registry discovery event and feeds it into the
// discovery-events counter.
func discoveryLogger(m *observe.Metrics) func(registry.DiscoveryEvent) {
	return func(ev registry.DiscoveryEvent) {
		m.RecordDiscoveryEvent(context.Background(), ev.Kind)
		switch ev.Kind {
		case "registration_failed":
			slog.Warn("tool discovery: registration failed", "server", ev.ServerName, "detail", ev.Detail)
		default:
			slog.Debug("tool discovery event", "kind", ev.Kind, "tool", ev.FullName, "server", ev.ServerName)
		}
	}
}

// ── Logger ────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogLevelDebug:
		lvl = slog.LevelDebug
	case config.LogLevelWarn:
		lvl = slog.LevelWarn
	case config.LogLevelError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
