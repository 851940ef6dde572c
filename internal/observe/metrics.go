// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, distributed tracing, structured logging, and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. [InitProvider]
// installs a Prometheus exporter that registers with the default Prometheus
// registry; this module mounts no /metrics HTTP handler. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/MrWong99/mcpcore"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// ToolExecutionDuration tracks MCP tool execution latency.
	ToolExecutionDuration metric.Float64Histogram

	// RPCCallDuration tracks MCP JSON-RPC round-trip latency.
	RPCCallDuration metric.Float64Histogram

	// --- Counters ---

	// ToolCalls counts tool invocations. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// DiscoveryEvents counts registry discovery events. Use with attribute:
	//   attribute.String("kind", ...)
	DiscoveryEvents metric.Int64Counter

	// --- Error counters ---

	// ServerErrors counts MCP server connection/reconnect errors by server
	// name and failure kind.
	ServerErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveServers tracks the number of currently connected MCP servers.
	ActiveServers metric.Int64UpDownCounter

	// RegisteredTools tracks the number of tools currently in the registry.
	RegisteredTools metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for tool-call and RPC latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ToolExecutionDuration, err = m.Float64Histogram("mcpcore.tool_execution.duration",
		metric.WithDescription("Latency of MCP tool execution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RPCCallDuration, err = m.Float64Histogram("mcpcore.rpc_call.duration",
		metric.WithDescription("Latency of an MCP JSON-RPC round trip."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ToolCalls, err = m.Int64Counter("mcpcore.tool.calls",
		metric.WithDescription("Total tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}
	if met.DiscoveryEvents, err = m.Int64Counter("mcpcore.discovery.events",
		metric.WithDescription("Total registry discovery events by kind."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ServerErrors, err = m.Int64Counter("mcpcore.server.errors",
		metric.WithDescription("Total MCP server connection errors by server and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveServers, err = m.Int64UpDownCounter("mcpcore.active_servers",
		metric.WithDescription("Number of currently connected MCP servers."),
	); err != nil {
		return nil, err
	}
	if met.RegisteredTools, err = m.Int64UpDownCounter("mcpcore.registered_tools",
		metric.WithDescription("Number of tools currently registered."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("mcpcore.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordToolCall is a convenience method that records a tool call counter
// increment with the standard attribute set.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string) {
	m.ToolCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
		),
	)
}

// RecordDiscoveryEvent is a convenience method that records a registry
// discovery event counter increment.
func (m *Metrics) RecordDiscoveryEvent(ctx context.Context, kind string) {
	m.DiscoveryEvents.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordServerError is a convenience method that records an MCP server error
// counter increment.
func (m *Metrics) RecordServerError(ctx context.Context, server, kind string) {
	m.ServerErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("server", server),
			attribute.String("kind", kind),
		),
	)
}
