// Package tracing sets up OpenTelemetry tracing for the relay.
//
// New installs an SDK tracer provider exporting over OTLP gRPC with a
// parent-based sampler ("always", "never" or "ratio") and the W3C trace
// context propagators. When tracing is disabled a noop tracer is used.
//
// Spans in the relay:
//   - one server span per HTTP request (HTTPMiddleware)
//   - one span per WebSocket route invocation
//   - model.converse and model.converse_stream around model calls
//
// The client injects trace context into outgoing requests with Inject, so
// a client-started trace continues on the server.
package tracing
