// Package telemetry groups the relay's observability packages.
//
//   - logging: slog handler with context fields and secret redaction
//   - metrics: Prometheus collectors for relays, model calls and the
//     WebSocket gateway
//   - tracing: OpenTelemetry tracer with OTLP gRPC export
//
// Health and readiness probes live with the HTTP handlers.
package telemetry
