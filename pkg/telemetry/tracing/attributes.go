package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on relay spans.
const (
	AttrTransport    = "chatrelay.transport"
	AttrConnectionID = "chatrelay.connection_id"
	AttrRoute        = "chatrelay.route"
	AttrOutcome      = "chatrelay.relay.outcome"
	AttrChunks       = "chatrelay.relay.chunks"
	AttrBytes        = "chatrelay.relay.bytes"
	AttrPushAttempts = "chatrelay.push.attempts"
)

// SetRelayAttributes records the result of one relay on span.
func SetRelayAttributes(span trace.Span, transport, outcome string, chunks, bytes int) {
	span.SetAttributes(
		attribute.String(AttrTransport, transport),
		attribute.String(AttrOutcome, outcome),
		attribute.Int(AttrChunks, chunks),
		attribute.Int(AttrBytes, bytes),
	)
}

// SetRouteAttributes records the gateway route and connection on span.
func SetRouteAttributes(span trace.Span, route, connectionID string) {
	span.SetAttributes(
		attribute.String(AttrRoute, route),
		attribute.String(AttrConnectionID, connectionID),
	)
}
