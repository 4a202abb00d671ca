package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// ConnectionIDKey is the context key for WebSocket connection IDs.
	ConnectionIDKey contextKey = "connection_id"

	// RouteKey is the context key for the gateway route or HTTP path.
	RouteKey contextKey = "route"

	// TransportKey is the context key for the relay transport name.
	TransportKey contextKey = "transport"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// WithConnectionID adds a WebSocket connection ID to the context.
func WithConnectionID(ctx context.Context, connectionID string) context.Context {
	return context.WithValue(ctx, ConnectionIDKey, connectionID)
}

// GetConnectionID retrieves the connection ID from the context.
func GetConnectionID(ctx context.Context) string {
	return stringValue(ctx, ConnectionIDKey)
}

// WithRoute adds a route name to the context.
func WithRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, RouteKey, route)
}

// GetRoute retrieves the route name from the context.
func GetRoute(ctx context.Context) string {
	return stringValue(ctx, RouteKey)
}

// WithTransport adds a transport name to the context.
func WithTransport(ctx context.Context, transport string) context.Context {
	return context.WithValue(ctx, TransportKey, transport)
}

// GetTransport retrieves the transport name from the context.
func GetTransport(ctx context.Context) string {
	return stringValue(ctx, TransportKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// extractContextFields extracts common fields from context for logging.
// Trace and span IDs come from the active OpenTelemetry span, if any.
func extractContextFields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	var fields []any

	if v := GetRequestID(ctx); v != "" {
		fields = append(fields, string(RequestIDKey), v)
	}
	if v := GetConnectionID(ctx); v != "" {
		fields = append(fields, string(ConnectionIDKey), v)
	}
	if v := GetRoute(ctx); v != "" {
		fields = append(fields, string(RouteKey), v)
	}
	if v := GetTransport(ctx); v != "" {
		fields = append(fields, string(TransportKey), v)
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			"trace_id", sc.TraceID().String(),
			"span_id", sc.SpanID().String(),
		)
	}

	return fields
}
