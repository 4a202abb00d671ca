// Package middleware provides the HTTP middleware of the chat relay.
//
// The server chains them as
//
//	Recovery(Logging(RequestID(CORS(routes))))
//
// and wraps only the unary /chat route in TimeoutMiddleware. The streaming
// and WebSocket routes are long-lived and are bounded by the server write
// timeout instead.
//
// # Request ID
//
// RequestIDMiddleware reuses an incoming X-Request-ID header or generates a
// UUID v4, stores it in the request context and echoes it in the response.
//
// # CORS
//
// CORSMiddleware sends the static CORS headers configured under
// server.cors. Preflight OPTIONS requests are answered with 200 and an empty
// body before authentication runs. CORSConfig.Headers returns the same set
// for the streaming binding, which also emits them in-band.
//
// # Recovery
//
// RecoveryMiddleware turns a handler panic into a 500 JSON error and logs
// the stack. http.ErrAbortHandler is re-raised.
//
// # Timeout
//
// TimeoutMiddleware buffers the handler response and sends a 504 JSON error
// if the deadline passes first.
package middleware
