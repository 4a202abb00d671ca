// Package server provides the chat relay HTTP server.
//
// The server mounts the three bindings of the relay on one listener:
//
//   - POST /chat: unary, one complete model response as JSON
//   - POST /chat/stream: NDJSON wire events flushed per model fragment
//   - GET /ws: WebSocket connections whose messages are answered by push
//
// plus the push management API under /@connections/, /health, /ready and
// the Prometheus scrape path.
//
// # Middleware
//
// Every request passes, from the outside in, through recovery, access
// logging, request ID assignment, CORS and (when enabled) tracing. The
// unary route is additionally bounded by server.request_timeout, and the
// chat and WebSocket routes require a token when authentication is on.
//
// # TLS
//
// With server.tls enabled the same routes are served over HTTPS and WSS.
// The certificate is re-read from disk when its files change.
//
// # Basic Usage
//
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//	if err != nil {
//		return err
//	}
//	srv, err := server.New(ctx, cfg, server.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	return srv.Start(ctx)
//
// # Reloading
//
// ApplyConfig takes a reloaded configuration. Model settings, metadata
// emission, the log level and accepted tokens change without a restart.
package server
