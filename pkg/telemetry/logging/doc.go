// Package logging configures the process log/slog handler.
//
// A Logger wraps a JSON or text slog handler with a handler that:
//   - lifts request_id, connection_id, route and transport from the record's
//     context, plus trace_id and span_id from the active span
//   - redacts model API keys, bearer and identity tokens, AWS keys and
//     token query parameters when RedactSecrets is set
//
// The level can be changed at runtime with SetLevel, which is how config
// reloads take effect.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json", RedactSecrets: true})
//	if err != nil {
//	    return err
//	}
//	logger.SetDefault()
//
//	ctx = logging.WithConnectionID(ctx, connID)
//	slog.InfoContext(ctx, "message relayed", "chunks", n) // includes connection_id
package logging
