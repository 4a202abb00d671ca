// Package auth authenticates relay requests with configured tokens.
//
// Tokens are read from the Authorization header, with or without a Bearer
// scheme, from X-Api-Key when Authorization carries a SigV4 signature, or
// from a query parameter for WebSocket upgrades:
//
//	m := auth.NewMiddleware(
//		auth.NewTokenValidator(auth.FromConfig(cfg.Security.Authentication.Tokens)),
//		auth.DefaultSources(cfg.Security.Authentication.QueryParam),
//	)
//	mux.Handle("/ws", m.Handle(gateway))
//
// The authenticated identity is available to handlers through Identity,
// which the WebSocket gateway uses to label connections.
package auth
