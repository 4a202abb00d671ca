package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"mercator-hq/chatrelay/pkg/proxy"
	"mercator-hq/chatrelay/pkg/proxy/types"
)

// TokenSource defines where to extract a token from.
type TokenSource struct {
	Type   string // header, query
	Name   string // header name or query param
	Scheme string // optional scheme prefix such as "Bearer"
}

// APIKeyHeader carries the token when Authorization holds a SigV4
// signature.
const APIKeyHeader = "X-Api-Key"

// DefaultSources accepts "Authorization: Bearer <token>", an X-Api-Key
// header, a bare Authorization header and the given query parameter, in
// that order. Browsers cannot set headers on a WebSocket upgrade, hence the
// query parameter.
func DefaultSources(queryParam string) []TokenSource {
	return []TokenSource{
		{Type: "header", Name: "Authorization", Scheme: "Bearer"},
		{Type: "header", Name: APIKeyHeader},
		{Type: "header", Name: "Authorization"},
		{Type: "query", Name: queryParam},
	}
}

// Middleware authenticates requests with a token.
type Middleware struct {
	validator TokenStore
	sources   []TokenSource
}

// NewMiddleware creates a new token authentication middleware.
func NewMiddleware(validator TokenStore, sources []TokenSource) *Middleware {
	return &Middleware{validator: validator, sources: sources}
}

// Handle wraps an HTTP handler with token authentication. Rejected
// requests get a 401 with the JSON error body used by the chat routes.
func (m *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		info, err := m.Authenticate(r)
		if err != nil {
			slog.WarnContext(r.Context(), "authentication failed",
				"error", err,
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			_ = proxy.WriteErrorResponse(w, types.NewErrorResponse(http.StatusUnauthorized, "Missing or invalid token", types.CodeUnauthorized))
			return
		}

		slog.DebugContext(r.Context(), "request authenticated", "identity", info.Identity, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(WithTokenInfo(r.Context(), info)))
	})
}

// Authenticate extracts and validates the request token.
func (m *Middleware) Authenticate(r *http.Request) (*TokenInfo, error) {
	token, err := m.extractToken(r)
	if err != nil {
		return nil, err
	}
	return m.validator.Validate(token)
}

// Identity returns the identity of an already authenticated request, or
// the empty string. It matches wsgateway.IdentityFunc.
func Identity(r *http.Request) string {
	if info, ok := GetTokenInfo(r.Context()); ok {
		return info.Identity
	}
	return ""
}

var errNoToken = errors.New("no token found")

func (m *Middleware) extractToken(r *http.Request) (string, error) {
	for _, source := range m.sources {
		switch source.Type {
		case "header":
			value := r.Header.Get(source.Name)
			if value == "" {
				continue
			}
			if source.Scheme == "" {
				return value, nil
			}
			if prefix := source.Scheme + " "; strings.HasPrefix(value, prefix) {
				return strings.TrimPrefix(value, prefix), nil
			}

		case "query":
			if value := r.URL.Query().Get(source.Name); value != "" {
				return value, nil
			}
		}
	}
	return "", errNoToken
}

type contextKey string

// #nosec G101 - This is a context key constant, not a credential
const tokenInfoKey contextKey = "token_info"

// WithTokenInfo stores the authenticated token in ctx.
func WithTokenInfo(ctx context.Context, info *TokenInfo) context.Context {
	return context.WithValue(ctx, tokenInfoKey, info)
}

// GetTokenInfo retrieves the authenticated token from ctx.
func GetTokenInfo(ctx context.Context) (*TokenInfo, bool) {
	info, ok := ctx.Value(tokenInfoKey).(*TokenInfo)
	return info, ok
}
