package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddleware_Handle(t *testing.T) {
	validator := NewTokenValidator([]*TokenInfo{
		{Token: "tok-alice", Identity: "alice", Enabled: true},
		{Token: "tok-off", Identity: "bob", Enabled: false},
	})
	m := NewMiddleware(validator, DefaultSources("token"))

	tests := []struct {
		name         string
		method       string
		target       string
		header       string
		apiKey       string
		wantStatus   int
		wantIdentity string
	}{
		{name: "bearer header", target: "/chat", header: "Bearer tok-alice", wantStatus: http.StatusOK, wantIdentity: "alice"},
		{name: "bare header", target: "/chat", header: "tok-alice", wantStatus: http.StatusOK, wantIdentity: "alice"},
		{name: "query param", target: "/ws?token=tok-alice", wantStatus: http.StatusOK, wantIdentity: "alice"},
		{name: "api key", target: "/chat/stream", apiKey: "tok-alice", wantStatus: http.StatusOK, wantIdentity: "alice"},
		{
			name:         "signed request with api key",
			target:       "/chat/stream",
			header:       "AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/20261018/us-west-2/lambda/aws4_request, SignedHeaders=host;x-api-key, Signature=abc",
			apiKey:       "tok-alice",
			wantStatus:   http.StatusOK,
			wantIdentity: "alice",
		},
		{
			name:       "signed request without api key",
			target:     "/chat/stream",
			header:     "AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/20261018/us-west-2/lambda/aws4_request, Signature=abc",
			wantStatus: http.StatusUnauthorized,
		},
		{name: "missing token", target: "/chat", wantStatus: http.StatusUnauthorized},
		{name: "wrong token", target: "/chat", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "disabled token", target: "/ws?token=tok-off", wantStatus: http.StatusUnauthorized},
		{name: "preflight passes", method: http.MethodOptions, target: "/chat", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var identity string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				identity = Identity(r)
				w.WriteHeader(http.StatusOK)
			})

			method := tt.method
			if method == "" {
				method = http.MethodPost
			}
			req := httptest.NewRequest(method, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.apiKey != "" {
				req.Header.Set(APIKeyHeader, tt.apiKey)
			}
			rec := httptest.NewRecorder()

			m.Handle(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if identity != tt.wantIdentity {
				t.Errorf("expected identity %q, got %q", tt.wantIdentity, identity)
			}
			if rec.Code == http.StatusUnauthorized {
				var body map[string]any
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("expected JSON error body: %v", err)
				}
				if body["code"] != "unauthorized" {
					t.Errorf("expected unauthorized code, got %v", body["code"])
				}
			}
		})
	}
}

func TestIdentity_Unauthenticated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if got := Identity(req); got != "" {
		t.Errorf("expected empty identity, got %q", got)
	}
}
