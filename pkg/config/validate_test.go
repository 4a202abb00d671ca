package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidate_Defaults(t *testing.T) {
	if err := Validate(NewDefault()); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "bad listen address",
			mutate: func(c *Config) { c.Server.ListenAddress = "8080" },
			field:  "server.listen_address",
		},
		{
			name:   "negative request timeout",
			mutate: func(c *Config) { c.Server.RequestTimeout = -1 },
			field:  "server.request_timeout",
		},
		{
			name:   "negative reply timeout",
			mutate: func(c *Config) { c.Client.ReplyTimeout = -time.Second },
			field:  "client.reply_timeout",
		},
		{
			name:   "tls without certificate",
			mutate: func(c *Config) { c.Server.TLS.Enabled = true; c.Server.TLS.KeyFile = "key.pem" },
			field:  "server.tls.cert_file",
		},
		{
			name: "tls 1.1",
			mutate: func(c *Config) {
				c.Server.TLS = TLSConfig{Enabled: true, CertFile: "c.pem", KeyFile: "k.pem", MinVersion: "1.1", ReloadInterval: 1}
			},
			field: "server.tls.min_version",
		},
		{
			name:   "unknown provider",
			mutate: func(c *Config) { c.Model.Provider = "ollama" },
			field:  "model.provider",
		},
		{
			name:   "anthropic without key",
			mutate: func(c *Config) { c.Model.Provider = "anthropic" },
			field:  "model.api_key",
		},
		{
			name: "temperature out of range",
			mutate: func(c *Config) {
				v := 1.5
				c.Model.Temperature = &v
			},
			field: "model.temperature",
		},
		{
			name:   "unknown pusher",
			mutate: func(c *Config) { c.WebSocket.Pusher = "sns" },
			field:  "websocket.pusher",
		},
		{
			name:   "http pusher without domain",
			mutate: func(c *Config) { c.WebSocket.Pusher = "http" },
			field:  "websocket.domain_name",
		},
		{
			name:   "zero push attempts",
			mutate: func(c *Config) { c.WebSocket.PushMaxAttempts = -1 },
			field:  "websocket.push_max_attempts",
		},
		{
			name:   "unknown endpoint",
			mutate: func(c *Config) { c.Client.Endpoint = "grpc" },
			field:  "client.endpoint",
		},
		{
			name:   "websocket url with http scheme",
			mutate: func(c *Config) { c.Client.WebSocketURL = "http://127.0.0.1:8080/ws" },
			field:  "client.websocket_url",
		},
		{
			name:   "oauth2 without token url",
			mutate: func(c *Config) { c.Client.Credentials.Source = "oauth2"; c.Client.Credentials.ClientID = "id" },
			field:  "client.credentials.token_url",
		},
		{
			name:   "half static aws keys",
			mutate: func(c *Config) { c.Client.Credentials.AccessKeyID = "AKIAEXAMPLE" },
			field:  "client.credentials.access_key_id",
		},
		{
			name:   "redis history without address",
			mutate: func(c *Config) { c.Client.History.Backend = "redis" },
			field:  "client.history.redis_addr",
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Telemetry.Logging.Level = "verbose" },
			field:  "telemetry.logging.level",
		},
		{
			name: "bad sample ratio",
			mutate: func(c *Config) {
				c.Telemetry.Tracing.Enabled = true
				c.Telemetry.Tracing.SampleRatio = 2
			},
			field: "telemetry.tracing.sample_ratio",
		},
		{
			name:   "auth without tokens",
			mutate: func(c *Config) { c.Security.Authentication.Enabled = true },
			field:  "security.authentication.tokens",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tt.field, verr)
			}
		})
	}
}

func TestValidate_DisabledTokenDoesNotCount(t *testing.T) {
	cfg := NewDefault()
	off := false
	cfg.Security.Authentication.Enabled = true
	cfg.Security.Authentication.Tokens = []TokenConfig{{Token: "t1", Identity: "alice", Enabled: &off}}

	if err := Validate(cfg); err == nil {
		t.Fatal("expected error when every token is disabled")
	}

	cfg.Security.Authentication.Tokens = append(cfg.Security.Authentication.Tokens, TokenConfig{Token: "t2", Identity: "bob"})
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidationError_Message(t *testing.T) {
	one := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if one.Error() != "configuration validation failed: a: bad" {
		t.Errorf("unexpected message %q", one.Error())
	}

	many := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}}
	if !strings.Contains(many.Error(), "2 errors") || !strings.Contains(many.Error(), "b: worse") {
		t.Errorf("unexpected message %q", many.Error())
	}
}
