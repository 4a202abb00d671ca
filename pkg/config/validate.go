package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateModel(&cfg.Model)...)
	errs = append(errs, validateWebSocket(&cfg.WebSocket)...)
	errs = append(errs, validateClient(&cfg.Client)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateSecurity(&cfg.Security)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("must be host:port: %v", err),
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "must not be negative"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "must not be negative"})
	}
	if cfg.RequestTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.request_timeout", Message: "must not be negative"})
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "must be positive"})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_header_bytes", Message: "must not be negative"})
	}
	if cfg.CORS.MaxAge < 0 {
		errs = append(errs, FieldError{Field: "server.cors.max_age", Message: "must not be negative"})
	}

	if t := cfg.TLS; t.Enabled {
		if t.CertFile == "" {
			errs = append(errs, FieldError{Field: "server.tls.cert_file", Message: "is required when TLS is enabled"})
		}
		if t.KeyFile == "" {
			errs = append(errs, FieldError{Field: "server.tls.key_file", Message: "is required when TLS is enabled"})
		}
		if t.MinVersion != "1.2" && t.MinVersion != "1.3" {
			errs = append(errs, FieldError{Field: "server.tls.min_version", Message: fmt.Sprintf("must be 1.2 or 1.3, got %q", t.MinVersion)})
		}
		if t.ReloadInterval <= 0 {
			errs = append(errs, FieldError{Field: "server.tls.reload_interval", Message: "must be positive"})
		}
	}

	return errs
}

var validProviders = []string{"anthropic", "bedrock", "openai", "scripted"}

func validateModel(cfg *ModelConfig) []FieldError {
	var errs []FieldError

	if !contains(validProviders, cfg.Provider) {
		errs = append(errs, FieldError{
			Field:   "model.provider",
			Message: fmt.Sprintf("must be one of %s", strings.Join(validProviders, ", ")),
		})
	}
	if cfg.ModelID == "" && cfg.Provider != "scripted" {
		errs = append(errs, FieldError{Field: "model.model_id", Message: "is required"})
	}
	if cfg.Provider == "anthropic" && cfg.APIKey == "" {
		errs = append(errs, FieldError{Field: "model.api_key", Message: "is required for the anthropic provider"})
	}
	if cfg.Provider == "openai" && cfg.APIKey == "" && cfg.BaseURL == "" {
		errs = append(errs, FieldError{Field: "model.api_key", Message: "is required for the openai provider unless base_url is set"})
	}
	if cfg.BaseURL != "" {
		if u, err := url.Parse(cfg.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, FieldError{Field: "model.base_url", Message: "must be an absolute URL"})
		}
	}
	if cfg.MaxTokens <= 0 {
		errs = append(errs, FieldError{Field: "model.max_tokens", Message: "must be positive"})
	}
	if cfg.Temperature != nil && (*cfg.Temperature < 0 || *cfg.Temperature > 1) {
		errs = append(errs, FieldError{Field: "model.temperature", Message: "must be between 0 and 1"})
	}
	if cfg.TopP != nil && (*cfg.TopP < 0 || *cfg.TopP > 1) {
		errs = append(errs, FieldError{Field: "model.top_p", Message: "must be between 0 and 1"})
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{Field: "model.timeout", Message: "must not be negative"})
	}

	return errs
}

func validateWebSocket(cfg *WebSocketConfig) []FieldError {
	var errs []FieldError

	if !strings.HasPrefix(cfg.Path, "/") {
		errs = append(errs, FieldError{Field: "websocket.path", Message: "must start with /"})
	}
	if cfg.Pusher != "local" && cfg.Pusher != "http" {
		errs = append(errs, FieldError{Field: "websocket.pusher", Message: "must be local or http"})
	}
	if cfg.Pusher == "http" && cfg.DomainName == "" {
		errs = append(errs, FieldError{Field: "websocket.domain_name", Message: "is required for the http pusher"})
	}
	if cfg.PushMaxAttempts < 1 {
		errs = append(errs, FieldError{Field: "websocket.push_max_attempts", Message: "must be at least 1"})
	}
	if cfg.PushBaseDelay < 0 {
		errs = append(errs, FieldError{Field: "websocket.push_base_delay", Message: "must not be negative"})
	}
	if cfg.HandshakeTimeout <= 0 {
		errs = append(errs, FieldError{Field: "websocket.handshake_timeout", Message: "must be positive"})
	}
	if cfg.ReadLimit <= 0 {
		errs = append(errs, FieldError{Field: "websocket.read_limit", Message: "must be positive"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "websocket.idle_timeout", Message: "must not be negative"})
	}

	return errs
}

var (
	validEndpoints         = []string{"stream", "unary", "websocket"}
	validCredentialSources = []string{"static", "oauth2", "aws"}
	validHistoryBackends   = []string{"memory", "sqlite", "redis"}
)

func validateClient(cfg *ClientConfig) []FieldError {
	var errs []FieldError

	if !contains(validEndpoints, cfg.Endpoint) {
		errs = append(errs, FieldError{
			Field:   "client.endpoint",
			Message: fmt.Sprintf("must be one of %s", strings.Join(validEndpoints, ", ")),
		})
	}

	urls := []struct {
		field   string
		value   string
		schemes []string
	}{
		{"client.stream_url", cfg.StreamURL, []string{"http", "https"}},
		{"client.unary_url", cfg.UnaryURL, []string{"http", "https"}},
		{"client.websocket_url", cfg.WebSocketURL, []string{"ws", "wss"}},
	}
	for _, u := range urls {
		parsed, err := url.Parse(u.value)
		if err != nil || parsed.Host == "" || !contains(u.schemes, parsed.Scheme) {
			errs = append(errs, FieldError{
				Field:   u.field,
				Message: fmt.Sprintf("must be a %s URL", strings.Join(u.schemes, " or ")),
			})
		}
	}

	if cfg.HandshakeTimeout <= 0 {
		errs = append(errs, FieldError{Field: "client.handshake_timeout", Message: "must be positive"})
	}
	if cfg.SettleIdle <= 0 {
		errs = append(errs, FieldError{Field: "client.settle_idle", Message: "must be positive"})
	}
	if cfg.ReplyTimeout <= 0 {
		errs = append(errs, FieldError{Field: "client.reply_timeout", Message: "must be positive"})
	}

	creds := &cfg.Credentials
	if !contains(validCredentialSources, creds.Source) {
		errs = append(errs, FieldError{
			Field:   "client.credentials.source",
			Message: fmt.Sprintf("must be one of %s", strings.Join(validCredentialSources, ", ")),
		})
	}
	if creds.Source == "oauth2" {
		if creds.TokenURL == "" {
			errs = append(errs, FieldError{Field: "client.credentials.token_url", Message: "is required for oauth2"})
		}
		if creds.ClientID == "" {
			errs = append(errs, FieldError{Field: "client.credentials.client_id", Message: "is required for oauth2"})
		}
	}
	if (creds.AccessKeyID == "") != (creds.SecretAccessKey == "") {
		errs = append(errs, FieldError{
			Field:   "client.credentials.access_key_id",
			Message: "access_key_id and secret_access_key must be set together",
		})
	}

	h := &cfg.History
	if !contains(validHistoryBackends, h.Backend) {
		errs = append(errs, FieldError{
			Field:   "client.history.backend",
			Message: fmt.Sprintf("must be one of %s", strings.Join(validHistoryBackends, ", ")),
		})
	}
	if h.Backend == "sqlite" && h.Driver != "sqlite" && h.Driver != "sqlite3" {
		errs = append(errs, FieldError{Field: "client.history.driver", Message: "must be sqlite or sqlite3"})
	}
	if h.Backend == "redis" && h.RedisAddr == "" {
		errs = append(errs, FieldError{Field: "client.history.redis_addr", Message: "is required for the redis backend"})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", cfg.Logging.Level),
		})
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text", "console":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (valid: json, text)", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		if p.Pattern == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: "is required",
			})
		}
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "must start with /"})
	}

	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Sampler {
		case "always", "never", "ratio":
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q (valid: always, never, ratio)", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "must be between 0 and 1"})
		}
		if cfg.Tracing.Exporter != "otlp" {
			errs = append(errs, FieldError{Field: "telemetry.tracing.exporter", Message: "only otlp is supported"})
		}
	}

	return errs
}

func validateSecurity(cfg *SecurityConfig) []FieldError {
	var errs []FieldError

	auth := &cfg.Authentication
	if auth.Enabled {
		active := 0
		for i, t := range auth.Tokens {
			if t.Token == "" {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("security.authentication.tokens[%d].token", i),
					Message: "must not be empty",
				})
			}
			if t.IsEnabled() {
				active++
			}
		}
		if active == 0 {
			errs = append(errs, FieldError{
				Field:   "security.authentication.tokens",
				Message: "at least one enabled token is required when authentication is enabled",
			})
		}
	}

	if cfg.Secrets.CacheTTL < 0 {
		errs = append(errs, FieldError{Field: "security.secrets.cache_ttl", Message: "must not be negative"})
	}

	return errs
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
