package config

import "time"

// Config is the root configuration structure for chatrelay. One file
// configures both the relay server and the chat client.
type Config struct {
	// Server contains HTTP listener configuration for the relay.
	Server ServerConfig `yaml:"server" envPrefix:"SERVER_"`

	// Model selects the model backend and inference settings.
	Model ModelConfig `yaml:"model" envPrefix:"MODEL_"`

	// WebSocket contains the managed-connection gateway configuration.
	WebSocket WebSocketConfig `yaml:"websocket" envPrefix:"WEBSOCKET_"`

	// Client contains chat client configuration.
	Client ClientConfig `yaml:"client" envPrefix:"CLIENT_"`

	// Telemetry contains logging, metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"TELEMETRY_"`

	// Security contains authentication configuration.
	Security SecurityConfig `yaml:"security" envPrefix:"SECURITY_"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address" env:"LISTEN_ADDRESS"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`

	// WriteTimeout bounds a response, and with it a streamed model
	// invocation. Zero disables it.
	// Default: 5m
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`

	// RequestTimeout bounds a unary chat request.
	// Default: 60s
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes" env:"MAX_HEADER_BYTES"`

	// CORS contains the static CORS headers sent on chat routes.
	CORS CORSConfig `yaml:"cors" envPrefix:"CORS_"`

	// TLS serves the relay over HTTPS and WSS when enabled.
	TLS TLSConfig `yaml:"tls" envPrefix:"TLS_"`
}

// TLSConfig configures the relay listener certificate.
type TLSConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// CertFile and KeyFile are PEM files. Both are required when enabled.
	CertFile string `yaml:"cert_file" env:"CERT_FILE"`
	KeyFile  string `yaml:"key_file" env:"KEY_FILE"`

	// MinVersion is "1.2" or "1.3".
	// Default: "1.3"
	MinVersion string `yaml:"min_version" env:"MIN_VERSION"`

	// CipherSuites restricts the TLS 1.2 suites. Empty keeps Go's defaults.
	CipherSuites []string `yaml:"cipher_suites" env:"CIPHER_SUITES" envSeparator:","`

	// ReloadInterval is how often the certificate files are checked for
	// renewal.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval" env:"RELOAD_INTERVAL"`
}

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	// AllowedOrigins is the list of allowed origins.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`

	// AllowedMethods is the list of allowed methods.
	// Default: ["POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods" env:"ALLOWED_METHODS" envSeparator:","`

	// AllowedHeaders is the list of allowed request headers.
	// Default: the AWS-style header allow-list
	AllowedHeaders []string `yaml:"allowed_headers" env:"ALLOWED_HEADERS" envSeparator:","`

	// ExposedHeaders is the list of headers exposed to the browser.
	// Default: ["X-Request-ID"]
	ExposedHeaders []string `yaml:"exposed_headers" env:"EXPOSED_HEADERS" envSeparator:","`

	// MaxAge is the preflight cache lifetime in seconds.
	// Default: 0 (not sent)
	MaxAge int `yaml:"max_age" env:"MAX_AGE"`
}

// ModelConfig selects the model backend.
type ModelConfig struct {
	// Provider is the backend: "anthropic", "bedrock", "openai" or "scripted".
	// Default: "bedrock"
	Provider string `yaml:"provider" env:"PROVIDER"`

	// Region is the AWS region for the bedrock provider.
	// Default: "us-west-2"
	Region string `yaml:"region" env:"REGION"`

	// ModelID is the model identifier.
	// Default: "anthropic.claude-3-5-sonnet-20240620-v1:0"
	ModelID string `yaml:"model_id" env:"MODEL_ID"`

	// APIKey authenticates the anthropic and openai providers.
	APIKey string `yaml:"api_key" env:"API_KEY"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `yaml:"base_url" env:"BASE_URL"`

	// Timeout bounds a single provider request; zero leaves it to the
	// server write timeout.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`

	// System is the optional system prompt.
	System string `yaml:"system" env:"SYSTEM"`

	// MaxTokens caps the reply length.
	// Default: 4096
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`

	// Temperature is the sampling temperature.
	// Default: 0.5
	Temperature *float64 `yaml:"temperature" env:"TEMPERATURE"`

	// TopP is the nucleus sampling parameter.
	// Default: 0.9
	TopP *float64 `yaml:"top_p" env:"TOP_P"`

	// EmitMetadata forwards usage and timing events to clients.
	// Default: false
	EmitMetadata bool `yaml:"emit_metadata" env:"EMIT_METADATA"`

	// Scripted configures the offline scripted provider.
	Scripted ScriptedConfig `yaml:"scripted" envPrefix:"SCRIPTED_"`
}

// ScriptedConfig configures the scripted provider.
type ScriptedConfig struct {
	// Fragments are streamed one per delta.
	Fragments []string `yaml:"fragments" env:"FRAGMENTS" envSeparator:"|"`

	// Echo replies with the last user message.
	Echo bool `yaml:"echo" env:"ECHO"`

	// Delay is slept before each fragment.
	Delay time.Duration `yaml:"delay" env:"DELAY"`
}

// WebSocketConfig configures the managed-connection gateway.
type WebSocketConfig struct {
	// Enabled mounts the /ws and /@connections routes.
	// Default: true
	Enabled *bool `yaml:"enabled" env:"ENABLED"`

	// Path is the upgrade path.
	// Default: "/ws"
	Path string `yaml:"path" env:"PATH"`

	// DomainName and Stage form the push endpoint https://{domain}/{stage}.
	// DomainName defaults to the listen address.
	DomainName string `yaml:"domain_name" env:"DOMAIN_NAME"`

	// Stage is the endpoint stage segment.
	// Default: "prod"
	Stage string `yaml:"stage" env:"STAGE"`

	// HandshakeTimeout bounds the upgrade.
	// Default: 10s
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" env:"HANDSHAKE_TIMEOUT"`

	// WriteTimeout bounds one frame write.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`

	// ReadLimit bounds one inbound frame in bytes.
	// Default: 131072 (128KiB)
	ReadLimit int64 `yaml:"read_limit" env:"READ_LIMIT"`

	// AllowedOrigins restricts browser upgrades; empty allows all.
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`

	// Pusher selects how replies are pushed: "local" writes to the
	// registry directly, "http" goes through the management API.
	// Default: "local"
	Pusher string `yaml:"pusher" env:"PUSHER"`

	// PushMaxAttempts bounds delivery attempts per frame.
	// Default: 3
	PushMaxAttempts int `yaml:"push_max_attempts" env:"PUSH_MAX_ATTEMPTS"`

	// PushBaseDelay is the wait after the first failed attempt; the wait
	// after attempt n is n*PushBaseDelay.
	// Default: 100ms
	PushBaseDelay time.Duration `yaml:"push_base_delay" env:"PUSH_BASE_DELAY"`

	// IdleTimeout closes connections without traffic for this long. Zero
	// disables the sweeper.
	// Default: 10m
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`

	// SweepSchedule is the cron schedule of the idle sweeper.
	// Default: "@every 1m"
	SweepSchedule string `yaml:"sweep_schedule" env:"SWEEP_SCHEDULE"`
}

// ClientConfig configures the chat client.
type ClientConfig struct {
	// Endpoint selects the transport: "stream", "unary" or "websocket".
	// Default: "stream"
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`

	// StreamURL is the streaming chat endpoint.
	// Default: "http://127.0.0.1:8080/chat/stream"
	StreamURL string `yaml:"stream_url" env:"STREAM_URL"`

	// UnaryURL is the unary chat endpoint.
	// Default: "http://127.0.0.1:8080/chat"
	UnaryURL string `yaml:"unary_url" env:"UNARY_URL"`

	// WebSocketURL is the WebSocket endpoint.
	// Default: "ws://127.0.0.1:8080/ws"
	WebSocketURL string `yaml:"websocket_url" env:"WEBSOCKET_URL"`

	// HandshakeTimeout bounds the WebSocket handshake.
	// Default: 10s
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" env:"HANDSHAKE_TIMEOUT"`

	// SettleIdle ends a WebSocket turn when no frame arrived for this long
	// after the first one. An end, metadata or error frame ends the turn at
	// once.
	// Default: 3s
	SettleIdle time.Duration `yaml:"settle_idle" env:"SETTLE_IDLE"`

	// ReplyTimeout fails a WebSocket turn when no frame arrived this long
	// after the request was sent.
	// Default: 2m
	ReplyTimeout time.Duration `yaml:"reply_timeout" env:"REPLY_TIMEOUT"`

	// SignRegion and SignService are used for SigV4 signing of streaming
	// requests when the credential carries AWS keys.
	// Default: "us-west-2", "lambda"
	SignRegion  string `yaml:"sign_region" env:"SIGN_REGION"`
	SignService string `yaml:"sign_service" env:"SIGN_SERVICE"`

	// Credentials configures the credential supplier.
	Credentials CredentialsConfig `yaml:"credentials" envPrefix:"CREDENTIALS_"`

	// History configures transcript persistence.
	History HistoryConfig `yaml:"history" envPrefix:"HISTORY_"`
}

// CredentialsConfig configures where the client gets credentials.
type CredentialsConfig struct {
	// Source is "static", "oauth2" or "aws".
	// Default: "static"
	Source string `yaml:"source" env:"SOURCE"`

	// IDToken is the static identity token.
	IDToken string `yaml:"id_token" env:"ID_TOKEN"`

	// AccessKeyID, SecretAccessKey and SessionToken are static AWS keys.
	AccessKeyID     string `yaml:"access_key_id" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"SECRET_ACCESS_KEY"`
	SessionToken    string `yaml:"session_token" env:"SESSION_TOKEN"`

	// TokenURL, ClientID, ClientSecret and Scopes configure the OAuth2
	// client-credentials source.
	TokenURL     string   `yaml:"token_url" env:"TOKEN_URL"`
	ClientID     string   `yaml:"client_id" env:"CLIENT_ID"`
	ClientSecret string   `yaml:"client_secret" env:"CLIENT_SECRET"`
	Scopes       []string `yaml:"scopes" env:"SCOPES" envSeparator:","`
}

// HistoryConfig configures the transcript key-value store.
type HistoryConfig struct {
	// Backend is "memory", "sqlite" or "redis".
	// Default: "sqlite"
	Backend string `yaml:"backend" env:"BACKEND"`

	// Path is the SQLite file.
	// Default: "data/history.db"
	Path string `yaml:"path" env:"PATH"`

	// Driver is the SQLite driver: "sqlite" (pure Go) or "sqlite3" (cgo).
	// Default: "sqlite"
	Driver string `yaml:"driver" env:"DRIVER"`

	// Key is the storage key of the transcript.
	// Default: "chatHistory"
	Key string `yaml:"key" env:"KEY"`

	// Redis connection settings.
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB"`
	RedisPrefix   string `yaml:"redis_prefix" env:"REDIS_PREFIX"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging" envPrefix:"LOGGING_"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing" envPrefix:"TRACING_"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level" env:"LEVEL"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format" env:"FORMAT"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source" env:"ADD_SOURCE"`

	// RedactSecrets masks credentials in log output.
	// Default: true
	RedactSecrets *bool `yaml:"redact_secrets" env:"REDACT_SECRETS"`

	// RedactPatterns contains additional redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are recorded and served.
	// Default: true
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// Path is the scrape path.
	// Default: "/metrics"
	Path string `yaml:"path" env:"PATH"`

	// Namespace prefixes every metric name.
	// Default: "chatrelay"
	Namespace string `yaml:"namespace" env:"NAMESPACE"`

	// Subsystem is an optional second prefix.
	Subsystem string `yaml:"subsystem" env:"SUBSYSTEM"`

	// RequestDurationBuckets are the histogram buckets for durations.
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// Sampler is "always", "never" or "ratio".
	// Default: "ratio"
	Sampler string `yaml:"sampler" env:"SAMPLER"`

	// SampleRatio is the sampled fraction for the ratio sampler.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio" env:"SAMPLE_RATIO"`

	// SkipPaths are request paths that never start a sampled trace.
	// Default: ["/health", "/ready", <metrics path>]
	SkipPaths []string `yaml:"skip_paths" env:"SKIP_PATHS" envSeparator:","`

	// Exporter is the span exporter; only "otlp" is supported.
	// Default: "otlp"
	Exporter string `yaml:"exporter" env:"EXPORTER"`

	// Endpoint is the collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`

	// ServiceName identifies the service in traces.
	// Default: "chatrelay"
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`

	// OTLP contains OTLP exporter settings.
	OTLP OTLPConfig `yaml:"otlp" envPrefix:"OTLP_"`
}

// OTLPConfig contains OTLP exporter settings.
type OTLPConfig struct {
	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure" env:"INSECURE"`

	// Timeout bounds one export.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// SecurityConfig contains authentication configuration.
type SecurityConfig struct {
	// Authentication configures bearer tokens on the relay routes.
	Authentication AuthenticationConfig `yaml:"authentication" envPrefix:"AUTH_"`

	// ManagementToken protects the /@connections management API. Empty
	// leaves it open, which is only sensible on a loopback listener.
	ManagementToken string `yaml:"management_token" env:"MANAGEMENT_TOKEN"`

	// Secrets configures ${secret:name} resolution in credential fields.
	Secrets SecretsConfig `yaml:"secrets" envPrefix:"SECRETS_"`
}

// SecretsConfig configures where ${secret:name} references are looked up.
// The environment is tried first, then the secrets directory.
type SecretsConfig struct {
	// EnvPrefix prefixes the environment variable of a secret: the secret
	// "openai-api-key" is read from <prefix>OPENAI_API_KEY.
	// Default: "CHATRELAY_SECRET_"
	EnvPrefix string `yaml:"env_prefix" env:"ENV_PREFIX"`

	// Dir holds one file per secret, as mounted by Docker or Kubernetes.
	// Files must have mode 0600 or 0400. Empty disables the file source.
	Dir string `yaml:"dir" env:"DIR"`

	// CacheTTL is how long a resolved secret is reused.
	// Default: 5m
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
}

// AuthenticationConfig configures token authentication.
type AuthenticationConfig struct {
	// Enabled requires a valid token on the chat and WebSocket routes.
	// Default: false
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// Tokens are the accepted tokens.
	Tokens []TokenConfig `yaml:"tokens"`

	// QueryParam is the query parameter carrying the token on WebSocket
	// upgrades.
	// Default: "token"
	QueryParam string `yaml:"query_param" env:"QUERY_PARAM"`
}

// TokenConfig is one accepted token.
type TokenConfig struct {
	// Token is the secret value.
	Token string `yaml:"token"`

	// Identity names the caller in logs and connection info.
	Identity string `yaml:"identity"`

	// Enabled allows disabling a token without removing it.
	// Default: true
	Enabled *bool `yaml:"enabled"`
}

// WebSocketEnabled reports whether the WebSocket routes are mounted.
func (c *WebSocketConfig) WebSocketEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// RedactionEnabled reports whether secret redaction is on.
func (c *LoggingConfig) RedactionEnabled() bool {
	return c.RedactSecrets == nil || *c.RedactSecrets
}

// SecretFields returns the credential fields that may hold ${secret:name}
// references.
func (c *Config) SecretFields() []*string {
	cred := &c.Client.Credentials
	fields := []*string{
		&c.Model.APIKey,
		&cred.IDToken,
		&cred.AccessKeyID,
		&cred.SecretAccessKey,
		&cred.SessionToken,
		&cred.ClientSecret,
		&c.Client.History.RedisPassword,
		&c.Security.ManagementToken,
	}
	for i := range c.Security.Authentication.Tokens {
		fields = append(fields, &c.Security.Authentication.Tokens[i].Token)
	}
	return fields
}

// IsEnabled reports whether the token is accepted.
func (t *TokenConfig) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}
