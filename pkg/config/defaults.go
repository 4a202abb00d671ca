package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 5 * time.Minute
	DefaultIdleTimeout     = 120 * time.Second
	DefaultRequestTimeout  = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultTLSMinVersion   = "1.3"
	DefaultTLSReload       = 5 * time.Minute

	// Model defaults
	DefaultModelProvider    = "bedrock"
	DefaultModelRegion      = "us-west-2"
	DefaultModelID          = "anthropic.claude-3-5-sonnet-20240620-v1:0"
	DefaultModelMaxTokens   = 4096
	DefaultModelTemperature = 0.5
	DefaultModelTopP        = 0.9

	// WebSocket defaults
	DefaultWebSocketPath             = "/ws"
	DefaultWebSocketStage            = "prod"
	DefaultWebSocketHandshakeTimeout = 10 * time.Second
	DefaultWebSocketWriteTimeout     = 10 * time.Second
	DefaultWebSocketReadLimit        = 128 << 10
	DefaultWebSocketPusher           = "local"
	DefaultPushMaxAttempts           = 3
	DefaultPushBaseDelay             = 100 * time.Millisecond
	DefaultWebSocketIdleTimeout      = 10 * time.Minute
	DefaultSweepSchedule             = "@every 1m"

	// Client defaults
	DefaultClientEndpoint         = "stream"
	DefaultClientStreamURL        = "http://127.0.0.1:8080/chat/stream"
	DefaultClientUnaryURL         = "http://127.0.0.1:8080/chat"
	DefaultClientWebSocketURL     = "ws://127.0.0.1:8080/ws"
	DefaultClientHandshakeTimeout = 10 * time.Second
	DefaultClientSettleIdle       = 3 * time.Second
	DefaultClientReplyTimeout     = 2 * time.Minute
	DefaultClientSignRegion       = "us-west-2"
	DefaultClientSignService      = "lambda"
	DefaultCredentialsSource      = "static"
	DefaultHistoryBackend         = "sqlite"
	DefaultHistoryPath            = "data/history.db"
	DefaultHistoryDriver          = "sqlite"
	DefaultHistoryKey             = "chatHistory"

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "chatrelay"
	DefaultTracingSampler   = "ratio"
	DefaultTracingRatio     = 1.0
	DefaultTracingExporter  = "otlp"
	DefaultTracingEndpoint  = "localhost:4317"
	DefaultTracingService   = "chatrelay"

	// Security defaults
	DefaultAuthQueryParam   = "token"
	DefaultSecretsEnvPrefix = "CHATRELAY_SECRET_"
	DefaultSecretsCacheTTL  = 5 * time.Minute
)

// DefaultCORSHeaders is the request header allow-list sent on chat routes.
var DefaultCORSHeaders = []string{
	"Content-Type",
	"X-Amz-Date",
	"Authorization",
	"X-Api-Key",
	"X-Amz-Security-Token",
	"X-Amz-User-Agent",
	"x-amz-content-sha256",
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyModelDefaults(&cfg.Model)
	applyWebSocketDefaults(&cfg.WebSocket)
	applyClientDefaults(&cfg.Client)
	applyTelemetryDefaults(&cfg.Telemetry)

	if cfg.Security.Authentication.QueryParam == "" {
		cfg.Security.Authentication.QueryParam = DefaultAuthQueryParam
	}
	if cfg.Security.Secrets.EnvPrefix == "" {
		cfg.Security.Secrets.EnvPrefix = DefaultSecretsEnvPrefix
	}
	if cfg.Security.Secrets.CacheTTL == 0 {
		cfg.Security.Secrets.CacheTTL = DefaultSecretsCacheTTL
	}
}

func applyServerDefaults(s *ServerConfig) {
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultListenAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.RequestTimeout == 0 {
		s.RequestTimeout = DefaultRequestTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.MaxHeaderBytes == 0 {
		s.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if s.TLS.MinVersion == "" {
		s.TLS.MinVersion = DefaultTLSMinVersion
	}
	if s.TLS.ReloadInterval == 0 {
		s.TLS.ReloadInterval = DefaultTLSReload
	}

	c := &s.CORS
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if len(c.AllowedMethods) == 0 {
		c.AllowedMethods = []string{"POST", "OPTIONS"}
	}
	if len(c.AllowedHeaders) == 0 {
		c.AllowedHeaders = append([]string(nil), DefaultCORSHeaders...)
	}
	if len(c.ExposedHeaders) == 0 {
		c.ExposedHeaders = []string{"X-Request-ID"}
	}
}

func applyModelDefaults(m *ModelConfig) {
	if m.Provider == "" {
		m.Provider = DefaultModelProvider
	}
	if m.Region == "" {
		m.Region = DefaultModelRegion
	}
	if m.ModelID == "" {
		m.ModelID = DefaultModelID
	}
	if m.MaxTokens == 0 {
		m.MaxTokens = DefaultModelMaxTokens
	}
	if m.Temperature == nil {
		v := DefaultModelTemperature
		m.Temperature = &v
	}
	if m.TopP == nil {
		v := DefaultModelTopP
		m.TopP = &v
	}
}

func applyWebSocketDefaults(w *WebSocketConfig) {
	if w.Enabled == nil {
		v := true
		w.Enabled = &v
	}
	if w.Path == "" {
		w.Path = DefaultWebSocketPath
	}
	if w.Stage == "" {
		w.Stage = DefaultWebSocketStage
	}
	if w.HandshakeTimeout == 0 {
		w.HandshakeTimeout = DefaultWebSocketHandshakeTimeout
	}
	if w.WriteTimeout == 0 {
		w.WriteTimeout = DefaultWebSocketWriteTimeout
	}
	if w.ReadLimit == 0 {
		w.ReadLimit = DefaultWebSocketReadLimit
	}
	if w.Pusher == "" {
		w.Pusher = DefaultWebSocketPusher
	}
	if w.PushMaxAttempts == 0 {
		w.PushMaxAttempts = DefaultPushMaxAttempts
	}
	if w.PushBaseDelay == 0 {
		w.PushBaseDelay = DefaultPushBaseDelay
	}
	if w.IdleTimeout == 0 {
		w.IdleTimeout = DefaultWebSocketIdleTimeout
	}
	if w.SweepSchedule == "" {
		w.SweepSchedule = DefaultSweepSchedule
	}
}

func applyClientDefaults(c *ClientConfig) {
	if c.Endpoint == "" {
		c.Endpoint = DefaultClientEndpoint
	}
	if c.StreamURL == "" {
		c.StreamURL = DefaultClientStreamURL
	}
	if c.UnaryURL == "" {
		c.UnaryURL = DefaultClientUnaryURL
	}
	if c.WebSocketURL == "" {
		c.WebSocketURL = DefaultClientWebSocketURL
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = DefaultClientHandshakeTimeout
	}
	if c.SettleIdle == 0 {
		c.SettleIdle = DefaultClientSettleIdle
	}
	if c.ReplyTimeout == 0 {
		c.ReplyTimeout = DefaultClientReplyTimeout
	}
	if c.SignRegion == "" {
		c.SignRegion = DefaultClientSignRegion
	}
	if c.SignService == "" {
		c.SignService = DefaultClientSignService
	}
	if c.Credentials.Source == "" {
		c.Credentials.Source = DefaultCredentialsSource
	}

	h := &c.History
	if h.Backend == "" {
		h.Backend = DefaultHistoryBackend
	}
	if h.Path == "" {
		h.Path = DefaultHistoryPath
	}
	if h.Driver == "" {
		h.Driver = DefaultHistoryDriver
	}
	if h.Key == "" {
		h.Key = DefaultHistoryKey
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}
	if t.Logging.RedactSecrets == nil {
		v := true
		t.Logging.RedactSecrets = &v
	}

	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}

	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingRatio
	}
	if t.Tracing.Exporter == "" {
		t.Tracing.Exporter = DefaultTracingExporter
	}
	if t.Tracing.Endpoint == "" {
		t.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingService
	}
	if t.Tracing.SkipPaths == nil {
		t.Tracing.SkipPaths = []string{"/health", "/ready", t.Metrics.Path}
	}
}

// NewDefault returns a Config with every default applied; metrics are
// enabled.
func NewDefault() *Config {
	cfg := &Config{}
	cfg.Telemetry.Metrics.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}
