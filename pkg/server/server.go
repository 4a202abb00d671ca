package server

import (
	"context"
	cryptotls "crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/chatrelay/pkg/config"
	"mercator-hq/chatrelay/pkg/providerfactory"
	"mercator-hq/chatrelay/pkg/providers"
	"mercator-hq/chatrelay/pkg/proxy/handlers"
	"mercator-hq/chatrelay/pkg/proxy/middleware"
	"mercator-hq/chatrelay/pkg/security/auth"
	sectls "mercator-hq/chatrelay/pkg/security/tls"
	"mercator-hq/chatrelay/pkg/telemetry/logging"
	"mercator-hq/chatrelay/pkg/telemetry/metrics"
	"mercator-hq/chatrelay/pkg/telemetry/tracing"
	"mercator-hq/chatrelay/pkg/wsgateway"
)

// Route paths of the relay.
const (
	ChatPath   = "/chat"
	StreamPath = "/chat/stream"
	HealthPath = "/health"
	ReadyPath  = "/ready"
)

// Server is the chat relay HTTP server.
type Server struct {
	cfg       *config.Config
	logger    *logging.Logger
	models    *providerfactory.Manager
	collector *metrics.Collector
	tracer    *tracing.Tracer
	tokens    *auth.TokenValidator
	gateway   *wsgateway.Gateway
	sweeper   *wsgateway.Sweeper
	handler   http.Handler
	tlsConfig *cryptotls.Config

	emitMetadata atomic.Bool

	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// Option customizes a Server.
type Option func(*options)

type options struct {
	logger   *logging.Logger
	models   *providerfactory.Manager
	registry *prometheus.Registry
	tracer   *tracing.Tracer
}

// WithLogger sets the logger whose level follows configuration reloads.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithModels uses an existing model manager instead of building one from
// the configuration.
func WithModels(m *providerfactory.Manager) Option {
	return func(o *options) { o.models = m }
}

// WithRegistry registers metrics on registry instead of a new one.
func WithRegistry(r *prometheus.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithTracer sets the tracer used for the server spans.
func WithTracer(t *tracing.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// New builds the server and every component it serves.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Server, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}

	s := &Server{
		cfg:          cfg,
		logger:       o.logger,
		tracer:       o.tracer,
		collector:    metrics.NewCollector(&cfg.Telemetry.Metrics, o.registry),
		shutdownChan: make(chan struct{}),
	}
	s.emitMetadata.Store(cfg.Model.EmitMetadata)

	models := o.models
	if models == nil {
		var err error
		models, err = providerfactory.NewManager(ctx, &cfg.Model, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create model provider: %w", err)
		}
	}
	models.SetObserver(&healthObserver{collector: s.collector, models: models})
	s.models = models

	if cfg.Security.Authentication.Enabled {
		s.tokens = auth.NewTokenValidator(auth.FromConfig(cfg.Security.Authentication.Tokens))
	}

	var certLogger *slog.Logger
	if o.logger != nil {
		certLogger = o.logger.Slog()
	}
	tlsConfig, err := sectls.ServerConfig(ctx, &cfg.Server.TLS, certLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure TLS: %w", err)
	}
	s.tlsConfig = tlsConfig

	s.handler = s.setupRoutes()
	return s, nil
}

// healthObserver forwards invocation reports to the collector and keeps
// the model health gauge current.
type healthObserver struct {
	collector *metrics.Collector
	models    *providerfactory.Manager
}

func (h *healthObserver) InvocationFinished(provider, modelID, status string, d time.Duration, usage providers.Usage) {
	h.collector.InvocationFinished(provider, modelID, status, d, usage)
	h.collector.UpdateModelHealth(provider, h.models.Health().IsHealthy())
}

// Start starts the HTTP server and the idle sweeper, and blocks until ctx
// is cancelled, Stop is called or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:           s.cfg.Server.ListenAddress,
		Handler:        s.handler,
		ReadTimeout:    s.cfg.Server.ReadTimeout,
		WriteTimeout:   s.cfg.Server.WriteTimeout,
		IdleTimeout:    s.cfg.Server.IdleTimeout,
		MaxHeaderBytes: s.cfg.Server.MaxHeaderBytes,
		TLSConfig:      s.tlsConfig,
	}

	if s.sweeper != nil {
		if err := s.sweeper.Start(ctx); err != nil {
			return err
		}
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting chat relay",
			"address", s.cfg.Server.ListenAddress,
			"provider", s.models.ProviderName(),
			"websocket", s.gateway != nil,
			"auth", s.tokens != nil,
			"tls", s.tlsConfig != nil,
		)
		var err error
		if s.tlsConfig != nil {
			err = s.httpServer.ListenAndServeTLS("", "")
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		slog.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Stop asks a running Start to shut down.
func (s *Server) Stop() {
	select {
	case <-s.shutdownChan:
	default:
		close(s.shutdownChan)
	}
}

// Shutdown gracefully shuts down the server. WebSocket connections are
// closed first, then in-flight HTTP requests are drained.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.cfg.Server.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
		defer cancel()

		if s.sweeper != nil {
			s.sweeper.Stop()
		}
		if s.gateway != nil {
			if err := s.gateway.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during websocket shutdown", "error", err)
				shutdownErr = err
			}
		}
		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}
		if err := s.models.Close(); err != nil {
			slog.Error("error closing model provider", "error", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("chat relay stopped")
	})

	return shutdownErr
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()
	cors := convertCORSConfig(&s.cfg.Server.CORS)

	opts := handlers.Options{
		EmitMetadata: s.emitMetadata.Load,
		Observer:     s.collector,
		CORS:         cors,
	}

	var chat http.Handler = handlers.NewChatHandler(s.models, opts)
	chat = middleware.TimeoutMiddleware(s.cfg.Server.RequestTimeout)(chat)
	var stream http.Handler = handlers.NewStreamHandler(s.models, opts)

	mux.Handle(ChatPath, s.authenticate(chat))
	mux.Handle(StreamPath, s.authenticate(stream))
	mux.Handle(HealthPath, handlers.NewHealthHandler())

	var connections func() int
	if s.cfg.WebSocket.WebSocketEnabled() {
		s.setupWebSocket(mux, opts)
		connections = s.gateway.Registry().Len
	}
	mux.Handle(ReadyPath, handlers.NewReadyHandler(s.models, connections))

	if s.cfg.Telemetry.Metrics.Enabled {
		mux.Handle(s.cfg.Telemetry.Metrics.Path, s.collector.Handler())
	}

	var handler http.Handler = mux

	if s.tracer != nil && s.tracer.Enabled() {
		handler = s.tracer.HTTPMiddleware(handler)
	}

	handler = middleware.CORSMiddleware(cors)(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)

	// Recovery middleware (outermost)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

func (s *Server) setupWebSocket(mux *http.ServeMux, opts handlers.Options) {
	ws := &s.cfg.WebSocket
	registry := wsgateway.NewRegistry()

	var pusher wsgateway.Pusher
	switch ws.Pusher {
	case "http":
		pusher = wsgateway.NewHTTPPusher(&http.Client{Timeout: ws.WriteTimeout}, s.cfg.Security.ManagementToken)
	default:
		pusher = wsgateway.NewLocalPusher(registry, ws.WriteTimeout)
	}

	delivery := wsgateway.NewDelivery(pusher, wsgateway.DeliveryOptions{
		MaxAttempts: ws.PushMaxAttempts,
		BaseDelay:   ws.PushBaseDelay,
		OnRetry:     s.collector.PushRetried,
		OnFinish:    s.collector.PushFinished,
	})

	domain := ws.DomainName
	if domain == "" {
		domain = "http://" + s.cfg.Server.ListenAddress
	}

	gwOpts := []wsgateway.Option{wsgateway.WithRegistry(registry)}
	if s.tokens != nil {
		gwOpts = append(gwOpts, wsgateway.WithIdentity(auth.Identity))
	}

	route := s.collector.InstrumentRoutes(handlers.NewWebSocketHandler(s.models, delivery, opts))
	s.gateway = wsgateway.New(wsgateway.Config{
		DomainName:       domain,
		Stage:            ws.Stage,
		HandshakeTimeout: ws.HandshakeTimeout,
		WriteTimeout:     ws.WriteTimeout,
		ReadLimit:        ws.ReadLimit,
		AllowedOrigins:   ws.AllowedOrigins,
	}, route, gwOpts...)
	s.collector.TrackConnections(registry)
	s.sweeper = wsgateway.NewSweeper(s.gateway, ws.SweepSchedule, ws.IdleTimeout)

	mux.Handle(ws.Path, s.authenticate(s.gateway))

	mgmt := wsgateway.NewManagementHandler(s.gateway, s.cfg.Security.ManagementToken)
	mux.Handle(wsgateway.ConnectionsPath, mgmt)
	if ws.Stage != "" {
		mux.Handle("/"+ws.Stage+wsgateway.ConnectionsPath, mgmt)
	}
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	if s.tokens == nil {
		return next
	}
	sources := auth.DefaultSources(s.cfg.Security.Authentication.QueryParam)
	return auth.NewMiddleware(s.tokens, sources).Handle(next)
}

// ApplyConfig applies a reloaded configuration to the running server.
// Model settings, metadata emission, the log level and the token set take
// effect immediately; listener, route and WebSocket changes need a restart.
func (s *Server) ApplyConfig(ctx context.Context, cfg *config.Config) error {
	if err := s.models.Apply(ctx, &cfg.Model); err != nil {
		return err
	}
	s.emitMetadata.Store(cfg.Model.EmitMetadata)

	if s.logger != nil {
		if err := s.logger.SetLevel(cfg.Telemetry.Logging.Level); err != nil {
			return err
		}
	}

	if s.tokens != nil {
		s.tokens.Replace(auth.FromConfig(cfg.Security.Authentication.Tokens))
	}

	s.mu.Lock()
	prev := s.cfg
	s.cfg = cfg
	s.mu.Unlock()
	if prev.Server.ListenAddress != cfg.Server.ListenAddress ||
		prev.Security.Authentication.Enabled != cfg.Security.Authentication.Enabled ||
		prev.WebSocket.WebSocketEnabled() != cfg.WebSocket.WebSocketEnabled() {
		slog.Warn("some configuration changes require a restart to take effect")
	}

	slog.Info("configuration applied",
		"provider", s.models.ProviderName(),
		"model_id", s.models.Settings().ModelID,
		"emit_metadata", cfg.Model.EmitMetadata,
		"log_level", cfg.Telemetry.Logging.Level,
	)
	return nil
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Gateway returns the WebSocket gateway, or nil when disabled.
func (s *Server) Gateway() *wsgateway.Gateway {
	return s.gateway
}

// Collector returns the metrics collector.
func (s *Server) Collector() *metrics.Collector {
	return s.collector
}

// convertCORSConfig converts config.CORSConfig to middleware.CORSConfig.
func convertCORSConfig(c *config.CORSConfig) *middleware.CORSConfig {
	return &middleware.CORSConfig{
		Enabled:        true,
		AllowedOrigins: c.AllowedOrigins,
		AllowedMethods: c.AllowedMethods,
		AllowedHeaders: c.AllowedHeaders,
		ExposedHeaders: c.ExposedHeaders,
		MaxAge:         c.MaxAge,
	}
}
