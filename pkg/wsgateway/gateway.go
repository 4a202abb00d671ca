package wsgateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Route keys.
const (
	RouteConnect    = "$connect"
	RouteDisconnect = "$disconnect"
	RouteDefault    = "$default"
)

// ConnectionsPath is the path prefix of the management API.
const ConnectionsPath = "/@connections/"

// RouteEvent is delivered to the route handler for every connection
// lifecycle step and every inbound message.
type RouteEvent struct {
	RouteKey     string
	ConnectionID string
	DomainName   string
	Stage        string
	Identity     string
	Body         []byte
	RequestTime  time.Time
}

// Endpoint returns the push API endpoint of the gateway that produced the
// event.
func (e RouteEvent) Endpoint() string {
	return Endpoint(e.DomainName, e.Stage)
}

// Endpoint builds a push API endpoint from a domain name and stage. A domain
// name that already carries a scheme is used as is.
func Endpoint(domainName, stage string) string {
	base := domainName
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	base = strings.TrimRight(base, "/")
	if stage != "" {
		base += "/" + strings.Trim(stage, "/")
	}
	return base
}

// RouteResponse is the result of a route handler.
type RouteResponse struct {
	StatusCode int
	Body       string
}

// RouteHandler handles route events.
type RouteHandler interface {
	HandleRoute(ctx context.Context, ev RouteEvent) RouteResponse
}

// RouteHandlerFunc adapts a function to RouteHandler.
type RouteHandlerFunc func(ctx context.Context, ev RouteEvent) RouteResponse

// HandleRoute implements RouteHandler.
func (f RouteHandlerFunc) HandleRoute(ctx context.Context, ev RouteEvent) RouteResponse {
	return f(ctx, ev)
}

// IdentityFunc extracts the caller identity from the upgrade request.
type IdentityFunc func(r *http.Request) string

// Config configures a Gateway.
type Config struct {
	// DomainName and Stage are reported in route events and form the push
	// endpoint. DomainName may carry a scheme.
	DomainName string
	Stage      string

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadLimit        int64

	// AllowedOrigins restricts upgrade origins; empty or "*" allows all.
	AllowedOrigins []string
}

// Gateway accepts WebSocket connections, keeps them addressable by ID and
// dispatches every inbound message to the route handler in its own
// goroutine.
type Gateway struct {
	cfg      Config
	registry *Registry
	handler  RouteHandler
	identity IdentityFunc
	upgrader websocket.Upgrader
	logger   *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithIdentity sets the function that names the caller of a connection.
func WithIdentity(fn IdentityFunc) Option {
	return func(g *Gateway) { g.identity = fn }
}

// WithRegistry shares a registry with pushers created elsewhere.
func WithRegistry(r *Registry) Option {
	return func(g *Gateway) { g.registry = r }
}

// New creates a gateway.
func New(cfg Config, handler RouteHandler, opts ...Option) *Gateway {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = 128 * 1024
	}

	ctx, cancel := context.WithCancel(context.Background())
	g := &Gateway{
		cfg:      cfg,
		registry: NewRegistry(),
		handler:  handler,
		logger:   slog.Default().With("component", "wsgateway"),
		baseCtx:  ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(g)
	}

	g.upgrader = websocket.Upgrader{
		HandshakeTimeout: cfg.HandshakeTimeout,
		CheckOrigin:      g.checkOrigin,
	}
	return g
}

// Registry returns the connection registry.
func (g *Gateway) Registry() *Registry {
	return g.registry
}

// Endpoint returns the push endpoint of this gateway.
func (g *Gateway) Endpoint() string {
	return Endpoint(g.cfg.DomainName, g.cfg.Stage)
}

// ServeHTTP upgrades the request and runs the connection until the peer
// disconnects.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}
	ws.SetReadLimit(g.cfg.ReadLimit)

	c := newConnection(uuid.NewString(), ws)
	c.DomainName = g.cfg.DomainName
	c.Stage = g.cfg.Stage
	c.SourceIP = sourceIP(r)
	if g.identity != nil {
		c.Identity = g.identity(r)
	}

	g.registry.Add(c)
	resp := g.handler.HandleRoute(g.baseCtx, g.event(c, RouteConnect, nil))
	if resp.StatusCode != http.StatusOK {
		g.logger.Info("connection rejected", "connection_id", c.ID, "status", resp.StatusCode)
		g.registry.Remove(c.ID)
		_ = c.Close("connection rejected")
		return
	}
	g.logger.Debug("connection opened", "connection_id", c.ID, "source_ip", c.SourceIP)

	g.readLoop(c)

	if _, ok := g.registry.Remove(c.ID); ok {
		_ = c.Close("")
		g.handler.HandleRoute(g.baseCtx, g.event(c, RouteDisconnect, nil))
		g.logger.Debug("connection closed", "connection_id", c.ID)
	}
}

func (g *Gateway) readLoop(c *Connection) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				g.logger.Debug("connection read failed", "connection_id", c.ID, "error", err)
			}
			c.active.Store(false)
			return
		}
		c.touch()
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		ev := g.event(c, RouteDefault, data)
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			resp := g.handler.HandleRoute(g.baseCtx, ev)
			g.logger.Debug("route handled",
				"connection_id", ev.ConnectionID,
				"route", ev.RouteKey,
				"status", resp.StatusCode,
			)
		}()
	}
}

func (g *Gateway) event(c *Connection, route string, body []byte) RouteEvent {
	return RouteEvent{
		RouteKey:     route,
		ConnectionID: c.ID,
		DomainName:   c.DomainName,
		Stage:        c.Stage,
		Identity:     c.Identity,
		Body:         body,
		RequestTime:  time.Now(),
	}
}

// Disconnect closes a connection server-side. The read loop of the
// connection then runs the disconnect route.
func (g *Gateway) Disconnect(id, reason string) bool {
	c, ok := g.registry.Get(id)
	if !ok {
		return false
	}
	_ = c.Close(reason)
	return true
}

// Shutdown closes every connection and waits for in-flight message
// handlers until ctx is done.
func (g *Gateway) Shutdown(ctx context.Context) error {
	for _, c := range g.registry.Snapshot() {
		_ = c.Close("server shutting down")
	}

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		g.cancel()
		return nil
	case <-ctx.Done():
		g.cancel()
		return fmt.Errorf("websocket gateway shutdown: %w", ctx.Err())
	}
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	if len(g.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range g.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func sourceIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
