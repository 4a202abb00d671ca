package wsgateway

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrConnectionClosed is returned when writing to a connection that has
// already been closed.
var ErrConnectionClosed = errors.New("connection closed")

// Connection is one live WebSocket peer. It is addressable by ID until the
// peer disconnects or the connection is closed.
type Connection struct {
	ID          string
	DomainName  string
	Stage       string
	Identity    string
	SourceIP    string
	ConnectedAt time.Time

	conn       *websocket.Conn
	writeMu    sync.Mutex
	active     atomic.Bool
	lastActive atomic.Int64
	closeOnce  sync.Once
}

func newConnection(id string, conn *websocket.Conn) *Connection {
	c := &Connection{
		ID:          id,
		ConnectedAt: time.Now(),
		conn:        conn,
	}
	c.active.Store(true)
	c.touch()
	return c
}

// IsActive reports whether the connection can still receive data.
func (c *Connection) IsActive() bool {
	return c.active.Load()
}

// LastActiveAt returns the last time data was read from or written to the
// connection.
func (c *Connection) LastActiveAt() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

// Info describes the connection for the management API.
func (c *Connection) Info() ConnectionInfo {
	return ConnectionInfo{
		ConnectionID: c.ID,
		ConnectedAt:  c.ConnectedAt,
		LastActiveAt: c.LastActiveAt(),
		Identity:     c.Identity,
		SourceIP:     c.SourceIP,
	}
}

func (c *Connection) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

// Write sends one text message. Writes are serialized.
func (c *Connection) Write(data []byte, timeout time.Duration) error {
	if !c.IsActive() {
		return ErrConnectionClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if timeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	c.touch()
	return nil
}

// Close marks the connection inactive and closes the socket with a normal
// closure frame.
func (c *Connection) Close(reason string) error {
	var err error
	c.closeOnce.Do(func() {
		c.active.Store(false)

		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.writeMu.Unlock()

		err = c.conn.Close()
	})
	return err
}

// ConnectionInfo is the management view of a connection.
type ConnectionInfo struct {
	ConnectionID string    `json:"connectionId"`
	ConnectedAt  time.Time `json:"connectedAt"`
	LastActiveAt time.Time `json:"lastActiveAt"`
	Identity     string    `json:"identity,omitempty"`
	SourceIP     string    `json:"sourceIp,omitempty"`
}

// Registry tracks live connections by ID.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Connection)}
}

// Add registers a connection.
func (r *Registry) Add(c *Connection) {
	r.mu.Lock()
	r.conns[c.ID] = c
	r.mu.Unlock()
}

// Get returns the active connection with the given ID.
func (r *Registry) Get(id string) (*Connection, bool) {
	r.mu.RLock()
	c, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok || !c.IsActive() {
		return nil, false
	}
	return c, true
}

// Remove unregisters a connection and returns it.
func (r *Registry) Remove(id string) (*Connection, bool) {
	r.mu.Lock()
	c, ok := r.conns[id]
	delete(r.conns, id)
	r.mu.Unlock()
	return c, ok
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Snapshot returns the registered connections ordered by connect time.
func (r *Registry) Snapshot() []*Connection {
	r.mu.RLock()
	out := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}
