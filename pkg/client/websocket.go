package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mercator-hq/chatrelay/pkg/relay"
	"mercator-hq/chatrelay/pkg/telemetry/tracing"
)

// Default WebSocket timings
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultSettleIdle       = 3 * time.Second
	DefaultReplyTimeout     = 2 * time.Minute
)

// SocketEvent is one step of a socket's life. The set of implementations is
// closed: Opened, FrameReceived, Closed and Errored.
type SocketEvent interface {
	isSocketEvent()
}

// Opened is delivered once the handshake completed.
type Opened struct{}

// FrameReceived carries one inbound data message.
type FrameReceived struct {
	Data []byte
}

// Closed is delivered when an open socket ends. Clean is true for a normal
// closure and for closes initiated by Close.
type Closed struct {
	Code  int
	Clean bool
}

// Errored is delivered when the socket never opened.
type Errored struct {
	Err error
}

func (Opened) isSocketEvent()        {}
func (FrameReceived) isSocketEvent() {}
func (Closed) isSocketEvent()        {}
func (Errored) isSocketEvent()       {}

// Subscription is a WebSocket seen as a channel of SocketEvents. The
// channel is closed after the final Closed or Errored event.
type Subscription struct {
	events chan SocketEvent
	done   chan struct{}

	mu      sync.Mutex
	conn    *websocket.Conn
	closing bool
	cancel  context.CancelFunc
	once    sync.Once
}

// Subscribe dials rawURL in the background. If the socket is not open
// within handshakeTimeout the subscription yields Errored carrying a
// *ConnectionTimeoutError.
func Subscribe(ctx context.Context, rawURL string, header http.Header, handshakeTimeout time.Duration) *Subscription {
	if handshakeTimeout <= 0 {
		handshakeTimeout = DefaultHandshakeTimeout
	}
	dialCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	s := &Subscription{
		events: make(chan SocketEvent, 16),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go s.run(dialCtx, ctx, rawURL, header, handshakeTimeout)
	return s
}

// Events returns the event channel.
func (s *Subscription) Events() <-chan SocketEvent {
	return s.events
}

// Send writes one text message.
func (s *Subscription) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return errors.New("websocket is not open")
	}
	if s.closing {
		return errors.New("websocket is closing")
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Close ends the subscription with a normal closure. Pending events are
// discarded. It is safe to call more than once.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.cancel()

		s.mu.Lock()
		defer s.mu.Unlock()
		s.closing = true
		if s.conn == nil {
			return
		}
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}

func (s *Subscription) run(dialCtx, ctx context.Context, rawURL string, header http.Header, timeout time.Duration) {
	defer close(s.events)

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}
	conn, resp, err := dialer.DialContext(dialCtx, rawURL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	s.cancel()
	if err != nil {
		if ctx.Err() == nil && (errors.Is(dialCtx.Err(), context.DeadlineExceeded) || isTimeout(err)) {
			err = &ConnectionTimeoutError{URL: redactURL(rawURL), Timeout: timeout}
		} else if resp != nil {
			err = fmt.Errorf("websocket handshake rejected with status %d: %w", resp.StatusCode, err)
		}
		s.emit(Errored{Err: err})
		return
	}

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	s.mu.Unlock()

	if !s.emit(Opened{}) {
		return
	}

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			s.emit(s.closedEvent(err))
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		if !s.emit(FrameReceived{Data: data}) {
			return
		}
	}
}

func (s *Subscription) closedEvent(err error) Closed {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return Closed{Code: ce.Code, Clean: ce.Code == websocket.CloseNormalClosure}
	}
	s.mu.Lock()
	closing := s.closing
	s.mu.Unlock()
	if closing {
		return Closed{Code: websocket.CloseNormalClosure, Clean: true}
	}
	return Closed{Code: websocket.CloseAbnormalClosure}
}

// emit delivers ev unless the subscription was closed.
func (s *Subscription) emit(ev SocketEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// WebSocketOptions configures a WebSocketTransport.
type WebSocketOptions struct {
	// HandshakeTimeout bounds the time until the socket is open.
	HandshakeTimeout time.Duration

	// SettleIdle ends a turn when no frame arrived for this long after
	// the first one.
	SettleIdle time.Duration

	// ReplyTimeout fails a turn whose first frame did not arrive this long
	// after the request was sent.
	ReplyTimeout time.Duration
}

// WebSocketTransport opens one socket per submission, sends the chat
// request as a sendmessage action and folds the chunk frames pushed back.
//
// A turn settles on an end or metadata frame, on a clean close, or after
// SettleIdle without frames once the first frame arrived. An error frame,
// an unclean close or a silent peer past ReplyTimeout fails it.
type WebSocketTransport struct {
	url  string
	opts WebSocketOptions
}

// NewWebSocketTransport creates a WebSocket transport for rawURL.
func NewWebSocketTransport(rawURL string, opts WebSocketOptions) *WebSocketTransport {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if opts.SettleIdle <= 0 {
		opts.SettleIdle = DefaultSettleIdle
	}
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = DefaultReplyTimeout
	}
	return &WebSocketTransport{url: rawURL, opts: opts}
}

// Send implements Transport.
func (t *WebSocketTransport) Send(ctx context.Context, req relay.ChatRequest, creds Credentials, onChunk ChunkFunc) error {
	target, err := withToken(t.url, creds.IDToken)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(relay.ChatRequest{Action: relay.ActionSendMessage, Messages: req.Messages})
	if err != nil {
		return fmt.Errorf("failed to encode chat request: %w", err)
	}

	header := http.Header{}
	tracing.Inject(ctx, header)

	sub := Subscribe(ctx, target, header, t.opts.HandshakeTimeout)
	defer sub.Close()

	// The reply timer guards the wait for the first frame; the idle timer
	// takes over once frames flow.
	reply := time.NewTimer(t.opts.ReplyTimeout)
	reply.Stop()
	defer reply.Stop()
	var replyC <-chan time.Time

	idle := time.NewTimer(t.opts.SettleIdle)
	idle.Stop()
	defer idle.Stop()
	var idleC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-replyC:
			return &ReplyTimeoutError{Timeout: t.opts.ReplyTimeout}

		case <-idleC:
			slog.DebugContext(ctx, "websocket turn settled after idle period")
			return nil

		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			switch e := ev.(type) {
			case Opened:
				if err := sub.Send(payload); err != nil {
					return fmt.Errorf("failed to send chat request: %w", err)
				}
				reply.Reset(t.opts.ReplyTimeout)
				replyC = reply.C

			case FrameReceived:
				if replyC != nil {
					reply.Stop()
					replyC = nil
				}
				idle.Reset(t.opts.SettleIdle)
				idleC = idle.C
				settled, err := handleFrame(ctx, e.Data, onChunk)
				if err != nil || settled {
					return err
				}

			case Closed:
				if e.Clean {
					return nil
				}
				return &ConnectionLostError{Code: e.Code}

			case Errored:
				return e.Err
			}
		}
	}
}

// handleFrame folds one inbound frame. It reports whether the turn is
// settled.
func handleFrame(ctx context.Context, data []byte, onChunk ChunkFunc) (bool, error) {
	frame, err := relay.DecodeFrame(data)
	if err != nil {
		slog.WarnContext(ctx, "skipping undecodable websocket frame", "error", err)
		return false, nil
	}
	if msg, ok := frame.ErrorMessage(); ok {
		slog.ErrorContext(ctx, "websocket error frame", "message", msg)
		return true, &StreamError{Message: msg}
	}
	if frame.Type == relay.FrameEnd {
		return true, nil
	}

	ev, err := frame.Event()
	if err != nil {
		slog.WarnContext(ctx, "skipping websocket frame without event", "error", err)
		return false, nil
	}
	switch e := ev.(type) {
	case relay.Chunk:
		return false, onChunk(e.Content)
	case relay.Metadata:
		return true, nil
	case relay.ErrorEvent:
		return true, &StreamError{Kind: e.Kind, Message: e.Message}
	}
	return false, nil
}

// withToken puts token in the "token" query parameter of rawURL.
func withToken(rawURL, token string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid websocket url: %w", err)
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	return u.String()
}
