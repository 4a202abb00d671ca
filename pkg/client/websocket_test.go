package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"mercator-hq/chatrelay/pkg/providers"
	"mercator-hq/chatrelay/pkg/relay"
)

// wsServer upgrades every request and hands the socket and the first
// inbound message to script.
func wsServer(t *testing.T, script func(conn *websocket.Conn, r *http.Request, req relay.ChatRequest)) string {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req relay.ChatRequest
		_ = json.Unmarshal(data, &req)
		script(conn, r, req)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func writeFrame(conn *websocket.Conn, f relay.Frame) {
	_ = conn.WriteMessage(websocket.TextMessage, f.Bytes())
}

func metadataFrame(t *testing.T) relay.Frame {
	t.Helper()
	f, err := relay.EventFrame(relay.Metadata{Usage: &providers.Usage{TotalTokens: 3}})
	require.NoError(t, err)
	return f
}

// waitClosed blocks until the peer goes away.
func waitClosed(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func fastOptions() WebSocketOptions {
	return WebSocketOptions{HandshakeTimeout: time.Second, SettleIdle: 200 * time.Millisecond}
}

func TestWebSocketTransport_SettlesOnMetadata(t *testing.T) {
	type inbound struct {
		token string
		req   relay.ChatRequest
	}
	seen := make(chan inbound, 1)
	md := metadataFrame(t)
	url := wsServer(t, func(conn *websocket.Conn, r *http.Request, req relay.ChatRequest) {
		seen <- inbound{token: r.URL.Query().Get("token"), req: req}
		writeFrame(conn, relay.ChunkFrame("Hel"))
		writeFrame(conn, relay.ChunkFrame("lo!"))
		writeFrame(conn, md)
		waitClosed(conn)
	})

	tr := NewWebSocketTransport(url, WebSocketOptions{HandshakeTimeout: time.Second, SettleIdle: time.Minute})
	var chunks []string
	start := time.Now()
	err := tr.Send(context.Background(), chatRequest("Hi"), Credentials{IDToken: "id-token"}, collect(&chunks))
	require.NoError(t, err)
	require.True(t, time.Since(start) < 30*time.Second, "metadata must settle the turn without waiting for idle")
	require.Equal(t, []string{"Hel", "lo!"}, chunks)

	got := <-seen
	require.Equal(t, "id-token", got.token)
	require.Equal(t, relay.ActionSendMessage, got.req.Action)
	require.Equal(t, chatRequest("Hi").Messages, got.req.Messages)
}

func TestWebSocketTransport_SettlesWhenIdle(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn, _ *http.Request, _ relay.ChatRequest) {
		writeFrame(conn, relay.ChunkFrame("Hello"))
		waitClosed(conn)
	})

	var chunks []string
	err := NewWebSocketTransport(url, fastOptions()).Send(context.Background(), chatRequest("Hi"), Credentials{}, collect(&chunks))
	require.NoError(t, err)
	require.Equal(t, []string{"Hello"}, chunks)
}

func TestWebSocketTransport_SettlesOnEndFrame(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn, _ *http.Request, _ relay.ChatRequest) {
		writeFrame(conn, relay.ChunkFrame("Hi "))
		writeFrame(conn, relay.ChunkFrame("there"))
		writeFrame(conn, relay.EndFrame())
		waitClosed(conn)
	})

	tr := NewWebSocketTransport(url, WebSocketOptions{HandshakeTimeout: time.Second, SettleIdle: time.Minute})
	var chunks []string
	start := time.Now()
	err := tr.Send(context.Background(), chatRequest("Hi"), Credentials{}, collect(&chunks))
	require.NoError(t, err)
	require.Less(t, time.Since(start), 30*time.Second)
	require.Equal(t, []string{"Hi ", "there"}, chunks)
}

func TestWebSocketTransport_FirstFrameAfterSettleIdle(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn, _ *http.Request, _ relay.ChatRequest) {
		time.Sleep(400 * time.Millisecond)
		writeFrame(conn, relay.ChunkFrame("slow "))
		writeFrame(conn, relay.ChunkFrame("model"))
		waitClosed(conn)
	})

	opts := WebSocketOptions{HandshakeTimeout: time.Second, SettleIdle: 100 * time.Millisecond, ReplyTimeout: 5 * time.Second}
	var chunks []string
	err := NewWebSocketTransport(url, opts).Send(context.Background(), chatRequest("Hi"), Credentials{}, collect(&chunks))
	require.NoError(t, err)
	require.Equal(t, []string{"slow ", "model"}, chunks)
}

func TestWebSocketTransport_ReplyTimeout(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn, _ *http.Request, _ relay.ChatRequest) {
		waitClosed(conn)
	})

	opts := WebSocketOptions{HandshakeTimeout: time.Second, SettleIdle: 50 * time.Millisecond, ReplyTimeout: 150 * time.Millisecond}
	var chunks []string
	err := NewWebSocketTransport(url, opts).Send(context.Background(), chatRequest("Hi"), Credentials{}, collect(&chunks))
	var rerr *ReplyTimeoutError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, 150*time.Millisecond, rerr.Timeout)
	require.Empty(t, chunks)
}

func TestWebSocketTransport_SkipsMalformedFrames(t *testing.T) {
	md := metadataFrame(t)
	url := wsServer(t, func(conn *websocket.Conn, _ *http.Request, _ relay.ChatRequest) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"presence","content":{}}`))
		writeFrame(conn, relay.ChunkFrame("ok"))
		writeFrame(conn, md)
		waitClosed(conn)
	})

	var chunks []string
	err := NewWebSocketTransport(url, fastOptions()).Send(context.Background(), chatRequest("Hi"), Credentials{}, collect(&chunks))
	require.NoError(t, err)
	require.Equal(t, []string{"ok"}, chunks)
}

func TestWebSocketTransport_ErrorFrame(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn, _ *http.Request, _ relay.ChatRequest) {
		writeFrame(conn, relay.ChunkFrame("Partial"))
		writeFrame(conn, relay.ErrorFrame(relay.GenericErrorMessage))
		writeFrame(conn, relay.ChunkFrame("ignored"))
		waitClosed(conn)
	})

	var chunks []string
	err := NewWebSocketTransport(url, fastOptions()).Send(context.Background(), chatRequest("Hi"), Credentials{}, collect(&chunks))
	var serr *StreamError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, relay.GenericErrorMessage, serr.Message)
	require.Equal(t, []string{"Partial"}, chunks)
}

func TestWebSocketTransport_CleanClose(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn, _ *http.Request, _ relay.ChatRequest) {
		writeFrame(conn, relay.ChunkFrame("bye"))
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		waitClosed(conn)
	})

	var chunks []string
	err := NewWebSocketTransport(url, fastOptions()).Send(context.Background(), chatRequest("Hi"), Credentials{}, collect(&chunks))
	require.NoError(t, err)
	require.Equal(t, []string{"bye"}, chunks)
}

func TestWebSocketTransport_UncleanClose(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn, _ *http.Request, _ relay.ChatRequest) {
		writeFrame(conn, relay.ChunkFrame("Hel"))
		// Drop the TCP connection without a close frame.
		_ = conn.NetConn().Close()
	})

	var chunks []string
	err := NewWebSocketTransport(url, WebSocketOptions{HandshakeTimeout: time.Second, SettleIdle: time.Minute}).
		Send(context.Background(), chatRequest("Hi"), Credentials{}, collect(&chunks))
	var lost *ConnectionLostError
	require.ErrorAs(t, err, &lost)
	require.Equal(t, websocket.CloseAbnormalClosure, lost.Code)
	require.Equal(t, []string{"Hel"}, chunks)
}

func TestWebSocketTransport_HandshakeTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	tr := NewWebSocketTransport(url, WebSocketOptions{HandshakeTimeout: 100 * time.Millisecond})
	err := tr.Send(context.Background(), chatRequest("Hi"), Credentials{IDToken: "secret"}, collect(new([]string)))

	var terr *ConnectionTimeoutError
	require.ErrorAs(t, err, &terr)
	require.Equal(t, 100*time.Millisecond, terr.Timeout)
	require.NotContains(t, terr.Error(), "secret")
}

func TestWebSocketTransport_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	err := NewWebSocketTransport(url, fastOptions()).Send(context.Background(), chatRequest("Hi"), Credentials{}, collect(new([]string)))
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}

func TestSubscription_Events(t *testing.T) {
	url := wsServer(t, func(conn *websocket.Conn, _ *http.Request, req relay.ChatRequest) {
		writeFrame(conn, relay.ChunkFrame(req.Action))
		waitClosed(conn)
	})

	sub := Subscribe(context.Background(), url, nil, time.Second)

	ev := <-sub.Events()
	require.IsType(t, Opened{}, ev)
	require.NoError(t, sub.Send([]byte(`{"action":"ping"}`)))

	ev = <-sub.Events()
	frame, ok := ev.(FrameReceived)
	require.True(t, ok, "expected a frame, got %T", ev)
	require.JSONEq(t, string(relay.ChunkFrame("ping").Bytes()), string(frame.Data))

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	for range sub.Events() {
	}
}
