package client

import (
	"context"
	"fmt"
	"net/http"

	"mercator-hq/chatrelay/pkg/config"
	"mercator-hq/chatrelay/pkg/relay"
)

// Endpoint names
const (
	EndpointStream    = "stream"
	EndpointUnary     = "unary"
	EndpointWebSocket = "websocket"
)

// ChunkFunc receives reply text in arrival order. Returning an error stops
// the transport, which then returns that error.
type ChunkFunc func(text string) error

// Transport sends one chat request and feeds the reply to onChunk. It
// returns nil once the reply has settled.
type Transport interface {
	Send(ctx context.Context, req relay.ChatRequest, creds Credentials, onChunk ChunkFunc) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req relay.ChatRequest, creds Credentials, onChunk ChunkFunc) error

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context, req relay.ChatRequest, creds Credentials, onChunk ChunkFunc) error {
	return f(ctx, req, creds, onChunk)
}

// NewTransport builds the transport selected by cfg.Endpoint. A nil
// httpClient uses http.DefaultClient.
func NewTransport(cfg *config.ClientConfig, httpClient *http.Client) (Transport, error) {
	switch cfg.Endpoint {
	case "", EndpointStream:
		return NewStreamTransport(cfg.StreamURL, httpClient, WithSigning(cfg.SignRegion, cfg.SignService)), nil
	case EndpointUnary:
		return NewUnaryTransport(cfg.UnaryURL, httpClient), nil
	case EndpointWebSocket:
		return NewWebSocketTransport(cfg.WebSocketURL, WebSocketOptions{
			HandshakeTimeout: cfg.HandshakeTimeout,
			SettleIdle:       cfg.SettleIdle,
			ReplyTimeout:     cfg.ReplyTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported endpoint %q (supported: stream, unary, websocket)", cfg.Endpoint)
	}
}
