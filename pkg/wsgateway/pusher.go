package wsgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrGone indicates the target connection no longer exists.
var ErrGone = errors.New("connection gone")

// GoneError reports that a connection has disconnected.
type GoneError struct {
	ConnectionID string
}

// Error implements the error interface.
func (e *GoneError) Error() string {
	return fmt.Sprintf("connection %s is gone", e.ConnectionID)
}

// Is makes errors.Is(err, ErrGone) match.
func (e *GoneError) Is(target error) bool {
	return target == ErrGone
}

// IsGone reports whether err means the connection has disconnected.
func IsGone(err error) bool {
	return errors.Is(err, ErrGone)
}

// Pusher delivers data to a connection through the push API of the
// gateway at endpoint.
type Pusher interface {
	// GetConnection returns the connection state, or a GoneError.
	GetConnection(ctx context.Context, endpoint, connectionID string) (ConnectionInfo, error)

	// PostToConnection sends one message, or returns a GoneError.
	PostToConnection(ctx context.Context, endpoint, connectionID string, data []byte) error
}

// LocalPusher pushes directly through an in-process registry. The endpoint
// is ignored.
type LocalPusher struct {
	registry     *Registry
	writeTimeout time.Duration
}

// NewLocalPusher creates a pusher over registry.
func NewLocalPusher(registry *Registry, writeTimeout time.Duration) *LocalPusher {
	return &LocalPusher{registry: registry, writeTimeout: writeTimeout}
}

// GetConnection implements Pusher.
func (p *LocalPusher) GetConnection(_ context.Context, _, connectionID string) (ConnectionInfo, error) {
	c, ok := p.registry.Get(connectionID)
	if !ok {
		return ConnectionInfo{}, &GoneError{ConnectionID: connectionID}
	}
	return c.Info(), nil
}

// PostToConnection implements Pusher.
func (p *LocalPusher) PostToConnection(_ context.Context, _, connectionID string, data []byte) error {
	c, ok := p.registry.Get(connectionID)
	if !ok {
		return &GoneError{ConnectionID: connectionID}
	}
	if err := c.Write(data, p.writeTimeout); err != nil {
		if errors.Is(err, ErrConnectionClosed) {
			return &GoneError{ConnectionID: connectionID}
		}
		return fmt.Errorf("failed to write to connection %s: %w", connectionID, err)
	}
	return nil
}

// HTTPPusher pushes through the management API of a remote gateway.
type HTTPPusher struct {
	client *http.Client
	token  string
}

// NewHTTPPusher creates a pusher. When token is non-empty it is sent as a
// bearer token.
func NewHTTPPusher(client *http.Client, token string) *HTTPPusher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPPusher{client: client, token: token}
}

// GetConnection implements Pusher.
func (p *HTTPPusher) GetConnection(ctx context.Context, endpoint, connectionID string) (ConnectionInfo, error) {
	resp, err := p.do(ctx, http.MethodGet, endpoint, connectionID, nil)
	if err != nil {
		return ConnectionInfo{}, err
	}
	defer resp.Body.Close()

	var info ConnectionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return ConnectionInfo{}, fmt.Errorf("failed to decode connection info: %w", err)
	}
	return info, nil
}

// PostToConnection implements Pusher.
func (p *HTTPPusher) PostToConnection(ctx context.Context, endpoint, connectionID string, data []byte) error {
	resp, err := p.do(ctx, http.MethodPost, endpoint, connectionID, data)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func (p *HTTPPusher) do(ctx context.Context, method, endpoint, connectionID string, body []byte) (*http.Response, error) {
	u := strings.TrimRight(endpoint, "/") + ConnectionsPath + url.PathEscape(connectionID)

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create push request: %w", err)
	}
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("push request failed: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusGone:
		resp.Body.Close()
		return nil, &GoneError{ConnectionID: connectionID}
	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("push request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}
