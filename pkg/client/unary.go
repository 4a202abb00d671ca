package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"mercator-hq/chatrelay/pkg/providers"
	"mercator-hq/chatrelay/pkg/relay"
	"mercator-hq/chatrelay/pkg/telemetry/tracing"
)

// UnaryTransport posts to the unary endpoint and waits for one complete
// reply.
type UnaryTransport struct {
	url    string
	client *http.Client
}

// NewUnaryTransport creates a unary transport for url.
func NewUnaryTransport(url string, client *http.Client) *UnaryTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &UnaryTransport{url: url, client: client}
}

// Send implements Transport. The reply text is the first content block of
// the output message, or "" when there is none; it is passed to onChunk
// exactly once.
func (t *UnaryTransport) Send(ctx context.Context, req relay.ChatRequest, creds Credentials, onChunk ChunkFunc) error {
	body, err := json.Marshal(relay.ChatRequest{Messages: req.Messages})
	if err != nil {
		return fmt.Errorf("failed to encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if creds.IDToken != "" {
		httpReq.Header.Set("Authorization", creds.IDToken)
	}
	tracing.Inject(ctx, httpReq.Header)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(ctx, resp)
	}

	var out providers.ConverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("failed to decode chat response: %w", err)
	}
	return onChunk(out.Text())
}
