package client

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"

	"mercator-hq/chatrelay/pkg/relay"
	"mercator-hq/chatrelay/pkg/telemetry/tracing"
)

// maxErrorBody bounds how much of a failed response is kept for logs.
const maxErrorBody = 4 << 10

// IDTokenHeader carries the ID token of a SigV4-signed request, whose
// Authorization header holds the signature.
const IDTokenHeader = "X-Api-Key"

// StreamTransport posts to the streaming endpoint and consumes the NDJSON
// reply as it arrives.
type StreamTransport struct {
	url     string
	client  *http.Client
	signer  *v4.Signer
	region  string
	service string
}

// StreamOption customizes a StreamTransport.
type StreamOption func(*StreamTransport)

// WithSigning signs requests with SigV4 for region and service whenever
// the credentials carry access keys.
func WithSigning(region, service string) StreamOption {
	return func(t *StreamTransport) {
		t.signer = v4.NewSigner()
		t.region = region
		t.service = service
	}
}

// NewStreamTransport creates a streaming transport for url.
func NewStreamTransport(url string, client *http.Client, opts ...StreamOption) *StreamTransport {
	if client == nil {
		client = http.DefaultClient
	}
	t := &StreamTransport{url: url, client: client}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send implements Transport.
func (t *StreamTransport) Send(ctx context.Context, req relay.ChatRequest, creds Credentials, onChunk ChunkFunc) error {
	body, err := json.Marshal(relay.ChatRequest{Messages: req.Messages})
	if err != nil {
		return fmt.Errorf("failed to encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")
	tracing.Inject(ctx, httpReq.Header)

	switch {
	case t.signer != nil && creds.HasAccessKeys():
		if creds.IDToken != "" {
			httpReq.Header.Set(IDTokenHeader, creds.IDToken)
		}
		if err := t.sign(ctx, httpReq, body, creds); err != nil {
			return err
		}
	case creds.IDToken != "":
		httpReq.Header.Set("Authorization", "Bearer "+creds.IDToken)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("stream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(ctx, resp)
	}

	sum, err := Consume(ctx, resp.Body, onChunk)
	slog.DebugContext(ctx, "stream consumed",
		"chunks", sum.Chunks,
		"malformed", sum.Malformed,
		"metadata", sum.Metadata != nil,
	)
	return err
}

func (t *StreamTransport) sign(ctx context.Context, r *http.Request, body []byte, creds Credentials) error {
	sum := sha256.Sum256(body)
	err := t.signer.SignHTTP(ctx, aws.Credentials{
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
		SessionToken:    creds.SessionToken,
	}, r, hex.EncodeToString(sum[:]), t.service, t.region, time.Now())
	if err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}
	return nil
}

// statusError drains a failed response into a *StatusError.
func statusError(ctx context.Context, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	slog.ErrorContext(ctx, "chat request rejected",
		"status", resp.StatusCode,
		"content_type", resp.Header.Get("Content-Type"),
	)
	return &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
}
