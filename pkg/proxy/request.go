package proxy

import (
	"fmt"
	"io"
	"net/http"

	"mercator-hq/chatrelay/pkg/proxy/types"
	"mercator-hq/chatrelay/pkg/relay"
)

// MaxRequestBodySize is the maximum allowed request body size (1MB).
const MaxRequestBodySize = 1 << 20

// ParseChatRequest reads and decodes the chat payload of r. An empty body is
// accepted; the invoker then substitutes the placeholder conversation.
func ParseChatRequest(r *http.Request) (relay.ChatRequest, error) {
	if r.Body == nil {
		return relay.ChatRequest{}, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		return relay.ChatRequest{}, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) > MaxRequestBodySize {
		return relay.ChatRequest{}, &RequestError{
			Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", MaxRequestBodySize),
			Code:    types.CodeRequestTooLarge,
			Status:  http.StatusRequestEntityTooLarge,
		}
	}

	req, err := relay.ParseChatRequest(body)
	if err != nil {
		return relay.ChatRequest{}, &RequestError{
			Message: "request body is not valid JSON",
			Code:    types.CodeInvalidJSON,
			Status:  http.StatusBadRequest,
			Cause:   err,
		}
	}
	return req, nil
}
