package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockServer is a mock HTTP server for testing provider adapters.
// It serves canned unary bodies and Server-Sent Event streams.
type MockServer struct {
	server       *httptest.Server
	responses    map[string]MockResponse
	requests     []RecordedRequest
	requestCount int
	mu           sync.Mutex
}

// MockResponse defines a mock response configuration.
type MockResponse struct {
	StatusCode int
	Body       interface{}
	Delay      time.Duration
	Headers    map[string]string

	// StreamEvents are written verbatim, each followed by a blank line
	StreamEvents []string

	// AbortAfter cuts the connection after this many events (0 disables)
	AbortAfter int
}

// RecordedRequest is a request seen by the server.
type RecordedRequest struct {
	Path    string
	Headers http.Header
	Body    map[string]interface{}
}

// NewMockServer creates a new mock server.
func NewMockServer() *MockServer {
	ms := &MockServer{
		responses: make(map[string]MockResponse),
	}
	ms.server = httptest.NewServer(http.HandlerFunc(ms.handler))
	return ms
}

// URL returns the mock server's base URL.
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Close closes the mock server.
func (ms *MockServer) Close() {
	ms.server.Close()
}

// SetResponse sets a mock response for a specific endpoint.
func (ms *MockServer) SetResponse(path string, response MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.responses[path] = response
}

// GetRequestCount returns the number of requests received.
func (ms *MockServer) GetRequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return ms.requestCount
}

// Requests returns the requests received so far.
func (ms *MockServer) Requests() []RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	out := make([]RecordedRequest, len(ms.requests))
	copy(out, ms.requests)
	return out
}

func (ms *MockServer) handler(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)

	ms.mu.Lock()
	ms.requestCount++
	ms.requests = append(ms.requests, RecordedRequest{Path: r.URL.Path, Headers: r.Header.Clone(), Body: body})
	response, ok := ms.responses[r.URL.Path]
	ms.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if response.Delay > 0 {
		time.Sleep(response.Delay)
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}

	if len(response.StreamEvents) > 0 {
		ms.handleStream(w, response)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	status := response.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if response.Body != nil {
		switch v := response.Body.(type) {
		case string:
			_, _ = w.Write([]byte(v))
		case []byte:
			_, _ = w.Write(v)
		default:
			_ = json.NewEncoder(w).Encode(response.Body)
		}
	}
}

// handleStream writes Server-Sent Events.
func (ms *MockServer) handleStream(w http.ResponseWriter, response MockResponse) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)

	for i, event := range response.StreamEvents {
		if response.AbortAfter > 0 && i == response.AbortAfter {
			if hj, ok := w.(http.Hijacker); ok {
				if conn, _, err := hj.Hijack(); err == nil {
					_ = conn.Close()
				}
			}
			return
		}
		fmt.Fprintf(w, "%s\n\n", event)
		flusher.Flush()
	}
}

// AnthropicResponse creates a mock Anthropic messages response.
func AnthropicResponse(content, model string) map[string]interface{} {
	return map[string]interface{}{
		"id":   "msg_123",
		"type": "message",
		"role": "assistant",
		"content": []map[string]interface{}{
			{"type": "text", "text": content},
		},
		"model":         model,
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"usage": map[string]interface{}{
			"input_tokens":  10,
			"output_tokens": 20,
		},
	}
}

// AnthropicEvent formats one Anthropic SSE event.
func AnthropicEvent(eventType string, data interface{}) string {
	bytes, _ := json.Marshal(data)
	return fmt.Sprintf("event: %s\ndata: %s", eventType, bytes)
}

// AnthropicStream builds a complete Anthropic event stream producing the
// given text deltas.
func AnthropicStream(model string, deltas ...string) []string {
	events := []string{
		AnthropicEvent("message_start", map[string]interface{}{
			"type": "message_start",
			"message": map[string]interface{}{
				"id": "msg_123", "type": "message", "role": "assistant", "model": model,
				"content": []interface{}{}, "stop_reason": nil, "stop_sequence": nil,
				"usage": map[string]interface{}{"input_tokens": 10, "output_tokens": 1},
			},
		}),
		AnthropicEvent("content_block_start", map[string]interface{}{
			"type": "content_block_start", "index": 0,
			"content_block": map[string]interface{}{"type": "text", "text": ""},
		}),
	}
	for _, d := range deltas {
		events = append(events, AnthropicEvent("content_block_delta", map[string]interface{}{
			"type": "content_block_delta", "index": 0,
			"delta": map[string]interface{}{"type": "text_delta", "text": d},
		}))
	}
	events = append(events,
		AnthropicEvent("content_block_stop", map[string]interface{}{"type": "content_block_stop", "index": 0}),
		AnthropicEvent("message_delta", map[string]interface{}{
			"type":  "message_delta",
			"delta": map[string]interface{}{"stop_reason": "end_turn", "stop_sequence": nil},
			"usage": map[string]interface{}{"output_tokens": 20},
		}),
		AnthropicEvent("message_stop", map[string]interface{}{"type": "message_stop"}),
	)
	return events
}

// OpenAIResponse creates a mock chat completion response.
func OpenAIResponse(content, model string) map[string]interface{} {
	return map[string]interface{}{
		"id":      "chatcmpl-123",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"message":       map[string]interface{}{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]interface{}{
			"prompt_tokens":     10,
			"completion_tokens": 20,
			"total_tokens":      30,
		},
	}
}

// OpenAIStream builds a chat completion chunk stream producing the given
// deltas, a usage chunk and the [DONE] terminator.
func OpenAIStream(model string, deltas ...string) []string {
	chunk := func(choices []map[string]interface{}, usage interface{}) string {
		bytes, _ := json.Marshal(map[string]interface{}{
			"id": "chatcmpl-123", "object": "chat.completion.chunk",
			"created": 1700000000, "model": model,
			"choices": choices, "usage": usage,
		})
		return "data: " + string(bytes)
	}

	var events []string
	for _, d := range deltas {
		events = append(events, chunk([]map[string]interface{}{
			{"index": 0, "delta": map[string]interface{}{"content": d}, "finish_reason": nil},
		}, nil))
	}
	events = append(events,
		chunk([]map[string]interface{}{
			{"index": 0, "delta": map[string]interface{}{}, "finish_reason": "stop"},
		}, nil),
		chunk([]map[string]interface{}{}, map[string]interface{}{
			"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30,
		}),
		"data: [DONE]",
	)
	return events
}

// MockErrorResponse creates a mock error response.
func MockErrorResponse(statusCode int, message string) MockResponse {
	return MockResponse{
		StatusCode: statusCode,
		Body: map[string]interface{}{
			"type": "error",
			"error": map[string]interface{}{
				"message": message,
				"type":    "invalid_request_error",
			},
		},
	}
}

// MockAuthError creates a 401 authentication error response.
func MockAuthError() MockResponse {
	return MockErrorResponse(http.StatusUnauthorized, "Invalid API key")
}

// MockServerError creates a 500 internal server error response.
func MockServerError() MockResponse {
	return MockErrorResponse(http.StatusInternalServerError, "Internal server error")
}
