package proxy

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mercator-hq/chatrelay/pkg/providers"
)

func TestParseChatRequest(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantMessages int
		wantStatus   int
	}{
		{
			name:         "messages",
			body:         `{"messages":[{"role":"user","content":[{"text":"Hi"}]}]}`,
			wantMessages: 1,
		},
		{
			name:         "empty body",
			body:         "",
			wantMessages: 0,
		},
		{
			name:         "no messages field",
			body:         `{}`,
			wantMessages: 0,
		},
		{
			name:       "invalid json",
			body:       `{"messages":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(tt.body))
			got, err := ParseChatRequest(req)

			if tt.wantStatus != 0 {
				var reqErr *RequestError
				if !errors.As(err, &reqErr) {
					t.Fatalf("expected RequestError, got %v", err)
				}
				if reqErr.Status != tt.wantStatus {
					t.Errorf("Status = %d, want %d", reqErr.Status, tt.wantStatus)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got.Messages) != tt.wantMessages {
				t.Errorf("len(Messages) = %d, want %d", len(got.Messages), tt.wantMessages)
			}
		})
	}
}

func TestParseChatRequest_ContentText(t *testing.T) {
	body := `{"messages":[{"role":"user","content":[{"text":"Hel"},{"text":"lo"}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))

	got, err := ParseChatRequest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Messages[0].Role != providers.RoleUser {
		t.Errorf("Role = %q, want %q", got.Messages[0].Role, providers.RoleUser)
	}
	if got.Messages[0].Text() != "Hello" {
		t.Errorf("Text() = %q, want %q", got.Messages[0].Text(), "Hello")
	}
}

func TestParseChatRequest_TooLarge(t *testing.T) {
	body := bytes.Repeat([]byte("a"), MaxRequestBodySize+10)
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))

	_, err := ParseChatRequest(req)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.Status != http.StatusRequestEntityTooLarge {
		t.Errorf("Status = %d, want 413", reqErr.Status)
	}
}
