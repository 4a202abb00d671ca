package anthropic

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	testhelpers "mercator-hq/chatrelay/internal/providers"
	"mercator-hq/chatrelay/pkg/providers"
)

const testModel = "claude-3-5-sonnet-20240620"

func newTestProvider(t *testing.T, url string) *Provider {
	t.Helper()
	p, err := NewProvider(context.Background(), Config{
		Backend: BackendAnthropic,
		APIKey:  "test-key",
		BaseURL: url,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	return p
}

func TestAnthropicProvider_Converse(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/v1/messages", testhelpers.MockResponse{
		Body: testhelpers.AnthropicResponse("Hello, world!", testModel),
	})

	provider := newTestProvider(t, mock.URL())
	defer provider.Close()

	resp, err := provider.Converse(context.Background(), testhelpers.TestRequest(testModel))
	testhelpers.AssertNoError(t, err)

	if resp.Text() != "Hello, world!" {
		t.Errorf("expected content %q, got %q", "Hello, world!", resp.Text())
	}
	if resp.StopReason != "end_turn" {
		t.Errorf("expected stop reason end_turn, got %q", resp.StopReason)
	}
	if resp.Usage.TotalTokens != 30 {
		t.Errorf("expected total tokens 30, got %d", resp.Usage.TotalTokens)
	}

	reqs := mock.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	body := reqs[0].Body
	if body["max_tokens"] != float64(4096) {
		t.Errorf("expected max_tokens 4096, got %v", body["max_tokens"])
	}
	if body["temperature"] != 0.5 {
		t.Errorf("expected temperature 0.5, got %v", body["temperature"])
	}
	if body["top_p"] != 0.9 {
		t.Errorf("expected top_p 0.9, got %v", body["top_p"])
	}
	if body["system"] == nil {
		t.Error("expected system prompt to be sent")
	}
}

func TestAnthropicProvider_ConverseStream(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/v1/messages", testhelpers.MockResponse{
		StreamEvents: testhelpers.AnthropicStream(testModel, "Hel", "lo!"),
	})

	provider := newTestProvider(t, mock.URL())

	stream, err := provider.ConverseStream(context.Background(), testhelpers.TestRequest(testModel))
	testhelpers.AssertNoError(t, err)
	defer stream.Close()

	events, err := testhelpers.CollectEvents(t, stream, 5*time.Second)
	testhelpers.AssertNoError(t, err)

	want := []string{"messageStart", "contentBlockDelta", "contentBlockDelta", "messageStop", "metadata"}
	if got := testhelpers.Kinds(events); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected kinds %v, got %v", want, got)
	}
	if got := testhelpers.ConcatenateDeltas(events); got != "Hello!" {
		t.Errorf("expected %q, got %q", "Hello!", got)
	}

	stop := events[3].MessageStop
	if stop.StopReason != "end_turn" {
		t.Errorf("expected stop reason end_turn, got %q", stop.StopReason)
	}
	meta := events[4].Metadata
	if meta.Usage == nil || meta.Usage.OutputTokens != 20 || meta.Usage.InputTokens != 10 {
		t.Errorf("unexpected usage: %+v", meta.Usage)
	}
}

func TestAnthropicProvider_AuthError(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/v1/messages", testhelpers.MockAuthError())

	provider := newTestProvider(t, mock.URL())

	_, err := provider.Converse(context.Background(), testhelpers.TestRequest(testModel))
	var authErr *providers.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %T: %v", err, err)
	}

	_, err = provider.ConverseStream(context.Background(), testhelpers.TestRequest(testModel))
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError from stream open, got %T: %v", err, err)
	}

	if mock.GetRequestCount() != 2 {
		t.Errorf("expected no retries (2 requests), got %d", mock.GetRequestCount())
	}
}

func TestAnthropicProvider_StreamInterrupted(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/v1/messages", testhelpers.MockResponse{
		StreamEvents: testhelpers.AnthropicStream(testModel, "Hel", "lo", " there"),
		AbortAfter:   4,
	})

	provider := newTestProvider(t, mock.URL())

	stream, err := provider.ConverseStream(context.Background(), testhelpers.TestRequest(testModel))
	testhelpers.AssertNoError(t, err)
	defer stream.Close()

	events, err := testhelpers.CollectEvents(t, stream, 5*time.Second)
	if err == nil {
		// A cut connection may surface as a clean EOF; it must never
		// produce a messageStop.
		for _, ev := range events {
			if ev.MessageStop != nil {
				t.Fatal("expected no messageStop on an interrupted stream")
			}
		}
		return
	}
	if got := testhelpers.ConcatenateDeltas(events); got != "Hello" {
		t.Errorf("expected partial text %q, got %q", "Hello", got)
	}
}

func TestNewProvider_Validation(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{name: "missing api key", cfg: Config{Backend: BackendAnthropic}, field: "api_key"},
		{name: "bedrock without region", cfg: Config{Backend: BackendBedrock}, field: "region"},
		{name: "unknown backend", cfg: Config{Backend: "vertex"}, field: "backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(context.Background(), tt.cfg)
			var cfgErr *providers.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, cfgErr.Field)
			}
		})
	}
}

func TestBuildParams_Roles(t *testing.T) {
	req := testhelpers.TestRequest(testModel,
		providers.TextMessage(providers.RoleUser, "hi"),
		providers.TextMessage(providers.RoleAssistant, "hello"),
		providers.TextMessage(providers.RoleUser, "how are you?"),
	)

	params := buildParams(req)
	if len(params.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(params.Messages))
	}
	if params.Messages[1].Role != "assistant" {
		t.Errorf("expected assistant role, got %q", params.Messages[1].Role)
	}
	if params.MaxTokens != 4096 {
		t.Errorf("expected max tokens 4096, got %d", params.MaxTokens)
	}
}
