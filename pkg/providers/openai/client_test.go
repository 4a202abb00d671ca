package openai

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	testhelpers "mercator-hq/chatrelay/internal/providers"
	"mercator-hq/chatrelay/pkg/providers"
)

func newTestProvider(t *testing.T, url string) *Provider {
	t.Helper()
	p, err := NewProvider(Config{APIKey: "test-key", BaseURL: url, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	return p
}

func TestOpenAIProvider_Converse(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/chat/completions", testhelpers.MockResponse{
		Body: testhelpers.OpenAIResponse("Hello, world!", "gpt-4o"),
	})

	provider := newTestProvider(t, mock.URL())

	resp, err := provider.Converse(context.Background(), testhelpers.TestRequest("gpt-4o"))
	testhelpers.AssertNoError(t, err)

	testhelpers.AssertEqual(t, resp.Text(), "Hello, world!")
	testhelpers.AssertEqual(t, resp.StopReason, providers.StopReasonEndTurn)
	testhelpers.AssertEqual(t, resp.Usage.TotalTokens, 30)

	body := mock.Requests()[0].Body
	msgs, ok := body["messages"].([]interface{})
	if !ok || len(msgs) != 2 {
		t.Fatalf("expected system + user messages, got %v", body["messages"])
	}
	first := msgs[0].(map[string]interface{})
	if first["role"] != "system" {
		t.Errorf("expected leading system message, got %v", first["role"])
	}
}

func TestOpenAIProvider_ConverseStream(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/chat/completions", testhelpers.MockResponse{
		StreamEvents: testhelpers.OpenAIStream("gpt-4o", "Hel", "", "lo!"),
	})

	provider := newTestProvider(t, mock.URL())

	stream, err := provider.ConverseStream(context.Background(), testhelpers.TestRequest("gpt-4o"))
	testhelpers.AssertNoError(t, err)
	defer stream.Close()

	events, err := testhelpers.CollectEvents(t, stream, 5*time.Second)
	testhelpers.AssertNoError(t, err)

	want := []string{"messageStart", "contentBlockDelta", "contentBlockDelta", "messageStop", "metadata"}
	if got := testhelpers.Kinds(events); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected kinds %v, got %v", want, got)
	}
	testhelpers.AssertEqual(t, testhelpers.ConcatenateDeltas(events), "Hello!")
	testhelpers.AssertEqual(t, events[3].MessageStop.StopReason, providers.StopReasonEndTurn)
	testhelpers.AssertEqual(t, events[4].Metadata.Usage.TotalTokens, 30)

	if stream, ok := mock.Requests()[0].Body["stream"].(bool); !ok || !stream {
		t.Error("expected stream=true in request")
	}
}

func TestOpenAIProvider_AuthError(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/chat/completions", testhelpers.MockAuthError())

	provider := newTestProvider(t, mock.URL())

	_, err := provider.Converse(context.Background(), testhelpers.TestRequest("gpt-4o"))
	var authErr *providers.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %T: %v", err, err)
	}
	testhelpers.AssertEqual(t, mock.GetRequestCount(), 1)
}

func TestNewProvider_RequiresKeyOrBaseURL(t *testing.T) {
	_, err := NewProvider(Config{})
	var cfgErr *providers.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}

	if _, err := NewProvider(Config{BaseURL: "http://localhost:11434/v1"}); err != nil {
		t.Fatalf("expected compatible server without key to be accepted, got %v", err)
	}
}

func TestMapFinishReason(t *testing.T) {
	tests := map[string]string{
		"stop":           providers.StopReasonEndTurn,
		"length":         providers.StopReasonMaxTokens,
		"content_filter": "content_filter",
	}
	for in, want := range tests {
		if got := mapFinishReason(in); got != want {
			t.Errorf("mapFinishReason(%q) = %q, want %q", in, got, want)
		}
	}
}
