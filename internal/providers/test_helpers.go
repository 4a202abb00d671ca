package providers

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"mercator-hq/chatrelay/pkg/providers"
)

// TestRequest creates a test converse request.
func TestRequest(model string, messages ...providers.Message) *providers.ConverseRequest {
	if len(messages) == 0 {
		messages = providers.DefaultMessages()
	}
	return &providers.ConverseRequest{
		ModelID:   model,
		System:    "You are a helpful assistant.",
		Messages:  messages,
		Inference: providers.DefaultSettings().Inference,
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertEqual fails the test if got != expected.
func AssertEqual(t *testing.T, got, expected interface{}) {
	t.Helper()
	if got != expected {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}

// CollectEvents drains a stream with a timeout. It returns the events seen
// before the first error other than io.EOF, and that error.
func CollectEvents(t *testing.T, stream providers.EventStream, timeout time.Duration) ([]providers.Event, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var events []providers.Event
	for {
		ev, err := stream.Recv(ctx)
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}

// ConcatenateDeltas joins the delta text of all events.
func ConcatenateDeltas(events []providers.Event) string {
	var b strings.Builder
	for _, ev := range events {
		b.WriteString(ev.DeltaText())
	}
	return b.String()
}

// Kinds lists the event kinds in order.
func Kinds(events []providers.Event) []string {
	kinds := make([]string, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind()
	}
	return kinds
}
