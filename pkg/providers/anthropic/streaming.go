package anthropic

import (
	"context"
	"io"
	"sync"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"mercator-hq/chatrelay/pkg/providers"
)

// streamReader adapts the SDK's SSE stream to providers.EventStream.
// message_delta carries the stop reason and output usage; they are held in
// state and surfaced as messageStop followed by metadata.
type streamReader struct {
	provider *Provider
	stream   *ssestream.Stream[sdk.MessageStreamEventUnion]
	state    streamState
	pending  []providers.Event

	closeOnce sync.Once
	closed    bool
}

type streamState struct {
	start        time.Time
	stopReason   string
	inputTokens  int
	outputTokens int
}

func newStreamReader(p *Provider, stream *ssestream.Stream[sdk.MessageStreamEventUnion]) *streamReader {
	return &streamReader{
		provider: p,
		stream:   stream,
		state:    streamState{start: time.Now()},
	}
}

// Recv returns the next event, or io.EOF when the stream ends normally.
func (s *streamReader) Recv(ctx context.Context) (providers.Event, error) {
	for {
		if len(s.pending) > 0 {
			ev := s.pending[0]
			s.pending = s.pending[1:]
			return ev, nil
		}

		if s.closed {
			return providers.Event{}, io.EOF
		}

		if err := ctx.Err(); err != nil {
			return providers.Event{}, err
		}

		if !s.stream.Next() {
			if err := s.stream.Err(); err != nil {
				return providers.Event{}, &providers.StreamError{
					Provider: s.provider.name,
					Message:  "failed to read stream",
					Cause:    s.provider.convertError(err),
				}
			}
			return providers.Event{}, io.EOF
		}

		if ev, ok := s.transform(s.stream.Current()); ok {
			return ev, nil
		}
	}
}

// transform maps one SDK event. Events that carry nothing for the caller
// (content_block_start, content_block_stop, message_delta) return false.
func (s *streamReader) transform(event sdk.MessageStreamEventUnion) (providers.Event, bool) {
	switch ev := event.AsAny().(type) {
	case sdk.MessageStartEvent:
		s.state.inputTokens = int(ev.Message.Usage.InputTokens)
		return providers.StartEvent(providers.RoleAssistant), true

	case sdk.ContentBlockDeltaEvent:
		switch delta := ev.Delta.AsAny().(type) {
		case sdk.TextDelta:
			return providers.DeltaEvent(int(ev.Index), delta.Text), true
		default:
			return providers.Event{ContentBlockDelta: &providers.ContentBlockDeltaEvent{Index: int(ev.Index)}}, true
		}

	case sdk.MessageDeltaEvent:
		s.state.stopReason = string(ev.Delta.StopReason)
		s.state.outputTokens = int(ev.Usage.OutputTokens)
		return providers.Event{}, false

	case sdk.MessageStopEvent:
		usage := providers.Usage{
			InputTokens:  s.state.inputTokens,
			OutputTokens: s.state.outputTokens,
			TotalTokens:  s.state.inputTokens + s.state.outputTokens,
		}
		s.pending = append(s.pending, providers.MetadataOf(usage, providers.MetricsSince(s.state.start)))
		return providers.StopEvent(s.state.stopReason), true
	}
	return providers.Event{}, false
}

// Close closes the stream and releases the response body.
func (s *streamReader) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed = true
		err = s.stream.Close()
	})
	return err
}
