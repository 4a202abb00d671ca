package openai

import (
	"context"
	"io"
	"sync"
	"time"

	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/ssestream"

	"mercator-hq/chatrelay/pkg/providers"
)

// streamReader adapts a chat completion chunk stream to
// providers.EventStream. OpenAI has no explicit start/stop frames, so
// messageStart is synthesized before the first chunk and messageStop plus
// metadata after the last.
type streamReader struct {
	provider *Provider
	stream   *ssestream.Stream[sdk.ChatCompletionChunk]
	pending  []providers.Event

	start      time.Time
	started    bool
	finished   bool
	stopReason string
	usage      providers.Usage

	closeOnce sync.Once
	closed    bool
}

func newStreamReader(p *Provider, stream *ssestream.Stream[sdk.ChatCompletionChunk]) *streamReader {
	return &streamReader{provider: p, stream: stream, start: time.Now()}
}

// Recv returns the next event, or io.EOF when the stream ends normally.
func (s *streamReader) Recv(ctx context.Context) (providers.Event, error) {
	for {
		if len(s.pending) > 0 {
			ev := s.pending[0]
			s.pending = s.pending[1:]
			return ev, nil
		}
		if s.closed || s.finished {
			return providers.Event{}, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return providers.Event{}, err
		}

		if !s.stream.Next() {
			if err := s.stream.Err(); err != nil {
				return providers.Event{}, &providers.StreamError{
					Provider: s.provider.Name(),
					Message:  "failed to read stream",
					Cause:    s.provider.convertError(err),
				}
			}
			s.finish()
			continue
		}

		s.transform(s.stream.Current())
	}
}

func (s *streamReader) transform(chunk sdk.ChatCompletionChunk) {
	if !s.started {
		s.started = true
		s.pending = append(s.pending, providers.StartEvent(providers.RoleAssistant))
	}
	for _, choice := range chunk.Choices {
		if choice.Delta.Content != "" {
			s.pending = append(s.pending, providers.DeltaEvent(int(choice.Index), choice.Delta.Content))
		}
		if choice.FinishReason != "" {
			s.stopReason = mapFinishReason(choice.FinishReason)
		}
	}
	if chunk.Usage.TotalTokens > 0 {
		s.usage = convertUsage(chunk.Usage)
	}
}

func (s *streamReader) finish() {
	s.finished = true
	if !s.started {
		s.pending = append(s.pending, providers.StartEvent(providers.RoleAssistant))
	}
	s.pending = append(s.pending,
		providers.StopEvent(s.stopReason),
		providers.MetadataOf(s.usage, providers.MetricsSince(s.start)),
	)
}

// Close closes the stream.
func (s *streamReader) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed = true
		err = s.stream.Close()
	})
	return err
}
