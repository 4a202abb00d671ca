// Package scripted implements an in-process provider that replays a fixed
// response. It backs local development (model.provider: scripted) and the
// relay tests.
package scripted

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"mercator-hq/chatrelay/pkg/providers"
)

// Config describes what the provider replays.
type Config struct {
	// Fragments are emitted as one contentBlockDelta each
	Fragments []string

	// Echo replies with the text of the last user message instead of Fragments
	Echo bool

	// Delay is slept before each fragment
	Delay time.Duration

	// FailAfter makes the stream fail after this many fragments (0 disables)
	FailAfter int

	// FailOpen makes ConverseStream and Converse fail immediately
	FailOpen bool

	// Err is the error used for failures; a generic one when nil
	Err error
}

// ErrScripted is the default injected failure.
var ErrScripted = errors.New("scripted provider failure")

// Provider replays Config for every invocation and records the requests it
// receives.
type Provider struct {
	cfg Config

	mu       sync.Mutex
	requests []*providers.ConverseRequest
	closed   int
}

// New creates a scripted provider.
func New(cfg Config) *Provider {
	return &Provider{cfg: cfg}
}

// Name returns "scripted".
func (p *Provider) Name() string { return "scripted" }

// Close is a no-op.
func (p *Provider) Close() error { return nil }

// Requests returns the requests seen so far.
func (p *Provider) Requests() []*providers.ConverseRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*providers.ConverseRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

// StreamsClosed returns how many streams were closed.
func (p *Provider) StreamsClosed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Provider) record(req *providers.ConverseRequest) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
}

func (p *Provider) failure() error {
	if p.cfg.Err != nil {
		return p.cfg.Err
	}
	return ErrScripted
}

func (p *Provider) fragments(req *providers.ConverseRequest) []string {
	if !p.cfg.Echo {
		return p.cfg.Fragments
	}
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == providers.RoleUser {
			return strings.SplitAfter(req.Messages[i].Text(), " ")
		}
	}
	return nil
}

// Converse returns the joined fragments as one message.
func (p *Provider) Converse(ctx context.Context, req *providers.ConverseRequest) (*providers.ConverseResponse, error) {
	p.record(req)
	if p.cfg.FailOpen || p.cfg.FailAfter > 0 {
		return nil, p.failure()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	text := strings.Join(p.fragments(req), "")
	return &providers.ConverseResponse{
		Output: providers.ConverseOutput{
			Message: providers.TextMessage(providers.RoleAssistant, text),
		},
		StopReason: providers.StopReasonEndTurn,
		Usage:      usageFor(req, text),
		Metrics:    providers.MetricsSince(start),
	}, nil
}

// ConverseStream returns a stream replaying the fragments.
func (p *Provider) ConverseStream(ctx context.Context, req *providers.ConverseRequest) (providers.EventStream, error) {
	p.record(req)
	if p.cfg.FailOpen {
		return nil, p.failure()
	}

	frags := p.fragments(req)
	events := make([]providers.Event, 0, len(frags)+3)
	events = append(events, providers.StartEvent(providers.RoleAssistant))
	for i, f := range frags {
		events = append(events, providers.DeltaEvent(i, f))
	}

	s := &stream{
		provider: p,
		events:   events,
		start:    time.Now(),
		req:      req,
		text:     strings.Join(frags, ""),
	}
	if p.cfg.FailAfter > 0 {
		// messageStart plus FailAfter deltas, then the error
		s.failAt = 1 + p.cfg.FailAfter
	}
	return s, nil
}

type stream struct {
	provider *Provider
	events   []providers.Event
	pos      int
	failAt   int
	start    time.Time
	req      *providers.ConverseRequest
	text     string
	tail     bool
	done     bool

	once sync.Once
}

func (s *stream) Recv(ctx context.Context) (providers.Event, error) {
	if s.done {
		return providers.Event{}, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return providers.Event{}, err
	}
	if s.failAt > 0 && s.pos == s.failAt {
		s.done = true
		return providers.Event{}, s.provider.failure()
	}

	if s.pos < len(s.events) {
		ev := s.events[s.pos]
		s.pos++
		if ev.ContentBlockDelta != nil && s.provider.cfg.Delay > 0 {
			select {
			case <-time.After(s.provider.cfg.Delay):
			case <-ctx.Done():
				return providers.Event{}, ctx.Err()
			}
		}
		return ev, nil
	}

	if !s.tail {
		s.tail = true
		s.events = append(s.events,
			providers.StopEvent(providers.StopReasonEndTurn),
			providers.MetadataOf(usageFor(s.req, s.text), providers.MetricsSince(s.start)),
		)
		return s.Recv(ctx)
	}

	s.done = true
	return providers.Event{}, io.EOF
}

func (s *stream) Close() error {
	s.once.Do(func() {
		s.done = true
		s.provider.mu.Lock()
		s.provider.closed++
		s.provider.mu.Unlock()
	})
	return nil
}

// usageFor approximates token counts by whitespace-separated words.
func usageFor(req *providers.ConverseRequest, out string) providers.Usage {
	in := 0
	for _, m := range req.Messages {
		in += len(strings.Fields(m.Text()))
	}
	o := len(strings.Fields(out))
	return providers.Usage{InputTokens: in, OutputTokens: o, TotalTokens: in + o}
}
