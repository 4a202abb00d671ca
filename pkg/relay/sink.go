package relay

import (
	"context"
	"io"
	"net/http"
	"sync"
)

// LineSink writes each event as one NDJSON line and flushes after every
// line when the writer supports it.
type LineSink struct {
	w       io.Writer
	flusher http.Flusher
	onClose func() error

	mu     sync.Mutex
	closed bool
}

// NewLineSink creates a sink over w. If w implements http.Flusher each line
// is flushed. onClose may be nil.
func NewLineSink(w io.Writer, onClose func() error) *LineSink {
	s := &LineSink{w: w, onClose: onClose}
	if f, ok := w.(http.Flusher); ok {
		s.flusher = f
	}
	return s
}

// Send writes ev.
func (s *LineSink) Send(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := Encode(ev)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return io.ErrClosedPipe
	}
	if _, err := s.w.Write(line); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// Close marks the sink closed and runs onClose once.
func (s *LineSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.onClose != nil {
		return s.onClose()
	}
	return nil
}

// RecordingSink keeps every event in memory.
type RecordingSink struct {
	mu     sync.Mutex
	events []Event
	closes int

	// FailAt makes the n-th Send (1-based) return Err; 0 disables
	FailAt int
	Err    error
}

// Send records ev.
func (s *RecordingSink) Send(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAt > 0 && len(s.events)+1 == s.FailAt {
		return s.Err
	}
	s.events = append(s.events, ev)
	return nil
}

// Close counts closes.
func (s *RecordingSink) Close() error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	return nil
}

// Events returns the recorded events.
func (s *RecordingSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Closes returns how many times Close was called.
func (s *RecordingSink) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}
