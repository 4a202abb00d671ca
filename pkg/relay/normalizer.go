package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"mercator-hq/chatrelay/pkg/providers"
)

// Sink receives the wire events of one relay invocation, in order.
type Sink interface {
	// Send delivers one event. An error stops the relay.
	Send(ctx context.Context, ev Event) error

	// Close ends the downstream channel. It is called exactly once, on
	// every exit path.
	Close() error
}

// Opener opens the provider stream for one invocation.
type Opener func(ctx context.Context) (providers.EventStream, error)

// Observer receives relay outcomes, typically for metrics.
type Observer interface {
	ChunkRelayed(transport string, size int)
	RelayFinished(transport string, outcome Outcome, duration time.Duration)
}

// Outcome classifies how a relay ended.
type Outcome string

// Relay outcomes
const (
	OutcomeComplete      Outcome = "complete"
	OutcomeModelError    Outcome = "model_error"
	OutcomeDeliveryError Outcome = "delivery_error"
)

// Options configures a Normalizer.
type Options struct {
	// Transport labels logs and metrics ("unary", "stream", "websocket")
	Transport string

	// EmitMetadata reports whether metadata events are forwarded. It is
	// consulted per invocation so it can follow configuration reloads.
	EmitMetadata func() bool

	// Observer is optional
	Observer Observer
}

// Result summarizes one relay invocation.
type Result struct {
	Chunks   int
	Bytes    int
	Outcome  Outcome
	Duration time.Duration
}

// Normalizer converts provider event streams into wire events.
type Normalizer struct {
	opts Options
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts Options) *Normalizer {
	if opts.EmitMetadata == nil {
		opts.EmitMetadata = func() bool { return false }
	}
	return &Normalizer{opts: opts}
}

// Relay opens the provider stream and forwards it to sink:
//
//   - every text delta with non-empty text becomes one Chunk
//   - messageStart and messageStop are only logged
//   - metadata becomes a Metadata event when enabled
//   - a failure to open or read the stream produces exactly one ErrorEvent
//     and ends the relay
//
// The provider stream and the sink are closed on every exit path. The
// returned error is the model failure or the first sink failure; in the
// latter case no further events are sent.
func (n *Normalizer) Relay(ctx context.Context, open Opener, sink Sink) (res Result, err error) {
	start := time.Now()
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			slog.DebugContext(ctx, "sink close failed", "transport", n.opts.Transport, "error", cerr)
		}
		res.Duration = time.Since(start)
		if n.opts.Observer != nil {
			n.opts.Observer.RelayFinished(n.opts.Transport, res.Outcome, res.Duration)
		}
		slog.InfoContext(ctx, "relay finished",
			"transport", n.opts.Transport,
			"outcome", res.Outcome,
			"chunks", res.Chunks,
			"bytes", res.Bytes,
			"duration", res.Duration,
		)
	}()

	stream, err := open(ctx)
	if err != nil {
		res.Outcome = OutcomeModelError
		return res, n.fail(ctx, sink, err)
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			slog.DebugContext(ctx, "provider stream close failed", "error", cerr)
		}
	}()

	emitMetadata := n.opts.EmitMetadata()

	for {
		ev, err := stream.Recv(ctx)
		if errors.Is(err, io.EOF) {
			res.Outcome = OutcomeComplete
			return res, nil
		}
		if err != nil {
			res.Outcome = OutcomeModelError
			return res, n.fail(ctx, sink, err)
		}

		switch {
		case ev.MessageStart != nil:
			slog.DebugContext(ctx, "message started", "role", ev.MessageStart.Role)

		case ev.ContentBlockDelta != nil:
			text := ev.DeltaText()
			if text == "" {
				continue
			}
			if err := sink.Send(ctx, Chunk{Content: text}); err != nil {
				res.Outcome = OutcomeDeliveryError
				return res, &SinkError{Event: TypeChunk, Cause: err}
			}
			res.Chunks++
			res.Bytes += len(text)
			if n.opts.Observer != nil {
				n.opts.Observer.ChunkRelayed(n.opts.Transport, len(text))
			}

		case ev.MessageStop != nil:
			slog.DebugContext(ctx, "message stopped", "stop_reason", ev.MessageStop.StopReason)

		case ev.Metadata != nil:
			slog.DebugContext(ctx, "stream metadata", "usage", ev.Metadata.Usage, "metrics", ev.Metadata.Metrics)
			if !emitMetadata {
				continue
			}
			md := Metadata{Usage: ev.Metadata.Usage, Metrics: ev.Metadata.Metrics}
			if err := sink.Send(ctx, md); err != nil {
				res.Outcome = OutcomeDeliveryError
				return res, &SinkError{Event: TypeMetadata, Cause: err}
			}
		}
	}
}

// fail sends the single terminating ErrorEvent and returns cause.
func (n *Normalizer) fail(ctx context.Context, sink Sink, cause error) error {
	slog.ErrorContext(ctx, "relay failed",
		"transport", n.opts.Transport,
		"error", cause,
	)
	if err := sink.Send(ctx, ErrorFor(cause)); err != nil {
		slog.WarnContext(ctx, "failed to deliver error event",
			"transport", n.opts.Transport,
			"error", err,
		)
		return errors.Join(cause, &SinkError{Event: TypeError, Cause: err})
	}
	return cause
}

// ErrorFor builds the ErrorEvent for a relay failure. Model failures are
// reported without their provider detail.
func ErrorFor(err error) ErrorEvent {
	msg := "Failed to invoke model"
	if !providers.IsModelInvocationError(err) {
		msg = err.Error()
	}
	return ErrorEvent{Kind: ErrorKindProcessing, Message: msg}
}
