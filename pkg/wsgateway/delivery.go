package wsgateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Delivery defaults.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 100 * time.Millisecond
)

// DeliveryError reports a push that failed on every attempt for a reason
// other than the peer being gone.
type DeliveryError struct {
	ConnectionID string
	Attempts     int
	Cause        error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver to connection %s after %d attempts: %v", e.ConnectionID, e.Attempts, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// DeliveryOptions configures a Delivery.
type DeliveryOptions struct {
	// MaxAttempts bounds attempts per message; DefaultMaxAttempts when zero
	MaxAttempts int

	// BaseDelay is the wait after the first failed attempt. The wait after
	// attempt n is n*BaseDelay.
	BaseDelay time.Duration

	// OnRetry is called before each wait.
	OnRetry func(connectionID string, attempt int, err error, wait time.Duration)

	// OnFinish is called once per Send with the returned error.
	OnFinish func(connectionID string, attempts int, err error)
}

// Delivery pushes messages to one peer at a time with a liveness check
// before each attempt and bounded linear retries. A gone peer stops
// retries immediately.
type Delivery struct {
	pusher Pusher
	opts   DeliveryOptions
	logger *slog.Logger
}

// NewDelivery creates a Delivery over pusher.
func NewDelivery(pusher Pusher, opts DeliveryOptions) *Delivery {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	return &Delivery{
		pusher: pusher,
		opts:   opts,
		logger: slog.Default().With("component", "wsgateway.delivery"),
	}
}

// Send delivers data to connectionID through the gateway at endpoint. It
// returns a GoneError when the peer has disconnected and a DeliveryError
// when every attempt failed otherwise.
func (d *Delivery) Send(ctx context.Context, endpoint, connectionID string, data []byte) error {
	attempts, err := d.send(ctx, endpoint, connectionID, data)
	if d.opts.OnFinish != nil {
		d.opts.OnFinish(connectionID, attempts, err)
	}
	return err
}

func (d *Delivery) send(ctx context.Context, endpoint, connectionID string, data []byte) (int, error) {
	attempts := 0
	op := func() (struct{}, error) {
		attempts++
		if _, err := d.pusher.GetConnection(ctx, endpoint, connectionID); err != nil {
			return struct{}{}, classify(err)
		}
		if err := d.pusher.PostToConnection(ctx, endpoint, connectionID, data); err != nil {
			return struct{}{}, classify(err)
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(&linearBackOff{base: d.opts.BaseDelay}),
		backoff.WithMaxTries(uint(d.opts.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			d.logger.Debug("push failed, retrying",
				"connection_id", connectionID,
				"attempt", attempts,
				"wait", wait,
				"error", err,
			)
			if d.opts.OnRetry != nil {
				d.opts.OnRetry(connectionID, attempts, err, wait)
			}
		}),
	)
	if err == nil {
		return attempts, nil
	}

	var gone *GoneError
	if errors.As(err, &gone) {
		return attempts, gone
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return attempts, err
	}
	return attempts, &DeliveryError{ConnectionID: connectionID, Attempts: attempts, Cause: err}
}

func classify(err error) error {
	if IsGone(err) {
		return backoff.Permanent(err)
	}
	return err
}

// linearBackOff waits n*base after the n-th failed attempt.
type linearBackOff struct {
	base    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.base
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}
