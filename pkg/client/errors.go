package client

import (
	"errors"
	"fmt"
	"time"
)

// ErrSubmissionInFlight is returned by Submit while a previous submission
// of the same session has not settled.
var ErrSubmissionInFlight = errors.New("a submission is already in flight")

// AuthError reports that credentials could not be acquired. It is fatal to
// the current submission.
type AuthError struct {
	Source string
	Cause  error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("failed to acquire %s credentials: %v", e.Source, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// ConnectionTimeoutError is returned when a WebSocket does not open within
// the handshake timeout.
type ConnectionTimeoutError struct {
	URL     string
	Timeout time.Duration
}

// Error implements the error interface.
func (e *ConnectionTimeoutError) Error() string {
	return fmt.Sprintf("websocket %s did not open within %s", e.URL, e.Timeout)
}

// ConnectionLostError is returned when an open WebSocket closes without a
// normal closure.
type ConnectionLostError struct {
	Code int
}

// Error implements the error interface.
func (e *ConnectionLostError) Error() string {
	return fmt.Sprintf("websocket closed unexpectedly (code %d)", e.Code)
}

// ReplyTimeoutError is returned when an open WebSocket delivers no frame
// within the reply timeout.
type ReplyTimeoutError struct {
	Timeout time.Duration
}

// Error implements the error interface.
func (e *ReplyTimeoutError) Error() string {
	return fmt.Sprintf("no reply within %s", e.Timeout)
}

// StreamError is returned when the server ends a stream with an error event
// or an error frame.
type StreamError struct {
	Kind    string
	Message string
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("server reported an error: %s", e.Message)
	}
	return fmt.Sprintf("server reported an error: %s: %s", e.Kind, e.Message)
}

// StatusError is returned for a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}
