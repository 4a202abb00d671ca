package relay

import (
	"errors"
	"fmt"
)

var errMissingType = errors.New("missing type field")

// MalformedLineError is returned by Decode for a line that is not a valid
// wire event. Consumers log it and skip the line.
type MalformedLineError struct {
	Line  string
	Cause error
}

// Error implements the error interface.
func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("malformed wire line %q: %v", truncate(e.Line, 120), e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *MalformedLineError) Unwrap() error {
	return e.Cause
}

// UnknownEventError is returned by Decode for a well-formed line with an
// unrecognized type tag.
type UnknownEventError struct {
	Type string
}

// Error implements the error interface.
func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("unknown wire event type %q", e.Type)
}

// SinkError reports a failure to deliver an event downstream. The relay
// stops at the first one.
type SinkError struct {
	Event EventType
	Cause error
}

// Error implements the error interface.
func (e *SinkError) Error() string {
	return fmt.Sprintf("failed to deliver %s event: %v", e.Event, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *SinkError) Unwrap() error {
	return e.Cause
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
