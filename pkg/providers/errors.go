package providers

import (
	"errors"
	"fmt"
)

// ModelInvocationError represents a failed model call, at open time or
// mid-stream. The cause is kept for logging; clients only ever see a
// generic message.
type ModelInvocationError struct {
	// Provider is the name of the adapter that failed
	Provider string

	// ModelID is the model that was invoked
	ModelID string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *ModelInvocationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to invoke model %q via %q: %v", e.ModelID, e.Provider, e.Cause)
	}
	return fmt.Sprintf("failed to invoke model %q via %q", e.ModelID, e.Provider)
}

// Unwrap returns the underlying error for error chain support.
func (e *ModelInvocationError) Unwrap() error {
	return e.Cause
}

// AuthError represents a credential rejection by the model backend.
type AuthError struct {
	// Provider is the name of the adapter that rejected authentication
	Provider string

	// Message is the error message from the backend
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("provider %q authentication failed: %s", e.Provider, e.Message)
}

// StreamError represents an error that occurred while reading a stream.
type StreamError struct {
	// Provider is the name of the adapter where the error occurred
	Provider string

	// Message is the error message
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider %q stream error: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("provider %q stream error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *StreamError) Unwrap() error {
	return e.Cause
}

// ConfigError represents an adapter configuration error.
type ConfigError struct {
	// Provider is the name of the adapter with invalid configuration
	Provider string

	// Field is the configuration field that is invalid
	Field string

	// Message describes the configuration error
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q configuration error for field %q: %s",
		e.Provider, e.Field, e.Message)
}

// ErrStreamClosed is returned by Recv after Close.
var ErrStreamClosed = errors.New("stream closed")

// IsModelInvocationError reports whether err is or wraps a ModelInvocationError.
func IsModelInvocationError(err error) bool {
	var target *ModelInvocationError
	return errors.As(err, &target)
}
