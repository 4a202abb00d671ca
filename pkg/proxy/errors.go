package proxy

import (
	"errors"

	"mercator-hq/chatrelay/pkg/proxy/types"
)

// RequestError is a client error found while reading the request.
type RequestError struct {
	Message string
	Code    string
	Status  int
	Cause   error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for error chain support.
func (e *RequestError) Unwrap() error {
	return e.Cause
}

// HandleError converts an error to the response body sent to the client.
// Request errors keep their message; everything else, model failures
// included, becomes the generic 500.
func HandleError(err error) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return types.NewErrorResponse(reqErr.Status, reqErr.Message, reqErr.Code)
	}
	return types.NewServerError()
}
