package types

import "net/http"

// ErrorResponse is the JSON body of every HTTP error answered by the relay.
// Details of model failures are logged, never returned.
type ErrorResponse struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`

	// Status is the HTTP status the response is sent with.
	Status int `json:"-"`
}

// Error code constants.
const (
	CodeInvalidJSON     = "invalid_json"
	CodeRequestTooLarge = "request_too_large"
	CodeInternalError   = "internal_error"
	CodeTimeout         = "timeout"
	CodeUnavailable     = "unavailable"
	CodeUnauthorized    = "unauthorized"
)

// InternalServerErrorMessage is the body message of every 500 response.
const InternalServerErrorMessage = "Internal server error"

// NewErrorResponse creates an error response.
func NewErrorResponse(status int, message, code string) *ErrorResponse {
	return &ErrorResponse{Message: message, Code: code, Status: status}
}

// NewInvalidRequestError creates an error response for invalid requests (400).
func NewInvalidRequestError(message, code string) *ErrorResponse {
	return NewErrorResponse(http.StatusBadRequest, message, code)
}

// NewRequestTooLargeError creates an error response for oversized bodies (413).
func NewRequestTooLargeError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusRequestEntityTooLarge, message, CodeRequestTooLarge)
}

// NewServerError creates the generic internal server error response (500).
func NewServerError() *ErrorResponse {
	return NewErrorResponse(http.StatusInternalServerError, InternalServerErrorMessage, CodeInternalError)
}

// NewServiceUnavailableError creates an error response for temporary unavailability (503).
func NewServiceUnavailableError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusServiceUnavailable, message, CodeUnavailable)
}

// NewGatewayTimeoutError creates an error response for timeouts (504).
func NewGatewayTimeoutError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusGatewayTimeout, message, CodeTimeout)
}

// HTTPStatusCode returns the status the response is sent with, 500 when
// unset.
func (e *ErrorResponse) HTTPStatusCode() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}
