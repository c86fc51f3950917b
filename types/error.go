package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unified error code across the service.
type ErrorCode string

// Generic error codes
const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrForbidden          ErrorCode = "FORBIDDEN"
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrConflict           ErrorCode = "CONFLICT"
	ErrPayloadTooLarge    ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrRateLimit          ErrorCode = "RATE_LIMIT"
	ErrTimeout            ErrorCode = "TIMEOUT"
	ErrUpstreamError      ErrorCode = "UPSTREAM_ERROR"
	ErrInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// Team domain error codes
const (
	ErrTeamNotFound            ErrorCode = "TEAM_NOT_FOUND"
	ErrExecutionNotFound       ErrorCode = "EXECUTION_NOT_FOUND"
	ErrAgentNotFound           ErrorCode = "AGENT_NOT_FOUND"
	ErrTemplateNotFound        ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrEvaluationNotFound      ErrorCode = "EVALUATION_NOT_FOUND"
	ErrInvalidConfig           ErrorCode = "INVALID_CONFIG"
	ErrUnsupportedFormat       ErrorCode = "UNSUPPORTED_FORMAT"
	ErrRoutingFailed           ErrorCode = "ROUTING_FAILED"
	ErrExecutionNotCancellable ErrorCode = "EXECUTION_NOT_CANCELLABLE"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithDetails attaches a human readable detail string.
func (e *Error) WithDetails(details string) *Error {
	e.Details = details
	return e
}

// Status returns the HTTP status for the error, deriving it from the code
// when none was set explicitly.
func (e *Error) Status() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return HTTPStatusForCode(e.Code)
}

// =============================================================================
// Constructors
// =============================================================================

// NewInvalidRequestError creates an INVALID_REQUEST error.
func NewInvalidRequestError(message string) *Error {
	return NewError(ErrInvalidRequest, message).WithHTTPStatus(http.StatusBadRequest)
}

// NewNotFoundError creates a not-found error for the given resource kind.
func NewNotFoundError(kind, id string) *Error {
	code := ErrNotFound
	switch kind {
	case "team":
		code = ErrTeamNotFound
	case "execution":
		code = ErrExecutionNotFound
	case "agent":
		code = ErrAgentNotFound
	case "template":
		code = ErrTemplateNotFound
	case "evaluation":
		code = ErrEvaluationNotFound
	}
	return NewError(code, fmt.Sprintf("%s not found: %s", kind, id)).WithHTTPStatus(http.StatusNotFound)
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(message string, cause error) *Error {
	return NewError(ErrInternalError, message).WithCause(cause).WithHTTPStatus(http.StatusInternalServerError)
}

// =============================================================================
// Helpers
// =============================================================================

// AsError extracts a *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// HTTPStatusForCode maps an error code to its HTTP status.
func HTTPStatusForCode(code ErrorCode) int {
	switch code {
	case ErrInvalidRequest, ErrInvalidConfig, ErrUnsupportedFormat:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound, ErrTeamNotFound, ErrExecutionNotFound, ErrAgentNotFound,
		ErrTemplateNotFound, ErrEvaluationNotFound:
		return http.StatusNotFound
	case ErrConflict, ErrExecutionNotCancellable:
		return http.StatusConflict
	case ErrPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrRateLimit:
		return http.StatusTooManyRequests
	case ErrUpstreamError, ErrRoutingFailed:
		return http.StatusBadGateway
	case ErrServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
