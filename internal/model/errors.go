package model

import (
	"fmt"
	"net/http"
	"time"
)

// Stable error codes returned on the wire. Clients match on these, not on
// messages or HTTP statuses.
const (
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeValidation        = "VALIDATION_ERROR"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeInvalidKey        = "INVALID_KEY"
	CodeExpiredKey        = "EXPIRED_KEY"
	CodeBadRequest        = "BAD_REQUEST"
	CodeConflict          = "CONFLICT"
	CodeInternal          = "INTERNAL_ERROR"
)

// APIError is the typed error that flows from any middleware stage or handler
// straight to the response envelope and the audit log.
type APIError struct {
	Code    string
	Message string
	Details any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HTTPStatus maps the error code to its HTTP status. Unknown codes map to 500.
func (e *APIError) HTTPStatus() int {
	switch e.Code {
	case CodeUnauthorized, CodeInvalidKey, CodeExpiredKey:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Envelope renders the error as the standard wire envelope.
func (e *APIError) Envelope() ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:      e.Code,
			Message:   e.Message,
			Details:   e.Details,
			Timestamp: time.Now().UTC(),
		},
	}
}

func ErrUnauthorized(message string) *APIError {
	return &APIError{Code: CodeUnauthorized, Message: message}
}

func ErrForbidden(message string) *APIError {
	return &APIError{Code: CodeForbidden, Message: message}
}

func ErrNotFoundf(format string, args ...any) *APIError {
	return &APIError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// ErrValidation carries the full list of field errors in Details.
func ErrValidation(details any) *APIError {
	return &APIError{Code: CodeValidation, Message: "request validation failed", Details: details}
}

// ErrRateLimited carries the limit and the end of the window that caused the
// rejection, so well-behaved clients can back off precisely.
func ErrRateLimited(limit int, resetAt time.Time) *APIError {
	return &APIError{
		Code:    CodeRateLimitExceeded,
		Message: "rate limit exceeded",
		Details: map[string]any{
			"limit":    limit,
			"reset_at": resetAt.Unix(),
		},
	}
}

func ErrInvalidKey() *APIError {
	return &APIError{Code: CodeInvalidKey, Message: "invalid API key"}
}

func ErrExpiredKey() *APIError {
	return &APIError{Code: CodeExpiredKey, Message: "API key has expired"}
}

func ErrBadRequest(message string) *APIError {
	return &APIError{Code: CodeBadRequest, Message: message}
}

func ErrConflict(message string) *APIError {
	return &APIError{Code: CodeConflict, Message: message}
}

// ErrInternal returns the generic 500 error. The real cause is logged
// internally and never leaks to the caller.
func ErrInternal() *APIError {
	return &APIError{Code: CodeInternal, Message: "internal server error"}
}
