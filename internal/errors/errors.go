// Package errors defines AppError, the error every layer returns when the
// failure has to reach a client. An AppError carries a stable code and the
// HTTP status that code maps to; the message is safe to show to users and
// any underlying cause stays behind Unwrap.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Codes sent in the "code" field of error responses.
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodePersistence     = "PERSISTENCE_ERROR"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS"
)

var statusByCode = map[string]int{
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodePersistence:     http.StatusInternalServerError,
	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeForbidden:       http.StatusForbidden,
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeTooManyRequests: http.StatusTooManyRequests,
}

// StatusFor returns the HTTP status for code. Unknown codes are 500.
func StatusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// AppError is a client-facing failure. Error returns only Message; Err is
// kept for logs and errors.Is.
type AppError struct {
	Code       string
	Message    string
	StatusCode int
	Err        error
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Err }

// WithError attaches the underlying cause and returns e.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// NewAppError builds an AppError with an explicit status, for the rare
// response that does not follow StatusFor.
func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusCode}
}

func newError(code, message string) *AppError {
	return NewAppError(code, message, StatusFor(code))
}

// ValidationError reports malformed, missing or out-of-range input.
func ValidationError(message string) *AppError { return newError(ErrCodeValidation, message) }

// AddValidationError reports a single bad field as
// "Invalid field '<field>': <reason>".
func AddValidationError(field, reason string) *AppError {
	return ValidationError(fmt.Sprintf("Invalid field '%s': %s", field, reason))
}

// NotFoundError reports an operation that targeted a nonexistent item.
func NotFoundError(message string) *AppError { return newError(ErrCodeNotFound, message) }

// PersistenceError reports a failed storage operation. The surrounding
// transaction has been rolled back by the time callers see it.
func PersistenceError(message string) *AppError { return newError(ErrCodePersistence, message) }

// UnauthorizedError means the request carried no usable token.
func UnauthorizedError(message string) *AppError { return newError(ErrCodeUnauthorized, message) }

// ForbiddenError means the token is valid but its role is not allowed.
func ForbiddenError(message string) *AppError { return newError(ErrCodeForbidden, message) }

func InternalError(message string) *AppError { return newError(ErrCodeInternal, message) }

func TooManyRequestsError(message string) *AppError {
	return newError(ErrCodeTooManyRequests, message)
}

// IsAppError finds the first AppError in err's chain.
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code string) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Code == code
}
