package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrUnauthorized indicates a missing, malformed, forged or expired credential.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden indicates an authenticated caller without the required role.
var ErrForbidden = errors.New("forbidden")

// ErrInternal indicates an unexpected failure (store, hashing, signing).
var ErrInternal = errors.New("internal error")

// ErrUnavailable indicates an optional integration that is not configured.
var ErrUnavailable = errors.New("service unavailable")

var (
	// ErrInvalidCredentials is returned for both unknown emails and wrong passwords.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthorized)

	// ErrTokenInvalidOrExpired covers unknown, expired and already consumed reset tokens alike.
	ErrTokenInvalidOrExpired = fmt.Errorf("token invalid or expired: %w", ErrValidation)

	ErrEmailTaken    = fmt.Errorf("email already registered: %w", ErrDuplicate)
	ErrUsernameTaken = fmt.Errorf("username already taken: %w", ErrDuplicate)
)

// AppError carries the status code and client-safe message for an error.
// Err is kept for errors.Is/As and server-side logging only.
type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewValidationError creates a 400 error wrapping ErrValidation.
func NewValidationError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, message, ErrValidation)
}

// NewUnauthorizedError creates a 401 error wrapping ErrUnauthorized.
func NewUnauthorizedError(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, message, ErrUnauthorized)
}

// NewForbiddenError creates a 403 error wrapping ErrForbidden.
func NewForbiddenError(message string) *AppError {
	return NewAppError(http.StatusForbidden, message, ErrForbidden)
}

// NewNotFoundError creates a 404 error wrapping ErrNotFound.
func NewNotFoundError(message string) *AppError {
	return NewAppError(http.StatusNotFound, message, ErrNotFound)
}

// NewConflictError creates a 409 error wrapping the given duplicate cause.
func NewConflictError(message string, cause error) *AppError {
	if cause == nil {
		cause = ErrDuplicate
	}
	return NewAppError(http.StatusConflict, message, cause)
}

// NewInternalServerError creates a 500 error. The cause is never sent to clients.
func NewInternalServerError(message string, cause error) *AppError {
	if cause == nil {
		cause = ErrInternal
	}
	return NewAppError(http.StatusInternalServerError, message, cause)
}

// HTTPStatus maps any error chain onto the status code taxonomy.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message that may be shown to a client.
// Anything that is not an AppError collapses to a generic message.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" && appErr.Code < http.StatusInternalServerError {
		return appErr.Message
	}
	switch HTTPStatus(err) {
	case http.StatusBadRequest:
		return "Invalid request"
	case http.StatusUnauthorized:
		return "Unauthorized"
	case http.StatusForbidden:
		return "Access denied"
	case http.StatusNotFound:
		return "Resource not found"
	case http.StatusConflict:
		return "Resource already exists"
	case http.StatusServiceUnavailable:
		return "Service unavailable"
	default:
		return "Internal server error"
	}
}
