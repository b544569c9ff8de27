package types

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeAuthorization  ErrorType = "authorization"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeConflict       ErrorType = "conflict"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeInternal       ErrorType = "internal"
)

// Error represents a structured error in the MediBridge backend
type Error struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Type == ErrorTypeNotFound
}

// IsConflict reports whether err is a uniqueness-conflict error
func IsConflict(err error) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Type == ErrorTypeConflict
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string, details map[string]interface{}) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(code, message string) *Error {
	return &Error{
		Type:    ErrorTypeAuthentication,
		Code:    code,
		Message: message,
	}
}

// NewAuthorizationError creates a new authorization error
func NewAuthorizationError(code, message string) *Error {
	return &Error{
		Type:    ErrorTypeAuthorization,
		Code:    code,
		Message: message,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code, message string) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(code, message string) *Error {
	return &Error{
		Type:    ErrorTypeConflict,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(code, message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error codes
const (
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeMissingToken    = "MISSING_TOKEN"
	ErrCodeInvalidToken    = "INVALID_TOKEN"
	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeUnverifiedEmail = "UNVERIFIED_EMAIL"
	ErrCodeUserNotFound    = "USER_NOT_FOUND"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)
