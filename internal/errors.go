package internal

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeMissingParameter ErrorCode = "MISSING_PARAMETER"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"

	ErrCodeNotAMember              ErrorCode = "NOT_A_MEMBER"
	ErrCodeInsufficientPermissions ErrorCode = "INSUFFICIENT_PERMISSIONS"
	ErrCodeRoleHierarchy           ErrorCode = "ROLE_HIERARCHY_VIOLATION"
	ErrCodeProtectedRole           ErrorCode = "PROTECTED_ROLE"

	ErrCodeUserNotFound     ErrorCode = "USER_NOT_FOUND"
	ErrCodeServerNotFound   ErrorCode = "SERVER_NOT_FOUND"
	ErrCodeChannelNotFound  ErrorCode = "CHANNEL_NOT_FOUND"
	ErrCodeRoleNotFound     ErrorCode = "ROLE_NOT_FOUND"
	ErrCodeMessageNotFound  ErrorCode = "MESSAGE_NOT_FOUND"
	ErrCodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	ErrCodeAlreadyMember    ErrorCode = "ALREADY_A_MEMBER"
	ErrCodeInviteRequired   ErrorCode = "INVITE_REQUIRED"
	ErrCodeInvalidOverride  ErrorCode = "INVALID_OVERRIDE"
	ErrCodeInvalidPresence  ErrorCode = "INVALID_PRESENCE_STATUS"
	ErrCodeNotMessageAuthor ErrorCode = "NOT_MESSAGE_AUTHOR"
)

// AppError is the single domain error shape. It is created at the point of
// detection and translated into the wire envelope exactly once, at the
// transport boundary. Cause is for server-side logs only and never reaches
// the client.
type AppError struct {
	Type       ErrorType `json:"type"`
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// The constructors take an optional ErrorCode; without one the generic code
// for the error type is used. Callers that clients dispatch on pass a
// specific code, everything else stays terse.
func newAppError(t ErrorType, status int, message string, fallback ErrorCode, code []ErrorCode) *AppError {
	c := fallback
	if len(code) > 0 {
		c = code[0]
	}
	return &AppError{
		Type:       t,
		Code:       c,
		Message:    message,
		StatusCode: status,
	}
}

func NewValidationError(message string, code ...ErrorCode) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, message, ErrCodeValidationFailed, code)
}

func NewNotFoundError(message string, code ...ErrorCode) *AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, message, "NOT_FOUND", code)
}

func NewUnauthorizedError(message string, code ...ErrorCode) *AppError {
	return newAppError(ErrorTypeUnauthorized, http.StatusUnauthorized, message, "UNAUTHORIZED", code)
}

func NewForbiddenError(message string, code ...ErrorCode) *AppError {
	return newAppError(ErrorTypeForbidden, http.StatusForbidden, message, "FORBIDDEN", code)
}

func NewConflictError(message string, code ...ErrorCode) *AppError {
	return newAppError(ErrorTypeConflict, http.StatusConflict, message, ErrCodeAlreadyExists, code)
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

var (
	ErrInvalidCredentials = NewUnauthorizedError("invalid username or password", ErrCodeInvalidCredentials)
	ErrInvalidToken       = NewUnauthorizedError("invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("token has expired", ErrCodeTokenExpired)

	ErrNotAMember              = NewForbiddenError("you are not a member of this server", ErrCodeNotAMember)
	ErrInsufficientPermissions = NewForbiddenError("insufficient permissions", ErrCodeInsufficientPermissions)
	ErrRoleHierarchy           = NewForbiddenError("cannot act on a role with equal or higher position", ErrCodeRoleHierarchy)
	ErrProtectedRole           = NewForbiddenError("this role cannot be modified", ErrCodeProtectedRole)

	ErrUserNotFound    = NewNotFoundError("user not found", ErrCodeUserNotFound)
	ErrServerNotFound  = NewNotFoundError("server not found", ErrCodeServerNotFound)
	ErrChannelNotFound = NewNotFoundError("channel not found", ErrCodeChannelNotFound)
	ErrRoleNotFound    = NewNotFoundError("role not found", ErrCodeRoleNotFound)
	ErrMessageNotFound = NewNotFoundError("message not found", ErrCodeMessageNotFound)

	ErrAlreadyMember  = NewConflictError("you are already a member of this server", ErrCodeAlreadyMember)
	ErrInviteRequired = NewForbiddenError("an invite is required to join this server", ErrCodeInviteRequired)
)

// AsAppError unwraps err into an *AppError, or converts it into a generic
// internal error so that unexpected failures never leak detail to clients.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError("internal server error").WithCause(err)
}
