package errors

import "fmt"

type ErrorCode string

const (
	ErrInternalServer             ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrInvalidInput               ErrorCode = "INVALID_INPUT"
	ErrInvalidRequestData         ErrorCode = "INVALID_REQUEST_DATA"
	ErrUnauthorized               ErrorCode = "UNAUTHORIZED"
	ErrForbidden                  ErrorCode = "FORBIDDEN"
	ErrNotFound                   ErrorCode = "NOT_FOUND"
	ErrAlreadyExists              ErrorCode = "ALREADY_EXISTS"
	ErrTokenExpired               ErrorCode = "TOKEN_EXPIRED"
	ErrInvalidTokenFormat         ErrorCode = "INVALID_TOKEN_FORMAT"
	ErrMissingAuthorizationHeader ErrorCode = "MISSING_AUTHORIZATION_HEADER"

	// Sync engine error codes
	ErrUserNotFound         ErrorCode = "USER_NOT_FOUND"
	ErrTokenRefreshFailed   ErrorCode = "TOKEN_REFRESH_FAILED"
	ErrWebhookNotConfigured ErrorCode = "WEBHOOK_NOT_CONFIGURED"
	ErrInsertReturnedNoID   ErrorCode = "INSERT_RETURNED_NO_ID"
	ErrCursorExpired        ErrorCode = "CURSOR_EXPIRED"
)

// AppError carries an application error code alongside the wrapped cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	ae, ok := err.(*AppError)
	return ok && ae.Code == code
}

// CodeOf returns the error code of err, or ErrInternalServer for plain errors.
func CodeOf(err error) ErrorCode {
	if ae, ok := err.(*AppError); ok {
		return ae.Code
	}
	return ErrInternalServer
}
