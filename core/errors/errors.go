package errors

import (
	stderrors "errors"
	"fmt"
)

type ErrorCode string

const (
	ErrInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrInvalidRequestData ErrorCode = "INVALID_REQUEST_DATA"
	ErrUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrForbidden          ErrorCode = "FORBIDDEN"
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrAlreadyExists      ErrorCode = "ALREADY_EXISTS"
	ErrInternalServer     ErrorCode = "INTERNAL_SERVER_ERROR"

	// Sync domain codes
	ErrPermissionDenied   ErrorCode = "CALENDAR_PERMISSION_DENIED"
	ErrPreconditionFailed ErrorCode = "PRECONDITION_FAILED"
	ErrSyncInProgress     ErrorCode = "SYNC_IN_PROGRESS"
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

// IsCode reports whether err is (or wraps) an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	if stderrors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// IsNotFound distinguishes a vanished resource from other failures. The
// export pipeline only drops and recreates a mapping on this kind; every
// other update failure propagates as a transient error.
func IsNotFound(err error) bool {
	return IsCode(err, ErrNotFound)
}

func IsPermissionDenied(err error) bool {
	return IsCode(err, ErrPermissionDenied)
}

func IsSyncInProgress(err error) bool {
	return IsCode(err, ErrSyncInProgress)
}
