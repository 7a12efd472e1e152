package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType categorizes application errors so the HTTP layer can map them to
// status codes without inspecting messages.
type ErrorType string

const (
	TypeValidation   ErrorType = "validation"
	TypeNotFound     ErrorType = "not_found"
	TypeUnauthorized ErrorType = "unauthorized"
	TypeForbidden    ErrorType = "forbidden"
	TypeConflict     ErrorType = "conflict"
	TypeExternal     ErrorType = "external"
	TypeInternal     ErrorType = "internal"
)

// Error is a structured application error carrying a type, a safe public
// message, and an optional wrapped cause.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error type to an HTTP status code.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeNotFound:
		return http.StatusNotFound
	case TypeUnauthorized:
		return http.StatusUnauthorized
	case TypeForbidden:
		return http.StatusForbidden
	case TypeConflict:
		return http.StatusConflict
	case TypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Validation(message string) *Error {
	return &Error{Type: TypeValidation, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Type: TypeNotFound, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Type: TypeUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Type: TypeForbidden, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Type: TypeConflict, Message: message}
}

func External(message string, err error) *Error {
	return &Error{Type: TypeExternal, Message: message, Err: err}
}

func Internal(message string, err error) *Error {
	return &Error{Type: TypeInternal, Message: message, Err: err}
}

// As unwraps err into an *Error if possible.
func As(err error) (*Error, bool) {
	var appErr *Error
	ok := errors.As(err, &appErr)
	return appErr, ok
}
