// Package apperr defines the error taxonomy shared by the store, the room
// actors, and the HTTP layer. Every failure that crosses a package boundary
// carries one of these codes so callers can branch on kind instead of
// matching message strings.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error.
type Code string

const (
	CodeNotFound         Code = "NOT_FOUND"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeAlreadyExists    Code = "ALREADY_EXISTS"
	CodeUnavailable      Code = "UNAVAILABLE"
	CodeInternal         Code = "INTERNAL"
)

// Error is a coded error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches errors by code, so sentinel-style checks like
// errors.Is(err, apperr.NotFound("")) work regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus maps the code to an HTTP response status.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeAlreadyExists:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf returns the code carried by err, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a message to err, preserving an existing code.
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}
	code := CodeInternal
	var e *Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return &Error{Code: code, Message: message, Cause: err}
}

func Wrapf(err error, format string, args ...any) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps err under a specific code, overriding any code it
// already carries.
func WrapWithCode(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

func NotFound(message string) *Error { return New(CodeNotFound, message) }

func NotFoundf(format string, args ...any) *Error { return Newf(CodeNotFound, format, args...) }

func PermissionDenied(message string) *Error { return New(CodePermissionDenied, message) }

func Unauthenticated(message string) *Error { return New(CodeUnauthenticated, message) }

func InvalidArgument(message string) *Error { return New(CodeInvalidArgument, message) }

func AlreadyExists(message string) *Error { return New(CodeAlreadyExists, message) }

func Unavailable(message string) *Error { return New(CodeUnavailable, message) }

func Internal(message string) *Error { return New(CodeInternal, message) }
