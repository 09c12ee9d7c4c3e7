package apperrs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so handlers can map it to an HTTP status and
// clients get a stable machine-readable category.
type Kind string

const (
	KindRequest   Kind = "request_error"
	KindAuth      Kind = "auth_error"
	KindProvider  Kind = "provider_error"
	KindMediaTool Kind = "media_tool_error"
	KindNotFound  Kind = "not_found"
	KindInternal  Kind = "internal_error"
)

// Error carries a category, a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Request(format string, args ...interface{}) *Error {
	return &Error{Kind: KindRequest, Message: fmt.Sprintf(format, args...)}
}

func Auth(msg string, err error) *Error {
	return &Error{Kind: KindAuth, Message: msg, Err: err}
}

func Provider(msg string, err error) *Error {
	return &Error{Kind: KindProvider, Message: msg, Err: err}
}

func MediaTool(msg string, err error) *Error {
	return &Error{Kind: KindMediaTool, Message: msg, Err: err}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf extracts the category from an error chain, defaulting to internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the client-safe message for an error chain. Unclassified
// errors get a generic message; the full chain is only ever logged.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "an unexpected error occurred"
}

// HTTPStatus maps a category to its response status.
func HTTPStatus(k Kind) int {
	switch k {
	case KindRequest:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindProvider, KindMediaTool, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
