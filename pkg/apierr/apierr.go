package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Type categorizes an API error for consistent handling by callers.
type Type string

const (
	Network      Type = "network"
	AuthExpired  Type = "auth_expired"
	Unauthorized Type = "unauthorized"
	Forbidden    Type = "forbidden"
	Validation   Type = "validation"
	Server       Type = "server"
)

// Error is a normalized error returned by the HTTP layer.
type Error struct {
	Type       Type
	Message    string
	StatusCode int    // zero when no response was received
	Details    string // server-provided error body, if any
	Err        error  // optional underlying error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a new API Error.
func New(t Type, msg string, err error) *Error { return &Error{Type: t, Message: msg, Err: err} }

// FromStatus normalizes a non-2xx HTTP status and response body into an Error.
func FromStatus(status int, body string) *Error {
	e := &Error{
		Message:    http.StatusText(status),
		StatusCode: status,
		Details:    body,
	}
	switch {
	case status == http.StatusUnauthorized:
		e.Type = Unauthorized
	case status == http.StatusForbidden:
		e.Type = Forbidden
	case status >= 400 && status < 500:
		e.Type = Validation
	default:
		e.Type = Server
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("unexpected HTTP status %d", status)
	}
	return e
}

// IsType reports whether err is (or wraps) an Error of the given type.
func IsType(err error, t Type) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}
