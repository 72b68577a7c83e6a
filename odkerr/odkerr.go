// Package odkerr defines the single error type surfaced by the go-odk-central
// library. Every failure, from bad config through authentication and HTTP
// error statuses to malformed responses, is reported as an *Error carrying a
// Kind, so callers can branch on errors.Is against the kind sentinels without
// depending on internal packages.
package odkerr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind int

const (
	// KindConfig indicates a missing, unreadable, or invalid config file.
	KindConfig Kind = iota + 1
	// KindCache indicates an unexpected session cache I/O or parse failure.
	// A missing cache file is not an error and never produces this kind.
	KindCache
	// KindAuth indicates a failed login, or a request that remained
	// unauthorized after the single re-login retry.
	KindAuth
	// KindRequest indicates a transport-level failure (DNS, connection
	// refused, timeout) before any HTTP status was received.
	KindRequest
	// KindAPI indicates the server returned an HTTP error status (>= 400).
	KindAPI
	// KindValidation indicates a required identifier was neither passed
	// explicitly nor available as a configured default. Raised before any
	// network I/O.
	KindValidation
	// KindResponseShape indicates the response body could not be decoded
	// into the expected record type.
	KindResponseShape
)

// String returns a short name for the kind, used in error messages.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindCache:
		return "cache"
	case KindAuth:
		return "auth"
	case KindRequest:
		return "request"
	case KindAPI:
		return "api"
	case KindValidation:
		return "validation"
	case KindResponseShape:
		return "response shape"
	default:
		return "unknown"
	}
}

// Kind sentinels for use with errors.Is. They carry no message of their own;
// matching is by kind only.
var (
	ErrConfig        = &Error{Kind: KindConfig}
	ErrCache         = &Error{Kind: KindCache}
	ErrAuth          = &Error{Kind: KindAuth}
	ErrRequest       = &Error{Kind: KindRequest}
	ErrAPI           = &Error{Kind: KindAPI}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrResponseShape = &Error{Kind: KindResponseShape}
)

// Error is the public error type of the library.
type Error struct {
	Kind    Kind
	Message string

	// StatusCode and Body are set for KindAPI (and for KindAuth errors that
	// originate from an HTTP response), for diagnostics.
	StatusCode int
	Body       []byte

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("odk: %s error: %s", e.Kind, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind, making the kind
// sentinels above usable with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// CentralCode extracts the Central problem code from the error response body,
// if present. Central error bodies look like {"code": 401.2, "message": ...}
// (per central-backend lib/util/problem.js). Returns an empty string when the
// body is absent or not in that shape.
func (e *Error) CentralCode() string {
	if len(e.Body) == 0 {
		return ""
	}
	dec := json.NewDecoder(bytes.NewReader(e.Body))
	dec.UseNumber()
	var detail map[string]any
	if err := dec.Decode(&detail); err != nil {
		return ""
	}
	switch code := detail["code"].(type) {
	case json.Number:
		return code.String()
	case string:
		return code
	default:
		return ""
	}
}

// New creates an *Error with the given kind and formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind and message, wrapping err.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}
