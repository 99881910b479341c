package lmstfy

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a client error so callers can tell "my input was
// wrong" apart from "the service or the call failed".
type ErrorKind string

const (
	// KindParameter is a precondition violation detected before any request.
	KindParameter ErrorKind = "parameter"

	// KindProtocol is an unexpected status code or an undecodable response.
	KindProtocol ErrorKind = "protocol"

	// KindTransport is a connection, timeout or I/O failure below HTTP.
	KindTransport ErrorKind = "transport"
)

// Sentinel errors for use with errors.Is.
var (
	ErrInvalidParameter = errors.New("lmstfy: invalid parameter")
	ErrUnexpectedStatus = errors.New("lmstfy: unexpected response status")
	ErrTransport        = errors.New("lmstfy: transport failure")
	ErrNotFound         = errors.New("lmstfy: not found")
	ErrUnauthorized     = errors.New("lmstfy: unauthorized")
)

// Error is the structured error returned by every Client operation.
// It supports errors.Is and errors.As.
type Error struct {
	// Kind tells which layer rejected the call.
	Kind ErrorKind

	// Op is the client operation that failed, e.g. "publish".
	Op string

	// StatusCode is the HTTP status for protocol errors, 0 otherwise.
	StatusCode int

	// Reason is a human-readable description. For protocol errors it is
	// the server-provided message when one could be decoded.
	Reason string

	// RequestID is the X-Request-ID the request was sent with.
	RequestID string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("lmstfy: %s: %s", e.Op, e.Reason)
	if e.Kind == KindProtocol && e.Err == nil {
		msg = fmt.Sprintf("lmstfy: %s: got bad response code %d: %s", e.Op, e.StatusCode, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.RequestID != "" {
		msg += fmt.Sprintf(" (request_id=%s)", e.RequestID)
	}
	return msg
}

// Is enables errors.Is matching against the sentinel errors.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidParameter:
		return e.Kind == KindParameter
	case ErrUnexpectedStatus:
		return e.Kind == KindProtocol
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrNotFound:
		return e.Kind == KindProtocol && e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.Kind == KindProtocol && e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func paramError(op, format string, args ...any) error {
	return &Error{Kind: KindParameter, Op: op, Reason: fmt.Sprintf(format, args...)}
}

func protocolError(op string, status int, reason, requestID string) error {
	return &Error{Kind: KindProtocol, Op: op, StatusCode: status, Reason: reason, RequestID: requestID}
}

func transportError(op, requestID string, err error) error {
	return &Error{Kind: KindTransport, Op: op, Reason: "request failed", RequestID: requestID, Err: err}
}

// IsParameterError reports whether err was raised by local validation.
func IsParameterError(err error) bool {
	return errors.Is(err, ErrInvalidParameter)
}

// IsProtocolError reports whether err carries an unexpected server response.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrUnexpectedStatus)
}

// IsTransportError reports whether err is a network-level failure.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrTransport)
}

// StatusCode extracts the HTTP status from a protocol error, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}
