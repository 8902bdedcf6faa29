package llm

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	// KindTransport covers connection failures, non-2xx responses, and
	// mid-stream read errors.
	KindTransport ErrorKind = "transport"
	// KindMalformedFrame marks a frame that could not be decoded. These are
	// absorbed (logged and skipped) and never surface as a request failure.
	KindMalformedFrame ErrorKind = "malformed_frame"
	// KindUnknownProvider is returned by New before any network I/O.
	KindUnknownProvider ErrorKind = "unknown_provider"
	// KindEmptyResponse means the stream ended without a command resolving.
	KindEmptyResponse ErrorKind = "empty_response"
	// KindProvider is an error the provider reported inside the stream.
	KindProvider ErrorKind = "provider"
	// KindOverflow means the response body exceeded the size cap.
	KindOverflow ErrorKind = "overflow"
)

// errInvalidJSON marks a frame payload that is not valid JSON.
var errInvalidJSON = errors.New("invalid JSON payload")

// Error is the classified failure type shared by the whole request path.
type Error struct {
	Provider   string
	Kind       ErrorKind
	HTTPStatus int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	switch {
	case e.Provider != "" && e.HTTPStatus != 0:
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Provider, msg, e.HTTPStatus)
	case e.Provider != "":
		return fmt.Sprintf("%s: %s", e.Provider, msg)
	default:
		return msg
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// AsError unwraps err into an *Error if one is anywhere in its chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind ErrorKind) bool {
	if e, ok := AsError(err); ok {
		return e.Kind == kind
	}
	return false
}
