package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies a transport-level failure.
type ErrorKind string

const (
	KindTimeout   ErrorKind = "TIMEOUT"
	KindNetwork   ErrorKind = "NETWORK"
	KindCancelled ErrorKind = "CANCELLED"
)

// Error is returned by Send when no HTTP response could be obtained.
// It never implies the server-side operation failed.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the transport kind of err, if err is (or wraps) an *Error.
func KindOf(err error) (ErrorKind, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}

// classify maps an error from http.Client.Do or a body read to a kind.
// parent is the caller context, call the derived context with the timeout.
func classify(parent, call context.Context, err error) *Error {
	switch {
	case errors.Is(parent.Err(), context.Canceled):
		return &Error{Kind: KindCancelled, Err: err}
	case errors.Is(parent.Err(), context.DeadlineExceeded),
		errors.Is(call.Err(), context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Err: err}
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindNetwork, Err: err}
}
