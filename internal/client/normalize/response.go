// Package normalize collapses the backend's inconsistent reply shapes into a
// single Response value. It is the only place that knows where the backend
// hides status codes, messages and envelopes.
package normalize

import (
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/smartaccess/internal/client/transport"
)

// Kind is the normalized outcome of a call.
type Kind int

const (
	KindSuccess Kind = iota
	KindAPIError
	// KindParseWarning is a success whose body could not be decoded.
	KindParseWarning
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindAPIError:
		return "api_error"
	case KindParseWarning:
		return "parse_warning"
	default:
		return "unknown"
	}
}

// Response is the unified result handed to every caller.
type Response struct {
	Kind       Kind
	HTTPStatus int

	// Payload is the decoded body with one "data" envelope removed, or a data
	// URL for image bodies. Nil for empty results.
	Payload any
	// Body is the decoded document before unwrapping. Token extraction needs
	// to look at both levels.
	Body any

	// Code and Message are set for KindAPIError. Code is the embedded code,
	// the HTTP status, or a transport kind (TIMEOUT, NETWORK, CANCELLED).
	Code    string
	Message string

	// Note explains a KindParseWarning.
	Note string
	// ImageType is the content type of an image payload.
	ImageType string
}

// OK reports whether the server-side operation is presumed to have succeeded.
func (r Response) OK() bool {
	return r.Kind == KindSuccess || r.Kind == KindParseWarning
}

// Ambiguous reports whether the outcome is unknown because no response was
// received. Callers must not assume a write failed in that case.
func (r Response) Ambiguous() bool {
	if r.Kind != KindAPIError {
		return false
	}
	switch transport.ErrorKind(r.Code) {
	case transport.KindTimeout, transport.KindNetwork, transport.KindCancelled:
		return true
	}
	return false
}

// StatusCode returns Code as an integer, or 0 when it is not numeric.
func (r Response) StatusCode() int {
	n, err := strconv.Atoi(r.Code)
	if err != nil {
		return 0
	}
	return n
}

// Err returns an *APIError for KindAPIError and nil otherwise.
func (r Response) Err() error {
	if r.Kind != KindAPIError {
		return nil
	}
	return &APIError{HTTPStatus: r.HTTPStatus, Code: r.Code, Message: r.Message}
}

// PayloadMap returns Payload as a JSON object, or nil.
func (r Response) PayloadMap() map[string]any {
	m, _ := r.Payload.(map[string]any)
	return m
}

// BodyMap returns Body as a JSON object, or nil.
func (r Response) BodyMap() map[string]any {
	m, _ := r.Body.(map[string]any)
	return m
}

// APIError is a deterministic rejection by the server, or one synthesized
// from an undecodable non-2xx reply or a transport failure.
type APIError struct {
	HTTPStatus int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error %s", e.Code)
	}
	return fmt.Sprintf("api error %s: %s", e.Code, e.Message)
}
