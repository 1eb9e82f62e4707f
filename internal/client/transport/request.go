package transport

import (
	"net/http"
	"time"
)

// RequestDescriptor describes one outbound call. It is passed by value and
// never modified by the transport.
type RequestDescriptor struct {
	Method string
	Path   string
	// Route is the metrics label for Path; defaults to Path. Use it to keep
	// IDs out of label values ("/users/{id}").
	Route string
	// Body is JSON-encoded when non-nil.
	Body any
	// Headers are applied last and override everything else.
	Headers http.Header
	// Timeout overrides the transport default when positive.
	Timeout time.Duration
	// Privileged requests carry the HeaderSource headers and are refused
	// when they would go out without an Authorization header.
	Privileged bool
}

// RawResult is a completed HTTP exchange. Any status code is a RawResult;
// interpreting it is the normalizer's job.
type RawResult struct {
	HTTPStatus  int
	Header      http.Header
	Body        []byte
	ContentType string
}

// HeaderSource supplies per-request headers, typically the bearer token.
type HeaderSource interface {
	Headers() http.Header
}

func (d RequestDescriptor) route() string {
	if d.Route != "" {
		return d.Route
	}
	return d.Path
}
