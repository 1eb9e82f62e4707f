// Package transport performs single HTTP calls against the smartaccess
// backend.
//
// A call is described by an immutable RequestDescriptor and yields either a
// RawResult (any HTTP status, body fully read) or an *Error whose Kind is one
// of TIMEOUT, NETWORK or CANCELLED. The transport never retries.
//
// Every request carries Content-Type and Accept set to application/json and
// an X-Request-ID. Privileged requests additionally carry the headers of the
// configured HeaderSource, read at send time, so a token installed a moment
// ago applies to the very next call.
package transport
