// Package common defines shared constants and sentinel errors used across
// the smartaccess client layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Session-level errors.
	ErrNoSession      = errors.New("no active session")
	ErrNoToken        = errors.New("server accepted credentials but issued no token")
	ErrStaleSession   = errors.New("session changed while the request was in flight")
	ErrorUnauthorized = errors.New("unauthorized")

	// Token inspection errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrNotJWT       = errors.New("token is not a JWT")

	// Local persistence errors.
	ErrorNotFound            = errors.New("not found")
	ErrLocalDataNotAvailable = errors.New("local data unavailable")
)
