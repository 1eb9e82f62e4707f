// Package tokenstore holds the bearer token of the current session in
// process memory. It is the only shared mutable auth state: request builders
// read it, the session controller alone writes it.
package tokenstore

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/smartaccess/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

type Store struct {
	mu    sync.RWMutex
	token string
}

func New() *Store {
	return &Store{}
}

// Set installs token. Blank tokens are treated as Clear.
func (s *Store) Set(token string) {
	token = strings.TrimSpace(token)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

func (s *Store) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Headers returns the Authorization header for the current token, or an empty
// header set when there is none. A fresh map is returned on every call.
func (s *Store) Headers() http.Header {
	h := http.Header{}
	if token, ok := s.Get(); ok {
		h.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	return h
}

// Claims is what the client can learn from a JWT bearer token without the
// signing key. It never grants access; the server decides.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry before now.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Claims parses the current token as an unverified JWT. Opaque tokens return
// common.ErrNotJWT, no token returns common.ErrNoSession.
func (s *Store) Claims() (Claims, error) {
	token, ok := s.Get()
	if !ok {
		return Claims{}, common.ErrNoSession
	}

	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &rc); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", common.ErrNotJWT, err)
	}

	c := Claims{Subject: rc.Subject}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	return c, nil
}
