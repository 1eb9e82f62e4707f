// Package stubapi is an in-process stand-in for the smart-access backend. It
// serves the auth, profile and QR endpoints and can be switched between the
// reply shapes the real backend is known to produce, so the client can be
// exercised end to end without it.
package stubapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/smartaccess/internal/logging"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Login reply shapes.
const (
	// LoginFlat: {"token": T, "user": U}
	LoginFlat = "flat"
	// LoginEnvelope: {"code": 200, "msg": "ok", "data": {"access_token": T, "user": U}}
	LoginEnvelope = "envelope"
	// LoginNested: {"user": {..., "token": T}}
	LoginNested = "nested"
)

// Status reply shapes.
const (
	// StatusUser: {"user": U}
	StatusUser = "user"
	// StatusEnvelope: {"code": 200, "data": {"user": U}} with isVerified as a string
	StatusEnvelope = "envelope"
	// StatusFlat: U
	StatusFlat = "flat"
)

// QR reply formats.
const (
	QRImage = "png"
	QRJSON  = "json"
)

type Options struct {
	Secret   []byte
	TokenTTL time.Duration

	LoginShape  string
	StatusShape string
	QRFormat    string

	// VerifyAfter is the number of status checks that report a new resident
	// as unverified before they become verified.
	VerifyAfter int
	// StatusFailures makes the first N status checks fail with a 503 and an
	// HTML body.
	StatusFailures int

	Logger logging.Logger
}

type Server struct {
	opts Options
	log  logging.Logger
	e    *echo.Echo

	mu             sync.Mutex
	accounts       map[string]*account
	byEmail        map[string]string
	revoked        map[string]struct{}
	statusFailures int
}

func New(opts Options) *Server {
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("smartaccess-stub-secret")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.LoginShape == "" {
		opts.LoginShape = LoginFlat
	}
	if opts.StatusShape == "" {
		opts.StatusShape = StatusUser
	}
	if opts.QRFormat == "" {
		opts.QRFormat = QRImage
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	s := &Server{
		opts:           opts,
		log:            opts.Logger.With("component", "stubapi"),
		accounts:       make(map[string]*account),
		byEmail:        make(map[string]string),
		revoked:        make(map[string]struct{}),
		statusFailures: opts.StatusFailures,
	}
	s.e = s.newEcho()
	return s
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.log.Info(c.Request().Context(), "request",
				"method", v.Method, "uri", v.URI, "status", v.Status,
				"latency", v.Latency, "request_id", v.RequestID)
			return nil
		},
	}))

	e.POST("/auth/register", s.register)
	e.POST("/auth/login", s.login)

	e.GET("/auth/status", s.status, s.requireAuth)
	e.POST("/auth/logout", s.logout, s.requireAuth)
	e.PATCH("/users/:id", s.updateUser, s.requireAuth)
	e.POST("/middleware/qr_code", s.qrCode, s.requireAuth)

	return e
}

// Handler exposes the routes, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start listens on addr until Shutdown. It returns http.ErrServerClosed after
// a clean shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info(context.Background(), "stub backend listening", "addr", addr)
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// Verify marks the resident with email as verified.
func (s *Server) Verify(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return false
	}
	s.accounts[id].Verified = true
	return true
}
