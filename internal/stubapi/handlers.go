package stubapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/smartaccess/internal/common"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	ctxKeyUserID  = "user_id"
	ctxKeyTokenID = "token_id"
)

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type qrRequest struct {
	Type         string `json:"type"`
	GuestName    string `json:"guestName"`
	ValidMinutes int    `json:"validMinutes"`
}

// register answers 201 with a data envelope, 422 with a validation map, or
// an embedded 409 inside a 200 for a taken email.
func (s *Server) register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	problems := map[string][]string{}
	if req.Email == "" {
		problems["email"] = []string{"email is required"}
	}
	if req.Password == "" {
		problems["password"] = []string{"password is required"}
	}
	if len(problems) > 0 {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{"message": problems})
	}

	s.mu.Lock()
	if _, taken := s.byEmail[req.Email]; taken {
		s.mu.Unlock()
		return c.JSON(http.StatusOK, map[string]any{"code": 409, "msg": "email is already registered"})
	}
	a := &account{
		ID:        uuid.NewString(),
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	}
	a.setPassword(req.Password)
	s.accounts[a.ID] = a
	s.byEmail[a.Email] = a.ID
	view := a.view(false)
	s.mu.Unlock()

	token, err := IssueToken(a.ID, s.opts.Secret, s.opts.TokenTTL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"code": 201,
		"data": map[string]any{"token": token, "user": view},
	})
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	s.mu.Lock()
	var a *account
	if id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(req.Email))]; ok {
		a = s.accounts[id]
	}
	if a == nil || !a.checkPassword(req.Password) {
		s.mu.Unlock()
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid email or password"})
	}
	view := a.view(false)
	s.mu.Unlock()

	token, err := IssueToken(a.ID, s.opts.Secret, s.opts.TokenTTL)
	if err != nil {
		return err
	}

	switch s.opts.LoginShape {
	case LoginEnvelope:
		return c.JSON(http.StatusOK, map[string]any{
			"code": 200,
			"msg":  "ok",
			"data": map[string]any{"access_token": token, "user": view},
		})
	case LoginNested:
		view["token"] = token
		return c.JSON(http.StatusOK, map[string]any{"user": view})
	default:
		return c.JSON(http.StatusOK, map[string]any{"token": token, "user": view})
	}
}

func (s *Server) status(c echo.Context) error {
	s.mu.Lock()
	if s.statusFailures > 0 {
		s.statusFailures--
		s.mu.Unlock()
		return c.HTML(http.StatusServiceUnavailable, "<html><body>Service Unavailable</body></html>")
	}

	a, ok := s.accounts[c.Get(ctxKeyUserID).(string)]
	if !ok {
		s.mu.Unlock()
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "unknown user"})
	}
	if a.statusChecks >= s.opts.VerifyAfter {
		a.Verified = true
	}
	a.statusChecks++
	envelope := s.opts.StatusShape == StatusEnvelope
	view := a.view(envelope)
	s.mu.Unlock()

	switch s.opts.StatusShape {
	case StatusEnvelope:
		return c.JSON(http.StatusOK, map[string]any{"code": 200, "data": map[string]any{"user": view}})
	case StatusFlat:
		return c.JSON(http.StatusOK, view)
	default:
		return c.JSON(http.StatusOK, map[string]any{"user": view})
	}
}

func (s *Server) logout(c echo.Context) error {
	s.mu.Lock()
	s.revoked[c.Get(ctxKeyTokenID).(string)] = struct{}{}
	s.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}

// updateUser applies a partial update to the caller's own record and
// answers with the user inside a data envelope.
func (s *Server) updateUser(c echo.Context) error {
	if c.Param("id") != c.Get(ctxKeyUserID).(string) {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "you can only update your own profile"})
	}

	var fields map[string]any
	if err := c.Bind(&fields); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	s.mu.Lock()
	a, ok := s.accounts[c.Param("id")]
	if !ok {
		s.mu.Unlock()
		return c.JSON(http.StatusNotFound, map[string]string{"message": "user not found"})
	}
	for key, v := range fields {
		str, isString := v.(string)
		if !isString {
			continue
		}
		switch key {
		case "firstName", "first_name":
			a.FirstName = str
		case "lastName", "last_name":
			a.LastName = str
		case "phone":
			a.Phone = str
		case "bio":
			a.Bio = str
		}
	}
	view := a.view(false)
	s.mu.Unlock()

	return c.JSON(http.StatusOK, map[string]any{"message": "profile updated", "data": view})
}

func (s *Server) qrCode(c echo.Context) error {
	var req qrRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Type == "" {
		return c.JSON(http.StatusOK, map[string]any{"code": 422, "message": "type is required"})
	}
	if req.ValidMinutes <= 0 {
		req.ValidMinutes = 60
	}

	code := uuid.NewString()
	if s.opts.QRFormat == QRJSON {
		return c.JSON(http.StatusCreated, map[string]any{
			"code": 201,
			"data": map[string]any{
				"code":      code,
				"type":      req.Type,
				"expiresAt": time.Now().Add(time.Duration(req.ValidMinutes) * time.Minute).UTC().Format(time.RFC3339),
			},
		})
	}

	img, err := renderCode([]byte(code))
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "image/png", img)
}

// requireAuth accepts only a valid, unrevoked bearer token.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(common.AuthorizationHeaderName)
		if !strings.HasPrefix(header, common.BearerPrefix) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"message": "authentication required"})
		}

		claims, err := ParseToken(strings.TrimPrefix(header, common.BearerPrefix), s.opts.Secret)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, common.ErrTokenExpired) {
				msg = "token expired"
			}
			return c.JSON(http.StatusUnauthorized, map[string]string{"message": msg})
		}

		s.mu.Lock()
		_, revoked := s.revoked[claims.ID]
		s.mu.Unlock()
		if revoked {
			return c.JSON(http.StatusUnauthorized, map[string]string{"message": "session has ended"})
		}

		c.Set(ctxKeyUserID, claims.Subject)
		c.Set(ctxKeyTokenID, claims.ID)
		return next(c)
	}
}
