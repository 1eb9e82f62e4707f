package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/smartaccess/internal/client/models"
	"github.com/dmitrijs2005/smartaccess/internal/client/normalize"
	"github.com/dmitrijs2005/smartaccess/internal/client/tokenstore"
	"github.com/dmitrijs2005/smartaccess/internal/client/transport"
	"github.com/dmitrijs2005/smartaccess/internal/common"
	"github.com/dmitrijs2005/smartaccess/internal/logging"
	"golang.org/x/sync/singleflight"
)

const (
	PathRegister = "/auth/register"
	PathLogin    = "/auth/login"
	PathStatus   = "/auth/status"
	PathLogout   = "/auth/logout"
	PathUsers    = "/users/"
	PathQRCode   = "/middleware/qr_code"
)

const remoteLogoutTimeout = 5 * time.Second

// Sender is the transport as seen by the controller.
type Sender interface {
	Send(ctx context.Context, d transport.RequestDescriptor) (*transport.RawResult, error)
}

type SignUpRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type QRRequest struct {
	Type         string `json:"type"`
	GuestName    string `json:"guestName,omitempty"`
	ValidMinutes int    `json:"validMinutes,omitempty"`
}

// Controller drives the session state machine. It is the only writer of the
// token store. All methods are safe for concurrent use.
type Controller struct {
	sender       Sender
	tokens       *tokenstore.Store
	store        Persister
	log          logging.Logger
	remoteLogout bool
	onState      func(from, to State)
	now          func() time.Time

	group singleflight.Group
	bg    sync.WaitGroup

	// persistMu orders writes to the persister against Logout.
	persistMu sync.Mutex

	mu         sync.Mutex
	state      State
	session    models.Session
	generation uint64
}

func New(sender Sender, tokens *tokenstore.Store, opts ...Option) *Controller {
	c := &Controller{
		sender: sender,
		tokens: tokens,
		log:    logging.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Clone()
}

// IsVerified reports the last server-reported verification flag.
func (c *Controller) IsVerified() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.User != nil && c.session.User.IsVerified
}

// Wait blocks until background work started by Logout has finished.
func (c *Controller) Wait() {
	c.bg.Wait()
}

// SignIn posts credentials and installs the returned token. A reply without a
// token leaves the session anonymous and yields common.ErrNoToken.
func (c *Controller) SignIn(ctx context.Context, email, password string) (normalize.Response, error) {
	d := transport.RequestDescriptor{
		Method: http.MethodPost,
		Path:   PathLogin,
		Body:   map[string]string{"email": email, "password": password},
	}
	resp, err := c.authenticate(ctx, d)
	if err != nil {
		c.log.Warn(ctx, "sign in failed", "error", err)
		return resp, err
	}
	return resp, nil
}

// SignUp registers a new resident. When the reply carries a token the session
// is authenticated and confirmed with a status check whose failure is only
// logged.
func (c *Controller) SignUp(ctx context.Context, req SignUpRequest) (normalize.Response, error) {
	d := transport.RequestDescriptor{
		Method: http.MethodPost,
		Path:   PathRegister,
		Body:   req,
	}
	resp, err := c.authenticate(ctx, d)
	switch {
	case errors.Is(err, common.ErrNoToken):
		c.log.Info(ctx, "registered without a session token", "email", req.Email)
		return resp, nil
	case err != nil:
		c.log.Warn(ctx, "sign up failed", "error", err)
		return resp, err
	}

	if _, err := c.CheckStatus(ctx); err != nil {
		c.log.Warn(ctx, "status check after sign up failed", "error", err)
	}
	return resp, nil
}

func (c *Controller) authenticate(ctx context.Context, d transport.RequestDescriptor) (normalize.Response, error) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.setState(StateAuthenticating)
	c.mu.Unlock()

	raw, err := c.sender.Send(ctx, d)
	resp := normalize.Normalize(raw, err, normalize.Expect{})

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return resp, common.ErrStaleSession
	}

	if !resp.OK() {
		c.resetLocked()
		c.setState(StateAuthError)
		c.setState(StateAnonymous)
		c.mu.Unlock()
		c.clearStored(ctx, gen)
		return resp, resp.Err()
	}

	token := extractToken(resp.BodyMap())
	if token == "" {
		c.resetLocked()
		c.setState(StateAnonymous)
		c.mu.Unlock()
		c.clearStored(ctx, gen)
		return resp, common.ErrNoToken
	}

	c.tokens.Set(token)
	user := models.UserRecord{}
	user.Merge(extractUser(resp.BodyMap()))
	user.Token = token
	c.session = models.Session{Token: token, User: &user}
	c.setState(StateAuthenticated)
	snap := c.session.Clone()
	c.mu.Unlock()

	c.logClaims(ctx)
	c.persist(ctx, gen, snap)
	return resp, nil
}

// CheckStatus refreshes the user record from the status endpoint. Failures
// are logged and leave the session untouched; the returned error is only set
// for a missing session or a reply that arrived after a logout. Concurrent
// calls for the same session share one request.
func (c *Controller) CheckStatus(ctx context.Context) (normalize.Response, error) {
	c.mu.Lock()
	gen := c.generation
	authed := c.session.IsAuthenticated()
	c.mu.Unlock()
	if !authed {
		return normalize.Response{}, common.ErrNoSession
	}

	key := "status:" + strconv.FormatUint(gen, 10)
	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.checkStatus(ctx, gen)
	})
	resp, _ := v.(normalize.Response)
	return resp, err
}

func (c *Controller) checkStatus(ctx context.Context, gen uint64) (normalize.Response, error) {
	resp, err := c.call(ctx, transport.RequestDescriptor{
		Method:     http.MethodGet,
		Path:       PathStatus,
		Privileged: true,
	})
	if err != nil {
		return resp, err
	}
	if !resp.OK() {
		c.log.Warn(ctx, "status check failed", "code", resp.Code, "message", resp.Message)
		return resp, nil
	}

	snap, err := c.mergeUser(gen, resp)
	if err != nil {
		c.log.Debug(ctx, "discarding status reply", "error", err)
		return resp, err
	}
	c.persist(ctx, gen, snap)
	return resp, nil
}

// UpdateProfile sends a partial update of the user and merges the reply. An
// empty userID means the id of the signed-in user.
func (c *Controller) UpdateProfile(ctx context.Context, userID string, fields map[string]any) (normalize.Response, error) {
	c.mu.Lock()
	gen := c.generation
	authed := c.session.IsAuthenticated()
	if userID == "" && c.session.User != nil {
		userID = c.session.User.ID
	}
	c.mu.Unlock()
	if !authed {
		return normalize.Response{}, common.ErrNoSession
	}
	if userID == "" {
		return normalize.Response{}, ErrUnknownUser
	}

	resp, err := c.call(ctx, transport.RequestDescriptor{
		Method:     http.MethodPatch,
		Path:       PathUsers + url.PathEscape(userID),
		Route:      PathUsers + "{id}",
		Body:       fields,
		Privileged: true,
	})
	if err != nil {
		return resp, err
	}
	if !resp.OK() {
		return resp, resp.Err()
	}

	snap, err := c.mergeUser(gen, resp)
	if err != nil {
		return resp, err
	}
	c.persist(ctx, gen, snap)
	return resp, nil
}

// GenerateQR asks the access middleware for an entry code. The reply is
// either an image, surfaced as a data URL, or a JSON document.
func (c *Controller) GenerateQR(ctx context.Context, req QRRequest) (normalize.Response, error) {
	c.mu.Lock()
	authed := c.session.IsAuthenticated()
	c.mu.Unlock()
	if !authed {
		return normalize.Response{}, common.ErrNoSession
	}

	resp, err := c.call(ctx, transport.RequestDescriptor{
		Method:     http.MethodPost,
		Path:       PathQRCode,
		Body:       req,
		Privileged: true,
	})
	if err != nil {
		return resp, err
	}
	if !resp.OK() {
		return resp, resp.Err()
	}
	return resp, nil
}

// Logout drops the session at once. It never waits for the network; when
// remote logout is enabled the backend is told in the background.
func (c *Controller) Logout(ctx context.Context) {
	old := c.drop(ctx)
	if !c.remoteLogout || old == "" {
		return
	}

	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		c.notifyLogout(context.WithoutCancel(ctx), old)
	}()
}

// Restore reinstalls a persisted session and confirms it with a status check.
// It reports whether a session is active afterwards. A 401 on that check or
// an expired token drops the stored session and returns
// common.ErrorUnauthorized.
func (c *Controller) Restore(ctx context.Context) (bool, error) {
	if c.store == nil {
		return false, nil
	}

	s, ok, err := c.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}
	if !ok || !s.IsAuthenticated() {
		return false, nil
	}

	c.mu.Lock()
	c.generation++
	c.tokens.Set(s.Token)
	c.session = s.Clone()
	if c.session.User == nil {
		c.session.User = &models.UserRecord{}
	}
	c.session.User.Token = s.Token
	c.setState(StateAuthenticated)
	c.mu.Unlock()

	if claims, err := c.tokens.Claims(); err == nil && claims.Expired(c.now()) {
		c.log.Info(ctx, "stored session token has expired", "subject", claims.Subject)
		c.drop(ctx)
		return false, common.ErrorUnauthorized
	}

	resp, err := c.CheckStatus(ctx)
	if err != nil {
		return false, err
	}
	if resp.Kind == normalize.KindAPIError && resp.StatusCode() == http.StatusUnauthorized {
		c.log.Info(ctx, "stored session rejected by server")
		c.drop(ctx)
		return false, common.ErrorUnauthorized
	}

	if snap := c.Snapshot(); snap.User != nil {
		c.log.Info(ctx, "session restored", "user_id", snap.User.ID)
	}
	return true, nil
}

// call sends d and normalizes the reply. Only a refused privileged request
// is returned as an error.
func (c *Controller) call(ctx context.Context, d transport.RequestDescriptor) (normalize.Response, error) {
	raw, err := c.sender.Send(ctx, d)
	if errors.Is(err, common.ErrNoSession) {
		return normalize.Response{}, err
	}
	return normalize.Normalize(raw, err, normalize.Expect{}), nil
}

func (c *Controller) mergeUser(gen uint64, resp normalize.Response) (models.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || !c.session.IsAuthenticated() {
		return models.Session{}, common.ErrStaleSession
	}

	user := models.UserRecord{}
	if c.session.User != nil {
		user = *c.session.User
	}
	user.Merge(extractUser(resp.BodyMap()))
	user.Token = c.session.Token
	c.session.User = &user

	return c.session.Clone(), nil
}

// drop clears the session, the token store and the persisted copy, and
// returns the token that was in use.
func (c *Controller) drop(ctx context.Context) string {
	c.mu.Lock()
	old := c.session.Token
	c.resetLocked()
	c.generation++
	gen := c.generation
	c.setState(StateAnonymous)
	c.mu.Unlock()

	c.clearStored(ctx, gen)
	return old
}

// clearStored removes the persisted session unless the session has moved on
// since gen, so it never erases a newer sign-in.
func (c *Controller) clearStored(ctx context.Context, gen uint64) {
	if c.store == nil {
		return
	}
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	current := c.generation
	c.mu.Unlock()
	if current != gen {
		return
	}

	if err := c.store.Clear(ctx); err != nil {
		c.log.Warn(ctx, "failed to clear stored session", "error", err)
	}
}

func (c *Controller) notifyLogout(ctx context.Context, token string) {
	ctx, cancel := context.WithTimeout(ctx, remoteLogoutTimeout)
	defer cancel()

	h := http.Header{}
	h.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	resp, err := c.call(ctx, transport.RequestDescriptor{
		Method:     http.MethodPost,
		Path:       PathLogout,
		Headers:    h,
		Privileged: true,
	})
	if err != nil || !resp.OK() {
		c.log.Debug(ctx, "remote logout failed", "code", resp.Code, "error", err)
		return
	}
	c.log.Debug(ctx, "remote logout acknowledged")
}

// persist saves snap unless the session has moved on since gen.
func (c *Controller) persist(ctx context.Context, gen uint64, snap models.Session) {
	if c.store == nil {
		return
	}
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	current := c.generation
	c.mu.Unlock()
	if current != gen {
		return
	}

	if err := c.store.Save(ctx, snap); err != nil {
		c.log.Warn(ctx, "failed to store session", "error", err)
	}
}

func (c *Controller) logClaims(ctx context.Context) {
	claims, err := c.tokens.Claims()
	if err != nil {
		return
	}
	c.log.Debug(ctx, "session token installed", "subject", claims.Subject, "expires_at", claims.ExpiresAt)
}

// resetLocked clears the in-memory session. c.mu must be held.
func (c *Controller) resetLocked() {
	c.tokens.Clear()
	c.session = models.Session{}
}

// setState records a transition. c.mu must be held.
func (c *Controller) setState(to State) {
	from := c.state
	c.state = to
	if c.onState != nil && from != to {
		c.onState(from, to)
	}
}
