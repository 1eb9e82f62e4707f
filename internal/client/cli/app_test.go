package cli

import (
	"bufio"
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/smartaccess/internal/client/config"
	"github.com/dmitrijs2005/smartaccess/internal/logging"
	"github.com/dmitrijs2005/smartaccess/internal/stubapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is read by the test while background watchers write to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig(baseURL, dbPath string) *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BaseURL = baseURL
	cfg.SessionDBPath = dbPath
	cfg.RequestTimeout = 5 * time.Second
	cfg.PollInterval = 5 * time.Millisecond
	cfg.PollBackoffInterval = 5 * time.Millisecond
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, input ...string) (*App, *syncBuffer) {
	t.Helper()
	stubTerminal(t, false, nil, nil)

	a, err := NewApp(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)

	out := &syncBuffer{}
	a.reader = bufio.NewReader(strings.NewReader(strings.Join(input, "\n") + "\n"))
	a.out = out
	a.qrDir = t.TempDir()
	return a, out
}

func startStub(t *testing.T, opts stubapi.Options) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(stubapi.New(opts).Handler())
	t.Cleanup(srv.Close)
	return srv
}

var registerAnn = []string{"register", "Ann", "Lee", "+37120000000", "ann@example.com", "secret"}

func TestApp_RegisterStatusLogout(t *testing.T) {
	srv := startStub(t, stubapi.Options{VerifyAfter: 100})
	cfg := testConfig(srv.URL, filepath.Join(t.TempDir(), "session.db"))

	a, out := newTestApp(t, cfg, append(registerAnn, "status", "logout", "status", "exit")...)
	require.NoError(t, a.Run(context.Background()))

	s := out.String()
	assert.Contains(t, s, "Registered and logged in as ann@example.com")
	assert.Contains(t, s, "Run 'verify' to wait for it.")
	assert.Contains(t, s, "Email:    ann@example.com")
	assert.Contains(t, s, "Name:     Ann Lee")
	assert.Contains(t, s, "Verified: false")
	assert.Contains(t, s, "sa (ann@example.com, unverified)> ")
	assert.Contains(t, s, "Logged out.")
	assert.Contains(t, s, "You are not logged in.")
	assert.Contains(t, s, "Bye!")
}

func TestApp_RestoresSessionOnStart(t *testing.T) {
	srv := startStub(t, stubapi.Options{VerifyAfter: 100})
	dbPath := filepath.Join(t.TempDir(), "session.db")

	first, _ := newTestApp(t, testConfig(srv.URL, dbPath), append(registerAnn, "exit")...)
	require.NoError(t, first.Run(context.Background()))

	second, out := newTestApp(t, testConfig(srv.URL, dbPath), "exit")
	require.NoError(t, second.Run(context.Background()))

	s := out.String()
	assert.Contains(t, s, "Welcome back, Ann")
	assert.Contains(t, s, "sa (ann@example.com, unverified)> ")
}

func TestApp_LogoutForgetsStoredSession(t *testing.T) {
	srv := startStub(t, stubapi.Options{VerifyAfter: 100})
	dbPath := filepath.Join(t.TempDir(), "session.db")

	first, _ := newTestApp(t, testConfig(srv.URL, dbPath), append(registerAnn, "logout", "exit")...)
	require.NoError(t, first.Run(context.Background()))

	second, out := newTestApp(t, testConfig(srv.URL, dbPath), "exit")
	require.NoError(t, second.Run(context.Background()))

	assert.NotContains(t, out.String(), "Welcome back")
	assert.Contains(t, out.String(), "sa (anonymous)> ")
}

func TestApp_RevokedStoredSession(t *testing.T) {
	srv := startStub(t, stubapi.Options{VerifyAfter: 100})
	dbPath := filepath.Join(t.TempDir(), "session.db")

	first, _ := newTestApp(t, testConfig(srv.URL, dbPath), append(registerAnn, "exit")...)
	require.NoError(t, first.Run(context.Background()))

	// A second server with another secret rejects the stored token.
	other := startStub(t, stubapi.Options{Secret: []byte("rotated"), VerifyAfter: 100})
	second, out := newTestApp(t, testConfig(other.URL, dbPath), "exit")
	require.NoError(t, second.Run(context.Background()))

	assert.Contains(t, out.String(), "Your saved session has expired. Please log in again.")
	assert.Contains(t, out.String(), "sa (anonymous)> ")
}

func TestApp_LoginWrongPassword(t *testing.T) {
	srv := startStub(t, stubapi.Options{VerifyAfter: 100})
	cfg := testConfig(srv.URL, "")

	input := append(registerAnn, "logout", "login", "ann@example.com", "wrong", "login", "ann@example.com", "secret", "exit")
	a, out := newTestApp(t, cfg, input...)
	require.NoError(t, a.Run(context.Background()))

	s := out.String()
	assert.Contains(t, s, "invalid email or password")
	assert.Contains(t, s, "Logged in as Ann")
}

func TestApp_RegisterRejected(t *testing.T) {
	srv := startStub(t, stubapi.Options{})
	a, out := newTestApp(t, testConfig(srv.URL, ""), "register", "", "", "", "", "", "exit")
	require.NoError(t, a.Run(context.Background()))

	assert.Contains(t, out.String(), "email is required\npassword is required")
	assert.Contains(t, out.String(), "sa (anonymous)> ")
}

func TestApp_UnreachableServerIsAmbiguous(t *testing.T) {
	srv := startStub(t, stubapi.Options{})
	srv.Close()

	a, out := newTestApp(t, testConfig(srv.URL, ""), "ann@example.com", "secret")
	t.Cleanup(a.Close)

	assert.Error(t, a.Login(context.Background()))
	assert.Contains(t, out.String(), ambiguousMsg)
	assert.False(t, a.isLoggedIn())
}

func TestApp_CommandsRequireLogin(t *testing.T) {
	srv := startStub(t, stubapi.Options{})
	a, out := newTestApp(t, testConfig(srv.URL, ""))
	t.Cleanup(a.Close)
	ctx := context.Background()

	assert.ErrorIs(t, a.Status(ctx), errNotLoggedIn)
	assert.ErrorIs(t, a.Verify(ctx), errNotLoggedIn)
	assert.ErrorIs(t, a.Profile(ctx), errNotLoggedIn)
	assert.ErrorIs(t, a.QR(ctx, nil), errNotLoggedIn)
	assert.NoError(t, a.Logout(ctx))
	assert.Equal(t, 5, strings.Count(out.String(), "You are not logged in."))
}

func TestApp_VerifyInBackground(t *testing.T) {
	srv := startStub(t, stubapi.Options{VerifyAfter: 2})
	a, out := newTestApp(t, testConfig(srv.URL, ""), registerAnn[1:]...)
	t.Cleanup(a.Close)
	ctx := context.Background()

	require.NoError(t, a.Register(ctx))
	require.NoError(t, a.Verify(ctx))
	assert.Contains(t, out.String(), "Waiting for verification in the background.")

	a.mu.Lock()
	p := a.poller
	a.mu.Unlock()
	require.NotNil(t, p)

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not finish")
	}
	a.watchers.Wait()

	assert.True(t, a.ctrl.IsVerified())
	assert.Contains(t, out.String(), "Your account is now verified.")

	require.NoError(t, a.Verify(ctx))
	assert.Contains(t, out.String(), "Your account is already verified.")
}

func TestApp_Profile(t *testing.T) {
	srv := startStub(t, stubapi.Options{VerifyAfter: 100})
	a, out := newTestApp(t, testConfig(srv.URL, ""), append(registerAnn[1:], "Anna", "", "", "hello")...)
	t.Cleanup(a.Close)
	ctx := context.Background()

	require.NoError(t, a.Register(ctx))
	require.NoError(t, a.Profile(ctx))

	assert.Contains(t, out.String(), "Profile updated.")
	u := a.ctrl.Snapshot().User
	require.NotNil(t, u)
	assert.Equal(t, "Anna", u.FirstName)
	assert.Equal(t, "Lee", u.LastName)
	assert.Equal(t, "hello", u.Bio)
}

func TestApp_ProfileNothingToUpdate(t *testing.T) {
	srv := startStub(t, stubapi.Options{VerifyAfter: 100})
	a, out := newTestApp(t, testConfig(srv.URL, ""), append(registerAnn[1:], "", "", "", "")...)
	t.Cleanup(a.Close)
	ctx := context.Background()

	require.NoError(t, a.Register(ctx))
	require.NoError(t, a.Profile(ctx))
	assert.Contains(t, out.String(), "Nothing to update.")
}

func TestApp_QRImageIsSaved(t *testing.T) {
	srv := startStub(t, stubapi.Options{VerifyAfter: 100, QRFormat: stubapi.QRImage})
	a, out := newTestApp(t, testConfig(srv.URL, ""), registerAnn[1:]...)
	t.Cleanup(a.Close)
	ctx := context.Background()

	require.NoError(t, a.Register(ctx))
	require.NoError(t, a.QR(ctx, []string{"guest", "Bob"}))
	assert.Contains(t, out.String(), "QR code saved to")

	files, err := filepath.Glob(filepath.Join(a.qrDir, "qr-*.png"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	img, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, []byte("\x89PNG\r\n\x1a\n")))
}

func TestApp_QRJSONIsPrinted(t *testing.T) {
	srv := startStub(t, stubapi.Options{VerifyAfter: 100, QRFormat: stubapi.QRJSON})
	a, out := newTestApp(t, testConfig(srv.URL, ""), registerAnn[1:]...)
	t.Cleanup(a.Close)
	ctx := context.Background()

	require.NoError(t, a.Register(ctx))
	require.NoError(t, a.QR(ctx, []string{"delivery"}))
	assert.Contains(t, out.String(), `"type": "delivery"`)
	assert.Contains(t, out.String(), `"expiresAt"`)
}
