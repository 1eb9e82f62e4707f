package cli

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/smartaccess/internal/client/normalize"
	"github.com/dmitrijs2005/smartaccess/internal/client/poller"
	"github.com/dmitrijs2005/smartaccess/internal/client/session"
	"github.com/dmitrijs2005/smartaccess/internal/common"
	"github.com/dmitrijs2005/smartaccess/internal/filex"
)

// Test seams.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

const ambiguousMsg = "No reply from the server. The request may or may not have been applied."

var errNotLoggedIn = errors.New("not logged in")

func (a *App) ask(prompt string) (string, error) {
	return getSimpleText(a.reader, prompt, appWriter{a})
}

func (a *App) Register(ctx context.Context) error {
	if a.isLoggedIn() {
		a.println("Already logged in. Log out first.")
		return nil
	}

	var req session.SignUpRequest
	for _, f := range []struct {
		prompt string
		dst    *string
	}{
		{"First name", &req.FirstName},
		{"Last name", &req.LastName},
		{"Phone", &req.Phone},
		{"Email", &req.Email},
	} {
		v, err := a.ask(f.prompt)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	pw, err := getPassword(a.reader, appWriter{a})
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	req.Password = string(pw)

	resp, err := a.ctrl.SignUp(ctx, req)
	if err != nil {
		a.reportFailure(resp, err, "Registration failed")
		return err
	}

	if u := a.ctrl.Snapshot().User; a.isLoggedIn() && u != nil {
		a.printf("Registered and logged in as %s\n", u.Email)
		if !u.IsVerified {
			a.println("Your account is not verified yet. Run 'verify' to wait for it.")
		}
		return nil
	}
	a.println("Registered. Please log in.")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	if a.isLoggedIn() {
		a.println("Already logged in. Log out first.")
		return nil
	}

	email, err := a.ask("Email")
	if err != nil {
		return err
	}
	pw, err := getPassword(a.reader, appWriter{a})
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	resp, err := a.ctrl.SignIn(ctx, email, string(pw))
	if err != nil {
		if errors.Is(err, common.ErrNoToken) {
			a.println("The server accepted the credentials but did not start a session.")
			return err
		}
		a.reportFailure(resp, err, "Login failed")
		return err
	}

	u := a.ctrl.Snapshot().User
	if u == nil {
		a.println("Logged in.")
		return nil
	}
	a.printf("Logged in as %s\n", displayName(u.FirstName, u.Email))
	return nil
}

// Status refreshes the resident record from the server and prints it. When
// the refresh fails the last known record is shown.
func (a *App) Status(ctx context.Context) error {
	if !a.isLoggedIn() {
		a.println("You are not logged in.")
		return errNotLoggedIn
	}

	resp, err := a.ctrl.CheckStatus(ctx)
	if err != nil {
		a.reportFailure(resp, err, "Status check failed")
		return err
	}
	if !resp.OK() {
		a.reportFailure(resp, resp.Err(), "Status check failed")
	}

	u := a.ctrl.Snapshot().User
	if u == nil {
		return nil
	}
	a.printf("Name:     %s %s\n", u.FirstName, u.LastName)
	a.printf("Email:    %s\n", u.Email)
	a.printf("Phone:    %s\n", u.Phone)
	if u.Bio != "" {
		a.printf("Bio:      %s\n", u.Bio)
	}
	a.printf("Verified: %t\n", u.IsVerified)
	return nil
}

// Verify starts background polling until the account is verified. The
// outcome is printed when polling ends.
func (a *App) Verify(ctx context.Context) error {
	if !a.isLoggedIn() {
		a.println("You are not logged in.")
		return errNotLoggedIn
	}
	if a.ctrl.IsVerified() {
		a.println("Your account is already verified.")
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.poller != nil {
		select {
		case <-a.poller.Done():
		default:
			a.println("Already waiting for verification.")
			return nil
		}
	}

	p := poller.New(a.ctrl,
		poller.WithInterval(a.config.PollInterval),
		poller.WithBackoffInterval(a.config.PollBackoffInterval),
		poller.WithErrorThreshold(a.config.PollErrorThreshold),
		poller.WithCallTimeout(a.config.RequestTimeout),
		poller.WithMaxDuration(a.config.PollMaxDuration),
		poller.WithLogger(a.log.With("component", "poller")),
	)
	if err := p.Start(ctx); err != nil {
		return err
	}
	a.poller = p

	a.watchers.Add(1)
	go func() {
		defer a.watchers.Done()
		<-p.Done()
		switch {
		case p.Verified():
			a.println("\nYour account is now verified.")
		case errors.Is(p.Err(), poller.ErrGaveUp):
			a.println("\nStopped waiting for verification. Run 'verify' to try again.")
		}
	}()

	a.println("Waiting for verification in the background.")
	return nil
}

func (a *App) stopPoller() {
	a.mu.Lock()
	p := a.poller
	a.poller = nil
	a.mu.Unlock()
	if p != nil {
		p.Stop()
	}
}

// Profile asks for new profile values. Empty answers keep the current value.
func (a *App) Profile(ctx context.Context) error {
	if !a.isLoggedIn() {
		a.println("You are not logged in.")
		return errNotLoggedIn
	}

	fields := make(map[string]any)
	for _, f := range []struct {
		prompt string
		key    string
	}{
		{"First name (empty keeps current)", "firstName"},
		{"Last name (empty keeps current)", "lastName"},
		{"Phone (empty keeps current)", "phone"},
		{"Bio (empty keeps current)", "bio"},
	} {
		v, err := a.ask(f.prompt)
		if err != nil {
			return err
		}
		if v != "" {
			fields[f.key] = v
		}
	}
	if len(fields) == 0 {
		a.println("Nothing to update.")
		return nil
	}

	resp, err := a.ctrl.UpdateProfile(ctx, "", fields)
	if err != nil {
		a.reportFailure(resp, err, "Profile update failed")
		return err
	}
	a.println("Profile updated.")
	return nil
}

// QR requests an entry code. args are an optional code type (default
// "guest") and guest name. Image codes are written as PNG files.
func (a *App) QR(ctx context.Context, args []string) error {
	if !a.isLoggedIn() {
		a.println("You are not logged in.")
		return errNotLoggedIn
	}

	req := session.QRRequest{Type: "guest", ValidMinutes: 60}
	if len(args) > 0 {
		req.Type = args[0]
	}
	if len(args) > 1 {
		req.GuestName = strings.Join(args[1:], " ")
	}

	resp, err := a.ctrl.GenerateQR(ctx, req)
	if err != nil {
		a.reportFailure(resp, err, "QR code request failed")
		return err
	}

	if resp.ImageType != "" {
		path, err := a.saveImage(resp)
		if err != nil {
			a.println("Could not save QR code:", err)
			return err
		}
		a.println("QR code saved to", path)
		return nil
	}

	b, err := json.MarshalIndent(resp.Payload, "", "  ")
	if err != nil {
		return err
	}
	a.println(string(b))
	return nil
}

func (a *App) saveImage(resp normalize.Response) (string, error) {
	dataURL, _ := resp.Payload.(string)
	_, enc, ok := strings.Cut(dataURL, ";base64,")
	if !ok {
		return "", fmt.Errorf("unexpected image payload")
	}
	img, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	dir, err := filex.EnsureDir(a.qrDir)
	if err != nil {
		return "", err
	}
	name, err := common.MakeRandHexString(4)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "qr-"+name+".png")
	if err := os.WriteFile(path, img, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		a.println("You are not logged in.")
		return nil
	}
	a.stopPoller()
	a.ctrl.Logout(ctx)
	a.println("Logged out.")
	return nil
}

func (a *App) reportFailure(resp normalize.Response, err error, fallback string) {
	switch {
	case errors.Is(err, common.ErrNoSession):
		a.println("You are not logged in.")
	case errors.Is(err, common.ErrStaleSession):
		a.println("The session changed while the request was in flight.")
	case resp.Ambiguous():
		a.println(ambiguousMsg)
	default:
		a.println(resp.UserMessage(fallback))
	}
}
