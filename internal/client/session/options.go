package session

import (
	"context"

	"github.com/dmitrijs2005/smartaccess/internal/client/models"
	"github.com/dmitrijs2005/smartaccess/internal/logging"
)

// Persister keeps the session across process restarts.
type Persister interface {
	Save(ctx context.Context, s models.Session) error
	// Load returns ok == false when nothing is stored.
	Load(ctx context.Context) (s models.Session, ok bool, err error)
	Clear(ctx context.Context) error
}

type Option func(*Controller)

func WithLogger(l logging.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

func WithPersister(p Persister) Option {
	return func(c *Controller) { c.store = p }
}

// WithRemoteLogout makes Logout notify the backend in the background.
func WithRemoteLogout(enabled bool) Option {
	return func(c *Controller) { c.remoteLogout = enabled }
}

// WithStateHook registers fn to be called on every state change. It runs with
// the controller lock held and must not call back into the controller.
func WithStateHook(fn func(from, to State)) Option {
	return func(c *Controller) { c.onState = fn }
}
