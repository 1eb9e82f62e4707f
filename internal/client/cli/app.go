package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/smartaccess/internal/client/config"
	"github.com/dmitrijs2005/smartaccess/internal/client/poller"
	"github.com/dmitrijs2005/smartaccess/internal/client/session"
	"github.com/dmitrijs2005/smartaccess/internal/client/sessionstore"
	"github.com/dmitrijs2005/smartaccess/internal/client/storage"
	"github.com/dmitrijs2005/smartaccess/internal/client/tokenstore"
	"github.com/dmitrijs2005/smartaccess/internal/client/transport"
	"github.com/dmitrijs2005/smartaccess/internal/common"
	"github.com/dmitrijs2005/smartaccess/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config *config.Config
	log    logging.Logger
	ctrl   *session.Controller
	db     *sql.DB
	reg    *prometheus.Registry

	reader *bufio.Reader
	out    io.Writer
	outMu  sync.Mutex

	// qrDir receives PNG codes saved by the qr command.
	qrDir string

	mu       sync.Mutex
	poller   *poller.Poller
	watchers sync.WaitGroup
}

// NewApp opens the session database (unless disabled) and wires the
// transport and session controller from c.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	if log == nil {
		log = logging.Nop()
	}

	a := &App{
		config: c,
		log:    log,
		reg:    prometheus.NewRegistry(),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		qrDir:  "qr-codes",
	}
	a.reg.MustRegister(collectors.NewGoCollector())

	opts := []session.Option{
		session.WithLogger(log.With("component", "session")),
		session.WithRemoteLogout(c.RemoteLogout),
	}

	if c.SessionDBPath != "" {
		db, err := storage.Open(ctx, c.SessionDBPath)
		if err != nil {
			return nil, fmt.Errorf("open session db: %w", err)
		}
		a.db = db
		opts = append(opts, session.WithPersister(sessionstore.New(db, c.SessionPassphrase)))
	}

	tokens := tokenstore.New()
	tr := transport.New(c.BaseURL,
		transport.WithTimeout(c.RequestTimeout),
		transport.WithHeaderSource(tokens),
		transport.WithRegisterer(a.reg),
	)
	a.ctrl = session.New(tr, tokens, opts...)

	return a, nil
}

// Run restores a stored session, then serves the REPL until the user exits
// or ctx is cancelled. The metrics endpoint, when configured, lives for the
// same span.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if a.config.MetricsAddr != "" {
		srv := &http.Server{
			Addr:    a.config.MetricsAddr,
			Handler: promhttp.HandlerFor(a.reg, promhttp.HandlerOpts{}),
		}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer scancel()
			return srv.Shutdown(sctx)
		})
	}

	g.Go(func() error {
		defer cancel()
		a.restore(gctx)
		runREPL(gctx, a, a.prompt, a.reader, appWriter{a})
		return nil
	})

	return g.Wait()
}

// Close stops background polling, lets the remote logout finish and closes
// the session database.
func (a *App) Close() {
	a.stopPoller()
	a.watchers.Wait()
	a.ctrl.Wait()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn(context.Background(), "close session db", "err", err)
		}
		a.db = nil
	}
}

func (a *App) restore(ctx context.Context) {
	ok, err := a.ctrl.Restore(ctx)
	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		a.println("Your saved session has expired. Please log in again.")
	case errors.Is(err, common.ErrLocalDataNotAvailable):
		a.println("Saved session could not be unlocked; starting signed out.")
	case err != nil:
		a.log.Warn(ctx, "restore session", "err", err)
	case ok:
		if u := a.ctrl.Snapshot().User; u != nil {
			a.printf("Welcome back, %s\n", displayName(u.FirstName, u.Email))
		}
	}
}

func (a *App) isLoggedIn() bool {
	return a.ctrl.Snapshot().IsAuthenticated()
}

func (a *App) prompt() string {
	s := a.ctrl.Snapshot()
	if !s.IsAuthenticated() || s.User == nil {
		return "(anonymous)"
	}
	if s.User.IsVerified {
		return fmt.Sprintf("(%s)", s.User.Email)
	}
	return fmt.Sprintf("(%s, unverified)", s.User.Email)
}

func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) println(args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintln(a.out, args...)
}

// appWriter serializes REPL output with messages from background watchers.
type appWriter struct{ a *App }

func (w appWriter) Write(p []byte) (int, error) {
	w.a.outMu.Lock()
	defer w.a.outMu.Unlock()
	return w.a.out.Write(p)
}

func displayName(first, email string) string {
	if first != "" {
		return first
	}
	return email
}
