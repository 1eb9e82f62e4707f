// Package poller repeats the session status check until the server reports
// the resident as verified.
package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/smartaccess/internal/client/normalize"
	"github.com/dmitrijs2005/smartaccess/internal/logging"
	"golang.org/x/time/rate"
)

const (
	DefaultInterval        = 5 * time.Second
	DefaultBackoffInterval = 30 * time.Second
	DefaultErrorThreshold  = 10
	DefaultCallTimeout     = 10 * time.Second
)

var (
	// ErrGaveUp is reported when MaxDuration elapsed before verification.
	ErrGaveUp = errors.New("verification polling gave up")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("poller already started")
)

// StatusChecker is the part of the session controller the poller drives.
type StatusChecker interface {
	CheckStatus(ctx context.Context) (normalize.Response, error)
	IsVerified() bool
}

type Poller struct {
	checker     StatusChecker
	log         logging.Logger
	interval    time.Duration
	backoff     time.Duration
	threshold   int
	callTimeout time.Duration
	maxDuration time.Duration

	// failures is owned by the polling goroutine.
	failures  int
	sometimes rate.Sometimes

	mu       sync.Mutex
	started  bool
	cancel   context.CancelFunc
	err      error
	done     chan struct{}
	verified atomic.Bool
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithBackoffInterval sets the interval used once failures exceed the
// threshold.
func WithBackoffInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.backoff = d
		}
	}
}

func WithErrorThreshold(n int) Option {
	return func(p *Poller) {
		if n >= 0 {
			p.threshold = n
		}
	}
}

func WithCallTimeout(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.callTimeout = d
		}
	}
}

// WithMaxDuration bounds the whole polling run. Zero means no bound.
func WithMaxDuration(d time.Duration) Option {
	return func(p *Poller) {
		if d >= 0 {
			p.maxDuration = d
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.log = l
		}
	}
}

func New(checker StatusChecker, opts ...Option) *Poller {
	p := &Poller{
		checker:     checker,
		log:         logging.Nop(),
		interval:    DefaultInterval,
		backoff:     DefaultBackoffInterval,
		threshold:   DefaultErrorThreshold,
		callTimeout: DefaultCallTimeout,
		sometimes:   rate.Sometimes{First: 1, Every: 5, Interval: time.Minute},
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling in the background. The first check runs at once.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return ErrAlreadyStarted
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	go p.run(ctx)
	return nil
}

// Stop cancels the timer and any check in flight, and waits for the polling
// goroutine to exit. It is safe to call more than once, or before Start.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	started := p.started
	p.mu.Unlock()
	if !started {
		return
	}
	cancel()
	<-p.done
}

// Done is closed when polling has ended for any reason.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Verified reports whether polling ended because the user is verified.
func (p *Poller) Verified() bool {
	return p.verified.Load()
}

// Err returns why polling ended: nil when verified, ErrGaveUp, or the
// context error after Stop. It is nil while polling is running.
func (p *Poller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)
	defer p.cancel()

	started := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		if p.checker.IsVerified() {
			p.finish(ctx, nil)
			return
		}

		select {
		case <-ctx.Done():
			p.finish(ctx, ctx.Err())
			return
		case <-timer.C:
		}

		if p.maxDuration > 0 && time.Since(started) >= p.maxDuration {
			p.finish(ctx, ErrGaveUp)
			return
		}

		began := time.Now()
		p.tick(ctx)
		timer.Reset(p.nextWait(time.Since(began)))
	}
}

func (p *Poller) tick(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	resp, err := p.checker.CheckStatus(callCtx)
	if err == nil && resp.OK() {
		p.failures = 0
		return
	}

	p.failures++
	p.sometimes.Do(func() {
		p.log.Warn(ctx, "verification status check failed",
			"failures", p.failures, "code", resp.Code, "message", resp.Message, "error", err)
	})
}

func (p *Poller) nextInterval() time.Duration {
	if p.failures > p.threshold {
		return p.backoff
	}
	return p.interval
}

// nextWait is the delay before the next check once the last one took
// elapsed, so checks start one interval apart.
func (p *Poller) nextWait(elapsed time.Duration) time.Duration {
	return max(p.nextInterval()-elapsed, 0)
}

func (p *Poller) finish(ctx context.Context, err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()

	if err == nil {
		p.verified.Store(true)
		p.log.Info(ctx, "verification confirmed")
		return
	}
	p.log.Info(ctx, "verification polling stopped", "reason", err)
}
