package refresh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrNoRefreshToken is returned when the store holds no refresh token. No exchange is
	// attempted in that case.
	ErrNoRefreshToken = errors.New("no refresh token available")
	// ErrNilExchanger is returned by New when no exchange function is supplied.
	ErrNilExchanger = errors.New("refresh exchanger is nil")
	// ErrNilStore is returned by New when no token store is supplied.
	ErrNilStore = errors.New("refresh token store is nil")
	// ErrSuperseded is returned to callers of an exchange that settled after the session it
	// started in was replaced by a login, logout or sign-out. Such an exchange writes
	// nothing and runs no hooks.
	ErrSuperseded = errors.New("refresh superseded by a new session")
)

const defaultTimeout = 10 * time.Second

// Pair is a freshly issued access/refresh token pair.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Exchanger trades a refresh token for a new pair. It is called at most once per exchange.
type Exchanger func(ctx context.Context, refreshToken string) (Pair, error)

// TokenStore is the subset of the credential store the coordinator writes to.
type TokenStore interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	SetTokens(ctx context.Context, access, refresh string) error
	ClearTokens(ctx context.Context) error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout bounds each exchange. The bound applies to the exchange itself, not to the
// callers waiting on it.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithOnFailure registers the hook run once per failed exchange, after the tokens have
// been cleared. Session teardown is wired here.
func WithOnFailure(fn func(context.Context, error)) Option {
	return func(c *Coordinator) { c.onFailure = fn }
}

// WithOnSuccess registers the hook run once per successful exchange, after the new pair
// has been stored.
func WithOnSuccess(fn func(context.Context, Pair)) Option {
	return func(c *Coordinator) { c.onSuccess = fn }
}

// WithOnStart registers a hook run when a caller starts a new exchange.
func WithOnStart(fn func()) Option {
	return func(c *Coordinator) { c.onStart = fn }
}

// WithOnJoin registers a hook run when a caller attaches to an exchange already in flight.
func WithOnJoin(fn func()) Option {
	return func(c *Coordinator) { c.onJoin = fn }
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

type pending struct {
	done    chan struct{}
	epoch   uint64
	token   string
	err     error
	waiters int
	settled bool
}

// Coordinator serializes refresh exchanges. It is safe for concurrent use.
type Coordinator struct {
	store    TokenStore
	exchange Exchanger
	timeout  time.Duration
	log      logrus.FieldLogger

	onFailure func(context.Context, error)
	onSuccess func(context.Context, Pair)
	onStart   func()
	onJoin    func()

	mu        sync.Mutex
	slot      *pending
	exchanges atomic.Uint64

	// commitMu orders exchange results against Exclusive writers. epoch only changes
	// while it is held.
	commitMu sync.Mutex
	epoch    atomic.Uint64
	// hookMu is read-held while settle runs hooks, so Supersede returns only after hooks
	// of the old generation finished.
	hookMu sync.RWMutex
}

// New returns a Coordinator writing renewed pairs to store.
func New(store TokenStore, exchange Exchanger, opts ...Option) (*Coordinator, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if exchange == nil {
		return nil, ErrNilExchanger
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Coordinator{
		store:    store,
		exchange: exchange,
		timeout:  defaultTimeout,
		log:      discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("component", "refresh")
	return c, nil
}

// Acquire returns a renewed access token, joining the exchange in flight when there is
// one. All callers attached to one exchange receive the same token or the same error.
//
// Cancelling ctx releases this caller only; the exchange keeps running for the others
// under its own timeout.
func (c *Coordinator) Acquire(ctx context.Context) (string, error) {
	c.mu.Lock()
	if p := c.slot; p != nil {
		p.waiters++
		c.mu.Unlock()
		if c.onJoin != nil {
			c.onJoin()
		}
		return wait(ctx, p)
	}

	p := &pending{done: make(chan struct{}), waiters: 1, epoch: c.epoch.Load()}
	c.slot = p
	c.mu.Unlock()

	c.exchanges.Add(1)
	if c.onStart != nil {
		c.onStart()
	}
	go c.run(context.WithoutCancel(ctx), p)

	return wait(ctx, p)
}

// AcquireAfter is Acquire for a caller whose request was rejected while carrying rejected.
// When the store already holds a different access token, a renewal completed after that
// request was sent and the current token is returned without a new exchange.
func (c *Coordinator) AcquireAfter(ctx context.Context, rejected string) (string, error) {
	c.mu.Lock()
	inFlight := c.slot != nil
	c.mu.Unlock()

	if !inFlight && rejected != "" {
		current, err := c.store.AccessToken(ctx)
		if err == nil && current != "" && current != rejected {
			return current, nil
		}
	}
	return c.Acquire(ctx)
}

// Pending reports whether an exchange is in flight.
func (c *Coordinator) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slot != nil
}

// Waiters returns the number of callers attached to the exchange in flight, including the
// caller that started it. It is zero when no exchange is pending.
func (c *Coordinator) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.slot == nil {
		return 0
	}
	return c.slot.waiters
}

// Supersede starts a new session generation. The exchange in flight, if any, is detached:
// later callers start a fresh one, and its result is dropped with ErrSuperseded. It waits
// for success and failure hooks already running, so hooks must not call it.
func (c *Coordinator) Supersede() {
	c.commitMu.Lock()
	c.epoch.Add(1)
	c.commitMu.Unlock()

	// waits out running hooks
	c.hookMu.Lock()
	c.hookMu.Unlock()

	c.mu.Lock()
	c.slot = nil
	c.mu.Unlock()
}

// Exclusive runs fn while no exchange can store or clear tokens. Session writers outside
// the coordinator go through it so an exchange never overwrites their pair.
func (c *Coordinator) Exclusive(fn func() error) error {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()
	return fn()
}

// Exchanges returns the number of exchanges started since creation.
func (c *Coordinator) Exchanges() uint64 {
	return c.exchanges.Load()
}

func wait(ctx context.Context, p *pending) (string, error) {
	select {
	case <-p.done:
		return p.token, p.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Coordinator) run(parent context.Context, p *pending) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	started := time.Now()
	defer func() {
		if r := recover(); r != nil && !p.settled {
			c.settle(parent, p, "", Pair{}, fmt.Errorf("refresh exchange panicked: %v", r))
		}
		c.mu.Lock()
		if c.slot == p {
			c.slot = nil
		}
		waiters := p.waiters
		c.mu.Unlock()

		entry := c.log.WithFields(logrus.Fields{
			"operation":   "refresh",
			"waiters":     waiters,
			"duration_ms": time.Since(started).Milliseconds(),
		})
		switch {
		case errors.Is(p.err, ErrSuperseded):
			entry.WithField("outcome", "superseded").Info("token refresh result dropped")
		case p.err != nil:
			entry.WithField("outcome", "failure").WithError(p.err).Warn("token refresh failed")
		default:
			entry.WithField("outcome", "success").Debug("token refresh completed")
		}
		close(p.done)
	}()

	used, pair, err := c.renew(ctx)
	c.settle(parent, p, used, pair, err)
}

// renew performs the exchange without touching the store. used is the refresh token
// that was sent, or "" when none was read.
func (c *Coordinator) renew(ctx context.Context) (string, Pair, error) {
	refreshToken, err := c.store.RefreshToken(ctx)
	if err != nil {
		return "", Pair{}, fmt.Errorf("read refresh token: %w", err)
	}
	if refreshToken == "" {
		return "", Pair{}, ErrNoRefreshToken
	}

	pair, err := c.exchange(ctx, refreshToken)
	if err == nil && (pair.AccessToken == "" || pair.RefreshToken == "") {
		err = errors.New("refresh response missing tokens")
	}
	return refreshToken, pair, err
}

// settle stores the new pair or clears the old one, unless the session changed while the
// exchange ran. Hooks run after commitMu is released.
func (c *Coordinator) settle(ctx context.Context, p *pending, used string, pair Pair, err error) {
	p.settled = true

	c.commitMu.Lock()
	if c.superseded(ctx, p, used) {
		c.commitMu.Unlock()
		p.err = ErrSuperseded
		return
	}
	if err == nil {
		if serr := c.store.SetTokens(ctx, pair.AccessToken, pair.RefreshToken); serr != nil {
			err = fmt.Errorf("store refreshed tokens: %w", serr)
		}
	}
	if err != nil {
		if cerr := c.store.ClearTokens(ctx); cerr != nil {
			c.log.WithError(cerr).Warn("clear tokens after failed refresh")
		}
	}
	c.hookMu.RLock()
	c.commitMu.Unlock()
	defer c.hookMu.RUnlock()

	if err != nil {
		p.err = err
		if c.onFailure != nil {
			c.onFailure(ctx, err)
		}
		return
	}
	p.token = pair.AccessToken
	if c.onSuccess != nil {
		c.onSuccess(ctx, pair)
	}
}

// superseded reports whether the session p started in is gone: either the generation
// moved on, or the stored refresh token is no longer the one that was exchanged.
func (c *Coordinator) superseded(ctx context.Context, p *pending, used string) bool {
	if c.epoch.Load() != p.epoch {
		return true
	}
	if used == "" {
		return false
	}
	current, err := c.store.RefreshToken(ctx)
	return err == nil && current != used
}
