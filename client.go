package authclient

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/authclient/credential"
	internalaudit "github.com/MrEthical07/authclient/internal/audit"
	internalflows "github.com/MrEthical07/authclient/internal/flows"
	"github.com/MrEthical07/authclient/jwt"
	"github.com/MrEthical07/authclient/middleware"
	"github.com/MrEthical07/authclient/refresh"
	"github.com/MrEthical07/authclient/saver"
	"github.com/MrEthical07/authclient/session"
)

// Client defines a public type used by authclient APIs.
//
// Client instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// All methods are safe for concurrent use.
type Client struct {
	config      Config
	store       *credential.Store
	coordinator *refresh.Coordinator
	teardown    *session.Teardown
	flows       internalflows.Service
	http        *http.Client
	saver       saver.Saver
	audit       *internalaudit.Dispatcher
	metrics     *Metrics
	log         logrus.FieldLogger

	loginPath   string
	refreshPath string
	ownedRedis  redis.UniversalClient
	closed      atomic.Bool
}

// Close describes the close operation and its observable behavior.
//
// Close stops a pending login redirect, drains the audit dispatcher, and closes a Redis
// client the Builder created. Stored credentials are kept.
func (c *Client) Close() {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return
	}
	if c.teardown != nil {
		c.teardown.Stop()
	}
	if c.audit != nil {
		c.audit.Close()
	}
	c.closeOwned()
}

func (c *Client) closeOwned() {
	if c.ownedRedis != nil {
		if err := c.ownedRedis.Close(); err != nil {
			c.log.WithError(err).Warn("close redis client")
		}
		c.ownedRedis = nil
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

// RefreshExchanges returns how many refresh exchanges have been started.
func (c *Client) RefreshExchanges() uint64 {
	if c == nil || c.coordinator == nil {
		return 0
	}
	return c.coordinator.Exchanges()
}

// RefreshPending reports whether a refresh exchange is in flight.
func (c *Client) RefreshPending() bool {
	return c != nil && c.coordinator != nil && c.coordinator.Pending()
}

// Credentials exposes the credential store, for example to seed tokens issued elsewhere.
func (c *Client) Credentials() *credential.Store {
	if c == nil {
		return nil
	}
	return c.store
}

// HTTPClient returns an *http.Client whose transport attaches the stored bearer token and
// applies the same refresh and retry-once rules as the request methods. Requests with a
// body must be replayable through GetBody.
func (c *Client) HTTPClient() *http.Client {
	base := c.http.Transport
	return &http.Client{
		Transport: &middleware.Transport{
			Base:      base,
			Tokens:    c.store,
			Refresher: c.coordinator,
			SkipPaths: []string{c.loginPath, c.refreshPath},
			OnReplay:  func(*http.Request) { c.metricInc(MetricReplay) },
		},
		CheckRedirect: c.http.CheckRedirect,
		Jar:           c.http.Jar,
		Timeout:       c.http.Timeout,
	}
}

func (c *Client) ready() bool {
	return c != nil && c.flows.Initialized() && !c.closed.Load()
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

func (c *Client) metricObserve(id MetricID, d time.Duration) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Observe(id, d)
}

func (c *Client) warnf(format string, args ...any) {
	c.log.Warnf(format, args...)
}

func (c *Client) isAuthPath(p string) bool {
	resolved := resolvedPath(c.config.Backend.BaseURL, p)
	resolved = strings.TrimRight(resolved, "/")
	return resolved == strings.TrimRight(c.loginPath, "/") || resolved == strings.TrimRight(c.refreshPath, "/")
}

func (c *Client) expiresSoon(token string) bool {
	return jwt.ExpiresWithin(token, time.Now(), c.config.Refresh.ExpirySkew)
}

func (c *Client) flowDeps() internalflows.Deps {
	cfg := c.config.Backend
	return internalflows.Deps{
		Dispatch: internalflows.DispatchDeps{
			BaseURL:        cfg.BaseURL,
			UserAgent:      cfg.UserAgent,
			Client:         c.http,
			DefaultTimeout: c.config.Timeouts.Request,
			AccessToken:    c.store.AccessToken,
			Refresh:        c.coordinator.AcquireAfter,
			ExpiresSoon:    c.expiresSoon,
			Proactive:      c.config.Refresh.Proactive,
			IsAuthPath:     c.isAuthPath,
			RequestID:      RequestIDFromContext,
			Warn:           c.warnf,
		},
		Exchange: internalflows.ExchangeDeps{
			BaseURL:     cfg.BaseURL,
			RefreshPath: cfg.RefreshPath,
			UserAgent:   cfg.UserAgent,
			Client:      c.http,
			RequestID:   RequestIDFromContext,
		},
		Login: internalflows.LoginDeps{
			BaseURL:     cfg.BaseURL,
			LoginPath:   cfg.LoginPath,
			ProfilePath: cfg.ProfilePath,
			UserAgent:   cfg.UserAgent,
			Timeout:     c.config.Timeouts.Request,
			Client:      c.http,
			RequestID:   RequestIDFromContext,
			SetTokens: func(ctx context.Context, access, refreshToken string) error {
				return c.coordinator.Exclusive(func() error {
					return c.store.SetTokens(ctx, access, refreshToken)
				})
			},
			SetSession: func(ctx context.Context, access, refreshToken string, profile []byte) error {
				return c.coordinator.Exclusive(func() error {
					return c.store.SetSession(ctx, credential.Credential{
						AccessToken:  access,
						RefreshToken: refreshToken,
						Profile:      json.RawMessage(profile),
					})
				})
			},
			Clear: c.clearExclusive,
			Warn:  c.warnf,
		},
		Logout: internalflows.LogoutDeps{
			BaseURL:     cfg.BaseURL,
			LogoutPath:  cfg.LogoutPath,
			UserAgent:   cfg.UserAgent,
			Timeout:     c.config.Timeouts.Request,
			Client:      c.http,
			RequestID:   RequestIDFromContext,
			AccessToken: c.store.AccessToken,
			Clear:       c.clearExclusive,
		},
	}
}

// clearExclusive wipes the credential set without racing a refresh exchange's write.
func (c *Client) clearExclusive(ctx context.Context) error {
	return c.coordinator.Exclusive(func() error { return c.store.Clear(ctx) })
}

// exchange is the refresh.Exchanger backing the coordinator.
func (c *Client) exchange(ctx context.Context, refreshToken string) (refresh.Pair, error) {
	started := time.Now()
	res := c.flows.Exchange(ctx, refreshToken)
	c.metricObserve(MetricRefreshLatency, time.Since(started))
	if res.Err != nil {
		return refresh.Pair{}, res.Err
	}
	return refresh.Pair{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}, nil
}

// refreshSucceeded runs once per exchange whose pair was stored.
func (c *Client) refreshSucceeded(ctx context.Context, _ refresh.Pair) {
	c.metricInc(MetricRefreshSuccess)
	c.emitAudit(ctx, AuditEvent{
		EventType: AuditRefreshSuccess,
		Method:    http.MethodPost,
		Path:      c.config.Backend.RefreshPath,
		Status:    http.StatusOK,
		Success:   true,
	})
}

// refreshFailed runs once per failed exchange, after the tokens were cleared.
func (c *Client) refreshFailed(ctx context.Context, err error) {
	c.metricInc(MetricRefreshFailure)
	c.emitAudit(ctx, AuditEvent{
		EventType: AuditRefreshFailure,
		Method:    http.MethodPost,
		Path:      c.config.Backend.RefreshPath,
		Error:     errString(err),
	})
	c.endSession(ctx, err)
}

// endSession runs teardown and records it when it produced the notice and redirect.
func (c *Client) endSession(ctx context.Context, reason error) bool {
	fired := c.teardown.Run(ctx, reason)
	if fired {
		c.metricInc(MetricTeardown)
		c.emitAudit(ctx, AuditEvent{
			EventType: AuditTeardown,
			Error:     errString(reason),
		})
	}
	return fired
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
