package authclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/authclient/credential"
	internalaudit "github.com/MrEthical07/authclient/internal/audit"
	internalflows "github.com/MrEthical07/authclient/internal/flows"
	"github.com/MrEthical07/authclient/internal/logging"
	"github.com/MrEthical07/authclient/refresh"
	"github.com/MrEthical07/authclient/saver"
	"github.com/MrEthical07/authclient/session"
)

// Builder defines a public type used by authclient APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config

	redis      redis.UniversalClient
	backend    credential.Backend
	httpClient *http.Client
	logger     logrus.FieldLogger

	notifier  session.Notifier
	navigator session.Navigator
	saver     saver.Saver
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig replaces the whole configuration; call it before the single-field helpers.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets Backend.BaseURL.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.Backend.BaseURL = baseURL
	return b
}

// WithRedis stores credentials in Redis through client, regardless of Storage.Driver.
// The client is not closed by Client.Close.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialBackend stores credentials in backend, overriding Storage.Driver and
// WithRedis.
func (b *Builder) WithCredentialBackend(backend credential.Backend) *Builder {
	b.backend = backend
	return b
}

// WithHTTPClient sets the client used for every backend call. Its Timeout should be zero;
// per-call timeouts come from Config.Timeouts.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithLogger sets the logger. The default writes info and above to stderr.
func (b *Builder) WithLogger(l logrus.FieldLogger) *Builder {
	b.logger = l
	return b
}

// WithNotifier sets where the session-expired notice goes. The default logs it. The
// notifier runs synchronously inside teardown and must not call Login, Logout or
// ForceSignOut.
func (b *Builder) WithNotifier(n session.Notifier) *Builder {
	b.notifier = n
	return b
}

// WithNavigator sets what moves the user to the login location after teardown. Without
// one, teardown only clears credentials and notifies.
func (b *Builder) WithNavigator(n session.Navigator) *Builder {
	b.navigator = n
	return b
}

// WithSaver sets the destination for ExportFile. The default keeps files in memory.
func (b *Builder) WithSaver(s saver.Saver) *Builder {
	b.saver = s
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the client. A Builder can be built once.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	log := b.logger
	if log == nil {
		log = logging.New(nil, logrus.InfoLevel)
	}

	c := &Client{
		config:  cfg,
		log:     log.WithField("component", "authclient"),
		metrics: NewMetrics(cfg.Metrics),
		saver:   b.saver,
	}
	if c.saver == nil {
		c.saver = saver.NewMemorySaver()
	}

	// -------- CREDENTIAL STORE --------
	backend, ownedRedis, err := b.credentialBackend(cfg)
	if err != nil {
		return nil, err
	}
	c.ownedRedis = ownedRedis
	store, err := credential.NewStore(backend, credential.PrefixedKeys(cfg.Storage.KeyPrefix))
	if err != nil {
		c.closeOwned()
		return nil, err
	}
	c.store = store

	// -------- TRANSPORT --------
	c.http = b.httpClient
	if c.http == nil {
		c.http = &http.Client{}
	}
	c.loginPath = resolvedPath(cfg.Backend.BaseURL, cfg.Backend.LoginPath)
	c.refreshPath = resolvedPath(cfg.Backend.BaseURL, cfg.Backend.RefreshPath)

	// -------- SESSION TEARDOWN --------
	c.teardown = session.NewTeardown(store, b.notifier, b.navigator, session.Config{
		LoginURL:      cfg.Session.LoginURL,
		RedirectDelay: cfg.Session.RedirectDelay,
		Message:       cfg.Session.ExpiredMessage,
		Logger:        log,
	})

	// -------- AUDIT --------
	c.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	// -------- REFRESH COORDINATOR --------
	coordinator, err := refresh.New(store, c.exchange,
		refresh.WithTimeout(cfg.Timeouts.Refresh),
		refresh.WithLogger(log),
		refresh.WithOnStart(func() { c.metricInc(MetricRefreshStarted) }),
		refresh.WithOnJoin(func() { c.metricInc(MetricRefreshJoined) }),
		refresh.WithOnSuccess(c.refreshSucceeded),
		refresh.WithOnFailure(c.refreshFailed),
	)
	if err != nil {
		c.closeOwned()
		return nil, err
	}
	c.coordinator = coordinator

	// -------- FLOWS --------
	c.flows = internalflows.New(c.flowDeps())

	b.built = true
	c.log.WithFields(logrus.Fields{
		"operation": "build",
		"base_url":  cfg.Backend.BaseURL,
		"storage":   storageName(backend),
		"proactive": cfg.Refresh.Proactive,
	}).Debug("client ready")
	return c, nil
}

func (b *Builder) credentialBackend(cfg Config) (credential.Backend, redis.UniversalClient, error) {
	if b.backend != nil {
		return b.backend, nil, nil
	}
	if b.redis != nil {
		return credential.NewRedisBackend(b.redis, cfg.Storage.TTL), nil, nil
	}

	switch cfg.Storage.Driver {
	case StorageFile:
		return credential.NewFileBackend(cfg.Storage.FilePath), nil, nil
	case StorageRedis:
		if cfg.Storage.RedisAddr == "" {
			return nil, nil, ErrRedisRequired
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:        cfg.Storage.RedisAddr,
			Password:    cfg.Storage.RedisPassword,
			DB:          cfg.Storage.RedisDB,
			DialTimeout: 5 * time.Second,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("%w: %v", credential.ErrRedisUnavailable, err)
		}
		return credential.NewRedisBackend(rdb, cfg.Storage.TTL), rdb, nil
	default:
		return credential.NewMemoryBackend(), nil, nil
	}
}

func resolvedPath(base, p string) string {
	u, err := internalflows.ResolveURL(base, p, nil)
	if err != nil {
		return p
	}
	return u.Path
}

func storageName(backend credential.Backend) string {
	switch backend.(type) {
	case *credential.MemoryBackend:
		return string(StorageMemory)
	case *credential.FileBackend:
		return string(StorageFile)
	case *credential.RedisBackend:
		return string(StorageRedis)
	default:
		return "custom"
	}
}
