package authclient

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/authclient/session"
)

// Config defines a public type used by authclient APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Backend  BackendConfig
	Timeouts TimeoutConfig
	Storage  StorageConfig
	Session  SessionConfig
	Refresh  RefreshConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
BACKEND CONFIG
====================================
*/

// BackendConfig locates the backend and its authentication endpoints. Paths are joined to
// BaseURL; the login and refresh paths never enter the refresh flow.
type BackendConfig struct {
	BaseURL     string
	LoginPath   string
	RefreshPath string
	ProfilePath string
	LogoutPath  string // empty disables the remote logout call
	UserAgent   string
}

/*
====================================
TIMEOUT CONFIG
====================================
*/

// TimeoutConfig bounds each kind of call independently. Transfer applies to Upload and
// ExportFile.
type TimeoutConfig struct {
	Request  time.Duration
	Refresh  time.Duration
	Transfer time.Duration
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageDriver selects the credential backend.
type StorageDriver string

const (
	StorageMemory StorageDriver = "memory"
	StorageFile   StorageDriver = "file"
	StorageRedis  StorageDriver = "redis"
)

// StorageConfig defines a public type used by authclient APIs.
//
// StorageConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StorageConfig struct {
	Driver        StorageDriver
	FilePath      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
	TTL           time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls teardown presentation.
type SessionConfig struct {
	LoginURL       string
	RedirectDelay  time.Duration
	ExpiredMessage string
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig enables renewal before dispatch when the access token is a JWT whose exp
// falls within ExpirySkew. Opaque tokens always wait for the backend's 401.
type RefreshConfig struct {
	Proactive  bool
	ExpirySkew time.Duration
}

// AuditConfig defines a public type used by authclient APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by authclient APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration. BaseURL must still be set.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			LoginPath:   "/auth/login",
			RefreshPath: "/auth/refresh",
			ProfilePath: "/auth/profile",
			UserAgent:   "authclient/1.0",
		},
		Timeouts: TimeoutConfig{
			Request:  15 * time.Second,
			Refresh:  10 * time.Second,
			Transfer: 120 * time.Second,
		},
		Storage: StorageConfig{
			Driver: StorageMemory,
		},
		Session: SessionConfig{
			LoginURL:       session.DefaultLoginURL,
			RedirectDelay:  session.DefaultRedirectDelay,
			ExpiredMessage: session.DefaultMessage,
		},
		Refresh: RefreshConfig{
			Proactive:  false,
			ExpirySkew: 30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Backend
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return errors.New("Backend BaseURL is required")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Host == "" {
		return errors.New("Backend BaseURL must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("Backend BaseURL scheme must be http or https")
	}
	if !strings.HasPrefix(c.Backend.LoginPath, "/") {
		return errors.New("Backend LoginPath must start with /")
	}
	if !strings.HasPrefix(c.Backend.RefreshPath, "/") {
		return errors.New("Backend RefreshPath must start with /")
	}
	if !strings.HasPrefix(c.Backend.ProfilePath, "/") {
		return errors.New("Backend ProfilePath must start with /")
	}
	if c.Backend.LogoutPath != "" && !strings.HasPrefix(c.Backend.LogoutPath, "/") {
		return errors.New("Backend LogoutPath must start with /")
	}
	if c.Backend.LoginPath == c.Backend.RefreshPath {
		return errors.New("Backend LoginPath and RefreshPath must differ")
	}

	// Timeouts
	if c.Timeouts.Request <= 0 {
		return errors.New("Timeouts Request must be > 0")
	}
	if c.Timeouts.Refresh <= 0 {
		return errors.New("Timeouts Refresh must be > 0")
	}
	if c.Timeouts.Transfer < c.Timeouts.Request {
		return errors.New("Timeouts Transfer must be >= Timeouts Request")
	}
	if c.Timeouts.Refresh > c.Timeouts.Transfer {
		return errors.New("Timeouts Refresh must be <= Timeouts Transfer")
	}

	// Storage
	switch c.Storage.Driver {
	case StorageMemory, StorageRedis:
	case StorageFile:
		if strings.TrimSpace(c.Storage.FilePath) == "" {
			return errors.New("Storage FilePath is required for the file driver")
		}
	default:
		return errors.New("Storage Driver must be 'memory', 'file' or 'redis'")
	}
	if c.Storage.RedisDB < 0 {
		return errors.New("Storage RedisDB must be >= 0")
	}
	if c.Storage.TTL < 0 {
		return errors.New("Storage TTL must be >= 0")
	}
	if strings.ContainsAny(c.Storage.KeyPrefix, " \t\n") {
		return errors.New("Storage KeyPrefix must not contain whitespace")
	}

	// Session
	if strings.TrimSpace(c.Session.LoginURL) == "" {
		return errors.New("Session LoginURL is required")
	}
	if c.Session.RedirectDelay < 0 || c.Session.RedirectDelay > time.Minute {
		return errors.New("Session RedirectDelay must be between 0 and 1m")
	}

	// Refresh
	if c.Refresh.ExpirySkew < 0 || c.Refresh.ExpirySkew > 10*time.Minute {
		return errors.New("Refresh ExpirySkew must be between 0 and 10m")
	}
	if c.Refresh.Proactive && c.Refresh.ExpirySkew == 0 {
		return errors.New("Refresh ExpirySkew must be > 0 when Proactive is true")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
