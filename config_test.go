package authclient

import (
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := DefaultConfig()
	cfg.Backend.BaseURL = "https://api.example.com/v1"
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults with base url valid",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "missing base url invalid",
			mutate: func(c *Config) {
				c.Backend.BaseURL = "  "
			},
			wantValid: false,
		},
		{
			name: "relative base url invalid",
			mutate: func(c *Config) {
				c.Backend.BaseURL = "/api"
			},
			wantValid: false,
		},
		{
			name: "ftp base url invalid",
			mutate: func(c *Config) {
				c.Backend.BaseURL = "ftp://files.example.com"
			},
			wantValid: false,
		},
		{
			name: "login path without slash invalid",
			mutate: func(c *Config) {
				c.Backend.LoginPath = "auth/login"
			},
			wantValid: false,
		},
		{
			name: "login equals refresh invalid",
			mutate: func(c *Config) {
				c.Backend.RefreshPath = c.Backend.LoginPath
			},
			wantValid: false,
		},
		{
			name: "logout path optional",
			mutate: func(c *Config) {
				c.Backend.LogoutPath = ""
			},
			wantValid: true,
		},
		{
			name: "logout path without slash invalid",
			mutate: func(c *Config) {
				c.Backend.LogoutPath = "logout"
			},
			wantValid: false,
		},
		{
			name: "zero request timeout invalid",
			mutate: func(c *Config) {
				c.Timeouts.Request = 0
			},
			wantValid: false,
		},
		{
			name: "transfer shorter than request invalid",
			mutate: func(c *Config) {
				c.Timeouts.Transfer = time.Second
			},
			wantValid: false,
		},
		{
			name: "refresh longer than transfer invalid",
			mutate: func(c *Config) {
				c.Timeouts.Refresh = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "refresh equal to transfer valid",
			mutate: func(c *Config) {
				c.Timeouts.Refresh = c.Timeouts.Transfer
			},
			wantValid: true,
		},
		{
			name: "file driver needs path",
			mutate: func(c *Config) {
				c.Storage.Driver = StorageFile
			},
			wantValid: false,
		},
		{
			name: "file driver with path valid",
			mutate: func(c *Config) {
				c.Storage.Driver = StorageFile
				c.Storage.FilePath = "/tmp/authclient.json"
			},
			wantValid: true,
		},
		{
			name: "unknown driver invalid",
			mutate: func(c *Config) {
				c.Storage.Driver = "etcd"
			},
			wantValid: false,
		},
		{
			name: "prefix with whitespace invalid",
			mutate: func(c *Config) {
				c.Storage.KeyPrefix = "my console"
			},
			wantValid: false,
		},
		{
			name: "negative ttl invalid",
			mutate: func(c *Config) {
				c.Storage.TTL = -time.Second
			},
			wantValid: false,
		},
		{
			name: "redirect delay too long invalid",
			mutate: func(c *Config) {
				c.Session.RedirectDelay = 2 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "proactive without skew invalid",
			mutate: func(c *Config) {
				c.Refresh.Proactive = true
				c.Refresh.ExpirySkew = 0
			},
			wantValid: false,
		},
		{
			name: "audit without buffer invalid",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatalf("expected invalid config")
			}
		})
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Timeouts.Request != 15*time.Second || cfg.Timeouts.Refresh != 10*time.Second {
		t.Fatalf("unexpected default timeouts %+v", cfg.Timeouts)
	}
	if cfg.Session.LoginURL != "/login" || cfg.Session.RedirectDelay != 1500*time.Millisecond {
		t.Fatalf("unexpected session defaults %+v", cfg.Session)
	}
	if cfg.Storage.Driver != StorageMemory {
		t.Fatalf("unexpected default driver %q", cfg.Storage.Driver)
	}
}
