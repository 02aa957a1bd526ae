package authclient

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override read by LoadConfig.
const EnvPrefix = "AUTHCLIENT_"

// configFile mirrors the YAML schema. Durations are Go duration strings ("15s").
type configFile struct {
	Backend struct {
		BaseURL     string `yaml:"base_url"`
		LoginPath   string `yaml:"login_path"`
		RefreshPath string `yaml:"refresh_path"`
		ProfilePath string `yaml:"profile_path"`
		LogoutPath  string `yaml:"logout_path"`
		UserAgent   string `yaml:"user_agent"`
	} `yaml:"backend"`
	Timeouts struct {
		Request  string `yaml:"request"`
		Refresh  string `yaml:"refresh"`
		Transfer string `yaml:"transfer"`
	} `yaml:"timeouts"`
	Storage struct {
		Driver        string `yaml:"driver"`
		FilePath      string `yaml:"file_path"`
		RedisAddr     string `yaml:"redis_addr"`
		RedisPassword string `yaml:"redis_password"`
		RedisDB       *int   `yaml:"redis_db"`
		KeyPrefix     string `yaml:"key_prefix"`
		TTL           string `yaml:"ttl"`
	} `yaml:"storage"`
	Session struct {
		LoginURL       string `yaml:"login_url"`
		RedirectDelay  string `yaml:"redirect_delay"`
		ExpiredMessage string `yaml:"expired_message"`
	} `yaml:"session"`
	Refresh struct {
		Proactive  *bool  `yaml:"proactive"`
		ExpirySkew string `yaml:"expiry_skew"`
	} `yaml:"refresh"`
	Audit struct {
		Enabled    *bool `yaml:"enabled"`
		BufferSize int   `yaml:"buffer_size"`
		DropIfFull *bool `yaml:"drop_if_full"`
	} `yaml:"audit"`
	Metrics struct {
		Enabled                 *bool `yaml:"enabled"`
		EnableLatencyHistograms *bool `yaml:"enable_latency_histograms"`
	} `yaml:"metrics"`
}

// LoadConfig resolves configuration in priority order: defaults -> YAML file -> .env ->
// environment. An empty path or a missing file skips the file layer. The result is
// validated.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := applyConfigFile(&cfg, raw); err != nil {
				return Config{}, err
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	// .env never overrides variables already present in the process environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

func applyConfigFile(cfg *Config, raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&cfg.Backend.BaseURL, f.Backend.BaseURL)
	setString(&cfg.Backend.LoginPath, f.Backend.LoginPath)
	setString(&cfg.Backend.RefreshPath, f.Backend.RefreshPath)
	setString(&cfg.Backend.ProfilePath, f.Backend.ProfilePath)
	setString(&cfg.Backend.LogoutPath, f.Backend.LogoutPath)
	setString(&cfg.Backend.UserAgent, f.Backend.UserAgent)

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"timeouts.request", f.Timeouts.Request, &cfg.Timeouts.Request},
		{"timeouts.refresh", f.Timeouts.Refresh, &cfg.Timeouts.Refresh},
		{"timeouts.transfer", f.Timeouts.Transfer, &cfg.Timeouts.Transfer},
		{"storage.ttl", f.Storage.TTL, &cfg.Storage.TTL},
		{"session.redirect_delay", f.Session.RedirectDelay, &cfg.Session.RedirectDelay},
		{"refresh.expiry_skew", f.Refresh.ExpirySkew, &cfg.Refresh.ExpirySkew},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse config file: %s: %w", d.name, err)
		}
		*d.dst = v
	}

	if f.Storage.Driver != "" {
		cfg.Storage.Driver = StorageDriver(strings.ToLower(strings.TrimSpace(f.Storage.Driver)))
	}
	setString(&cfg.Storage.FilePath, f.Storage.FilePath)
	setString(&cfg.Storage.RedisAddr, f.Storage.RedisAddr)
	setString(&cfg.Storage.RedisPassword, f.Storage.RedisPassword)
	if f.Storage.RedisDB != nil {
		cfg.Storage.RedisDB = *f.Storage.RedisDB
	}
	setString(&cfg.Storage.KeyPrefix, f.Storage.KeyPrefix)

	setString(&cfg.Session.LoginURL, f.Session.LoginURL)
	setString(&cfg.Session.ExpiredMessage, f.Session.ExpiredMessage)

	setBool(&cfg.Refresh.Proactive, f.Refresh.Proactive)
	setBool(&cfg.Audit.Enabled, f.Audit.Enabled)
	setBool(&cfg.Audit.DropIfFull, f.Audit.DropIfFull)
	if f.Audit.BufferSize > 0 {
		cfg.Audit.BufferSize = f.Audit.BufferSize
	}
	setBool(&cfg.Metrics.Enabled, f.Metrics.Enabled)
	setBool(&cfg.Metrics.EnableLatencyHistograms, f.Metrics.EnableLatencyHistograms)
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Backend.BaseURL = envOrDefault("BASE_URL", cfg.Backend.BaseURL)
	cfg.Backend.LoginPath = envOrDefault("LOGIN_PATH", cfg.Backend.LoginPath)
	cfg.Backend.RefreshPath = envOrDefault("REFRESH_PATH", cfg.Backend.RefreshPath)
	cfg.Backend.ProfilePath = envOrDefault("PROFILE_PATH", cfg.Backend.ProfilePath)
	cfg.Backend.LogoutPath = envOrDefault("LOGOUT_PATH", cfg.Backend.LogoutPath)
	cfg.Backend.UserAgent = envOrDefault("USER_AGENT", cfg.Backend.UserAgent)

	cfg.Storage.Driver = StorageDriver(strings.ToLower(envOrDefault("STORAGE_DRIVER", string(cfg.Storage.Driver))))
	cfg.Storage.FilePath = envOrDefault("STORAGE_FILE", cfg.Storage.FilePath)
	cfg.Storage.RedisAddr = envOrDefault("REDIS_ADDR", cfg.Storage.RedisAddr)
	cfg.Storage.RedisPassword = envOrDefault("REDIS_PASSWORD", cfg.Storage.RedisPassword)
	cfg.Storage.KeyPrefix = envOrDefault("KEY_PREFIX", cfg.Storage.KeyPrefix)
	cfg.Session.LoginURL = envOrDefault("LOGIN_URL", cfg.Session.LoginURL)
	cfg.Session.ExpiredMessage = envOrDefault("EXPIRED_MESSAGE", cfg.Session.ExpiredMessage)

	var err error
	if cfg.Storage.RedisDB, err = envInt("REDIS_DB", cfg.Storage.RedisDB); err != nil {
		return err
	}
	if cfg.Audit.BufferSize, err = envInt("AUDIT_BUFFER_SIZE", cfg.Audit.BufferSize); err != nil {
		return err
	}

	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"REQUEST_TIMEOUT", &cfg.Timeouts.Request},
		{"REFRESH_TIMEOUT", &cfg.Timeouts.Refresh},
		{"TRANSFER_TIMEOUT", &cfg.Timeouts.Transfer},
		{"STORAGE_TTL", &cfg.Storage.TTL},
		{"REDIRECT_DELAY", &cfg.Session.RedirectDelay},
		{"EXPIRY_SKEW", &cfg.Refresh.ExpirySkew},
	} {
		if *d.dst, err = envDuration(d.key, *d.dst); err != nil {
			return err
		}
	}

	for _, b := range []struct {
		key string
		dst *bool
	}{
		{"PROACTIVE_REFRESH", &cfg.Refresh.Proactive},
		{"AUDIT_ENABLED", &cfg.Audit.Enabled},
		{"AUDIT_DROP_IF_FULL", &cfg.Audit.DropIfFull},
		{"METRICS_ENABLED", &cfg.Metrics.Enabled},
		{"METRICS_LATENCY", &cfg.Metrics.EnableLatencyHistograms},
	} {
		if *b.dst, err = envBool(b.key, *b.dst); err != nil {
			return err
		}
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func envOrDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := envOrDefault(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return v, nil
}

func envBool(key string, fallback bool) (bool, error) {
	raw := envOrDefault(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return v, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := envOrDefault(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return v, nil
}
