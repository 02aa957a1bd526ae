package authclient

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authclient/credential"
	"github.com/MrEthical07/authclient/internal/logging"
	"github.com/MrEthical07/authclient/internal/testbackend"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func TestBuilderCanOnlyBuildOnce(t *testing.T) {
	b := New().WithBaseURL("http://localhost:8080").WithLogger(logging.Discard())
	c, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer c.Close()

	if _, err := b.Build(); !errors.Is(err, ErrBuilderUsed) {
		t.Fatalf("expected ErrBuilderUsed, got %v", err)
	}
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	_, err := New().WithLogger(logging.Discard()).Build()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestBuilderWithRedisClient(t *testing.T) {
	mr, rdb := newTestRedis(t)
	srv := testbackend.New(testbackend.Options{})
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Storage.KeyPrefix = "console"
	cfg.Storage.TTL = time.Hour
	c, err := New().WithConfig(cfg).WithRedis(rdb).WithLogger(logging.Discard()).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if resp := c.Login(context.Background(), LoginRequest{Username: "admin", Password: "secret"}); !resp.Success {
		t.Fatalf("login failed: %+v", resp)
	}
	got, err := mr.Get("console:access_token")
	if err != nil || got == "" {
		t.Fatalf("expected prefixed access token in redis, got %q (%v)", got, err)
	}
	if ttl := mr.TTL("console:refresh_token"); ttl != time.Hour {
		t.Fatalf("expected ttl 1h, got %v", ttl)
	}

	c.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("caller-owned redis client must stay open: %v", err)
	}
}

func TestBuilderRedisDriverFromAddress(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()

	cfg := testConfig("http://localhost:8080")
	cfg.Storage.Driver = StorageRedis
	cfg.Storage.RedisAddr = mr.Addr()
	c, err := New().WithConfig(cfg).WithLogger(logging.Discard()).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer c.Close()

	if err := c.Credentials().SetTokens(context.Background(), "T9", "R9"); err != nil {
		t.Fatalf("set tokens: %v", err)
	}
	if got, _ := mr.Get("refresh_token"); got != "R9" {
		t.Fatalf("expected refresh token in redis, got %q", got)
	}
}

func TestBuilderRedisDriverErrors(t *testing.T) {
	cfg := testConfig("http://localhost:8080")
	cfg.Storage.Driver = StorageRedis
	if _, err := New().WithConfig(cfg).WithLogger(logging.Discard()).Build(); !errors.Is(err, ErrRedisRequired) {
		t.Fatalf("expected ErrRedisRequired, got %v", err)
	}

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	cfg.Storage.RedisAddr = addr
	if _, err := New().WithConfig(cfg).WithLogger(logging.Discard()).Build(); !errors.Is(err, credential.ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}

func TestBuilderFileDriverPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	cfg := testConfig("http://localhost:8080")
	cfg.Storage.Driver = StorageFile
	cfg.Storage.FilePath = path

	c, err := New().WithConfig(cfg).WithLogger(logging.Discard()).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := c.Credentials().SetTokens(context.Background(), "T1", "R1"); err != nil {
		t.Fatalf("set tokens: %v", err)
	}
	c.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected credentials file: %v", err)
	}

	again, err := New().WithConfig(cfg).WithLogger(logging.Discard()).Build()
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	defer again.Close()
	if !again.Authenticated(context.Background()) {
		t.Fatalf("expected credentials to survive a restart")
	}
}

func TestBuilderCustomBackendWins(t *testing.T) {
	_, rdb := newTestRedis(t)
	backend := credential.NewMemoryBackend()

	c, err := New().
		WithConfig(testConfig("http://localhost:8080")).
		WithRedis(rdb).
		WithCredentialBackend(backend).
		WithLogger(logging.Discard()).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer c.Close()

	if err := c.Credentials().SetTokens(context.Background(), "T1", "R1"); err != nil {
		t.Fatalf("set tokens: %v", err)
	}
	if backend.Len() != 2 {
		t.Fatalf("expected tokens in the custom backend, got %d entries", backend.Len())
	}
}
