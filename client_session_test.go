package authclient

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/MrEthical07/authclient/internal/testbackend"
)

func TestLoginStoresSessionAndProfile(t *testing.T) {
	env := newTestEnv(t, testbackend.Options{})
	ctx := context.Background()

	resp := env.client.Login(ctx, LoginRequest{Username: "admin", Password: "secret"})
	if !resp.Success {
		t.Fatalf("login failed: %q", resp.Message)
	}
	var profile struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	if err := resp.Decode(&profile); err != nil || profile.Username != "admin" {
		t.Fatalf("unexpected profile %+v %v", profile, err)
	}
	if !env.client.Authenticated(ctx) {
		t.Fatalf("expected authenticated client")
	}
	stored, err := env.client.Profile(ctx)
	if err != nil || string(stored) != string(resp.Data) {
		t.Fatalf("expected stored profile %s, got %s %v", resp.Data, stored, err)
	}

	items := env.client.Get(ctx, testbackend.ItemsPath)
	if !items.Success {
		t.Fatalf("authenticated request failed: %q", items.Message)
	}
	if got := env.client.MetricsSnapshot().Counters[MetricLoginSuccess]; got != 1 {
		t.Fatalf("expected login metric, got %d", got)
	}
}

func TestLoginRejectedNeverRefreshes(t *testing.T) {
	env := newTestEnv(t, testbackend.Options{})

	resp := env.client.Login(context.Background(), LoginRequest{Username: "admin", Password: "wrong"})
	if resp.Success || resp.Message != "Invalid username or password" || resp.Status != http.StatusUnauthorized {
		t.Fatalf("unexpected response %+v", resp)
	}
	if !errors.Is(resp.Err(), ErrLoginFailed) {
		t.Fatalf("expected ErrLoginFailed, got %v", resp.Err())
	}
	stats := env.server.Stats()
	if stats.Refresh != 0 || stats.Profile != 0 {
		t.Fatalf("login rejection must not refresh or fetch the profile: %+v", stats)
	}
	if env.rec.Notices() != 0 {
		t.Fatalf("login rejection must not tear down")
	}
}

func TestLoginProfileFailureClearsCredentials(t *testing.T) {
	env := newTestEnv(t, testbackend.Options{})
	env.server.FailProfile(http.StatusInternalServerError)

	resp := env.client.Login(context.Background(), LoginRequest{Username: "admin", Password: "secret"})
	if resp.Success || resp.Message != "Profile unavailable" {
		t.Fatalf("unexpected response %+v", resp)
	}
	cred, err := env.client.Credentials().Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if cred.AccessToken != "" || cred.RefreshToken != "" || cred.Profile != nil {
		t.Fatalf("expected empty credential after profile failure, got %+v", cred)
	}
}

func TestLogoutClearsWithoutTeardown(t *testing.T) {
	env := newTestEnv(t, testbackend.Options{})
	ctx := context.Background()
	if resp := env.client.Login(ctx, LoginRequest{Username: "admin", Password: "secret"}); !resp.Success {
		t.Fatalf("login: %q", resp.Message)
	}

	resp := env.client.Logout(ctx)
	if !resp.Success {
		t.Fatalf("logout failed: %q", resp.Message)
	}
	if env.client.Authenticated(ctx) {
		t.Fatalf("expected cleared credentials")
	}
	if env.server.Stats().Logout != 1 {
		t.Fatalf("expected remote logout call")
	}
	if env.rec.Notices() != 0 {
		t.Fatalf("logout must not notify")
	}
}

func TestLogoutClearsEvenWhenRemoteFails(t *testing.T) {
	env := newTestEnv(t, testbackend.Options{})
	ctx := context.Background()
	env.signIn(t)
	env.server.ExpireAccess()

	if resp := env.client.Logout(ctx); !resp.Success {
		t.Fatalf("local logout should succeed, got %q", resp.Message)
	}
	if env.client.Authenticated(ctx) {
		t.Fatalf("expected cleared credentials")
	}
	if env.server.Stats().Refresh != 0 {
		t.Fatalf("logout must not refresh")
	}
}

func TestForceSignOutIsIdempotentAndRearmedByLogin(t *testing.T) {
	env := newTestEnv(t, testbackend.Options{})
	ctx := context.Background()
	env.signIn(t)

	if !env.client.ForceSignOut(ctx, nil) {
		t.Fatalf("expected first sign-out to notify")
	}
	if env.client.ForceSignOut(ctx, errors.New("revoked")) {
		t.Fatalf("expected second sign-out to be silent")
	}
	if env.rec.Notices() != 1 {
		t.Fatalf("expected one notice, got %d", env.rec.Notices())
	}
	env.rec.waitNavigation(t)
	select {
	case target := <-env.rec.navigate:
		t.Fatalf("unexpected second navigation to %q", target)
	case <-time.After(50 * time.Millisecond):
	}
	if env.client.Authenticated(ctx) {
		t.Fatalf("expected cleared credentials")
	}

	if resp := env.client.Login(ctx, LoginRequest{Username: "admin", Password: "secret"}); !resp.Success {
		t.Fatalf("login: %q", resp.Message)
	}
	if !env.client.ForceSignOut(ctx, nil) {
		t.Fatalf("expected sign-out after a new login to notify again")
	}
}

func TestProactiveRefreshBeforeDispatch(t *testing.T) {
	env := newTestEnv(t, testbackend.Options{AccessTTL: 5 * time.Second}, func(cfg *Config, _ *Builder) {
		cfg.Refresh.Proactive = true
		cfg.Refresh.ExpirySkew = time.Minute
	})
	env.signIn(t)

	resp := env.client.Get(context.Background(), testbackend.ItemsPath)
	if !resp.Success {
		t.Fatalf("request failed: %q", resp.Message)
	}
	stats := env.server.Stats()
	if stats.Refresh != 1 || stats.Unauthorized != 0 {
		t.Fatalf("expected one refresh before dispatch and no 401, got %+v", stats)
	}
	if got := env.client.MetricsSnapshot().Counters[MetricProactiveRefresh]; got != 1 {
		t.Fatalf("expected proactive refresh metric, got %d", got)
	}
}

func TestTokenSource(t *testing.T) {
	env := newTestEnv(t, testbackend.Options{AccessTTL: time.Hour})
	ctx := context.Background()

	if _, err := env.client.TokenSource(ctx).Token(); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}

	access, _ := env.signIn(t)
	tok, err := env.client.TokenSource(ctx).Token()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok.AccessToken != access || tok.TokenType != "Bearer" {
		t.Fatalf("unexpected token %+v", tok)
	}
	if until := time.Until(tok.Expiry); until < 50*time.Minute || until > time.Hour+time.Minute {
		t.Fatalf("expected expiry from the JWT exp claim, got %v", tok.Expiry)
	}
	if !tok.Valid() {
		t.Fatalf("expected valid oauth2 token")
	}
}
