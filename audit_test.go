package authclient

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/authclient/internal/testbackend"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type captureSink struct {
	events chan AuditEvent
}

func newCaptureSink(buffer int) *captureSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &captureSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *captureSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// next returns the first event of the given type, skipping others.
func (s *captureSink) next(t *testing.T, eventType string) AuditEvent {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-s.events:
			if e.EventType == eventType {
				return e
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", eventType)
			return AuditEvent{}
		}
	}
}

func withAudit(sink AuditSink) func(*Config, *Builder) {
	return func(cfg *Config, b *Builder) {
		cfg.Audit.Enabled = true
		cfg.Audit.BufferSize = 64
		b.WithAuditSink(sink)
	}
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	env := newTestEnv(t, testbackend.Options{}, func(cfg *Config, b *Builder) {
		b.WithAuditSink(sink)
	})

	if resp := env.client.Login(context.Background(), LoginRequest{Username: "admin", Password: "secret"}); !resp.Success {
		t.Fatalf("login failed: %+v", resp)
	}
	env.client.Close()

	if got := sink.Count(); got != 0 {
		t.Fatalf("expected no audit events, got %d", got)
	}
	if env.client.AuditDropped() != 0 {
		t.Fatalf("expected no drops when disabled")
	}
}

func TestAuditLoginEventsCarryRequestID(t *testing.T) {
	sink := newCaptureSink(32)
	env := newTestEnv(t, testbackend.Options{}, withAudit(sink))

	ctx := WithRequestID(context.Background(), "req-login-1")
	if resp := env.client.Login(ctx, LoginRequest{Username: "admin", Password: "wrong"}); resp.Success {
		t.Fatalf("expected rejected login")
	}
	failed := sink.next(t, AuditLoginFailure)
	if failed.Success || failed.Status != 401 || failed.RequestID != "req-login-1" {
		t.Fatalf("unexpected failure event %+v", failed)
	}

	if resp := env.client.Login(ctx, LoginRequest{Username: "admin", Password: "secret"}); !resp.Success {
		t.Fatalf("login failed: %+v", resp)
	}
	ok := sink.next(t, AuditLoginSuccess)
	if !ok.Success || ok.Path != testbackend.LoginPath || ok.ID == "" || ok.Timestamp.IsZero() {
		t.Fatalf("unexpected success event %+v", ok)
	}
}

func TestAuditRefreshAndReplayEvents(t *testing.T) {
	sink := newCaptureSink(64)
	env := newTestEnv(t, testbackend.Options{}, withAudit(sink))
	env.signIn(t)
	env.server.ExpireAccess()

	if resp := env.client.Get(context.Background(), testbackend.ItemsPath); !resp.Success {
		t.Fatalf("request failed: %+v", resp)
	}
	refreshed := sink.next(t, AuditRefreshSuccess)
	if !refreshed.Success || refreshed.Path != testbackend.RefreshPath {
		t.Fatalf("unexpected refresh event %+v", refreshed)
	}
}

func TestAuditRefreshFailureAndTeardown(t *testing.T) {
	sink := newCaptureSink(64)
	env := newTestEnv(t, testbackend.Options{}, withAudit(sink))
	env.signIn(t)
	env.server.ExpireAccess()
	env.server.RevokeRefresh()

	if resp := env.client.Get(context.Background(), testbackend.ItemsPath); resp.Success {
		t.Fatalf("expected failure after revoked refresh token")
	}
	failed := sink.next(t, AuditRefreshFailure)
	if failed.Success || failed.Error == "" {
		t.Fatalf("unexpected refresh failure event %+v", failed)
	}
	teardown := sink.next(t, AuditTeardown)
	if teardown.Success {
		t.Fatalf("teardown event should not report success")
	}
	env.rec.waitNavigation(t)
}

func TestAuditJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{ID: "a", EventType: AuditLogout, Success: true})
	sink.Emit(context.Background(), AuditEvent{ID: "b", EventType: AuditTeardown})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"event_type":"logout"`) {
		t.Fatalf("unexpected first line %s", lines[0])
	}
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	var buf bytes.Buffer
	env := newTestEnv(t, testbackend.Options{}, withAudit(NewJSONWriterSink(&buf)))

	if resp := env.client.Login(context.Background(), LoginRequest{Username: "admin", Password: "secret"}); !resp.Success {
		t.Fatalf("login failed: %+v", resp)
	}
	env.client.Close()

	out := buf.String()
	if !strings.Contains(out, AuditLoginSuccess) {
		t.Fatalf("expected login event in %q", out)
	}
	for _, leak := range []string{"secret", "access_token", "refresh_token", "Bearer"} {
		if strings.Contains(out, leak) {
			t.Fatalf("audit output leaked %q", leak)
		}
	}
}
