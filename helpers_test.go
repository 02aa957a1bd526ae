package authclient

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authclient/internal/logging"
	"github.com/MrEthical07/authclient/internal/testbackend"
	"github.com/MrEthical07/authclient/saver"
	"github.com/MrEthical07/authclient/session"
)

// recorder captures teardown side effects.
type recorder struct {
	mu       sync.Mutex
	notices  []session.Notice
	navigate chan string
}

func newRecorder() *recorder {
	return &recorder{navigate: make(chan string, 8)}
}

func (r *recorder) Notify(_ context.Context, n session.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) Navigate(target string) {
	r.navigate <- target
}

func (r *recorder) Notices() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

func (r *recorder) waitNavigation(t *testing.T) string {
	t.Helper()
	select {
	case target := <-r.navigate:
		return target
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for navigation")
		return ""
	}
}

type testEnv struct {
	client *Client
	server *testbackend.Server
	rec    *recorder
	saver  *saver.MemorySaver
}

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.Backend.BaseURL = baseURL
	cfg.Backend.LogoutPath = testbackend.LogoutPath
	cfg.Session.RedirectDelay = 10 * time.Millisecond
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestEnv(t *testing.T, opts testbackend.Options, configure ...func(*Config, *Builder)) *testEnv {
	t.Helper()

	srv := testbackend.New(opts)
	t.Cleanup(srv.Close)

	env := &testEnv{server: srv, rec: newRecorder(), saver: saver.NewMemorySaver()}
	cfg := testConfig(srv.URL)
	b := New()
	for _, fn := range configure {
		fn(&cfg, b)
	}
	c, err := b.WithConfig(cfg).
		WithLogger(logging.Discard()).
		WithNotifier(env.rec).
		WithNavigator(env.rec).
		WithSaver(env.saver).
		Build()
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	t.Cleanup(c.Close)
	env.client = c
	return env
}

// signIn seeds the store with a pair issued by the fake backend.
func (e *testEnv) signIn(t *testing.T) (string, string) {
	t.Helper()
	access, refresh := e.server.Issue("admin")
	if err := e.client.Credentials().SetTokens(context.Background(), access, refresh); err != nil {
		t.Fatalf("seed tokens: %v", err)
	}
	return access, refresh
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
