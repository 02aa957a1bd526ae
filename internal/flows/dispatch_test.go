package flows

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// tokenBox is a minimal credential holder for dispatch tests.
type tokenBox struct {
	mu    sync.Mutex
	token string
}

func (b *tokenBox) get(context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token, nil
}

func (b *tokenBox) set(v string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = v
}

func bearerServer(t *testing.T, valid string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+valid {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"success":false,"message":"Unauthorized"}`)
			return
		}
		w.Header().Set("Content-Type", MediaTypeJSON)
		_, _ = io.WriteString(w, `{"success":true,"data":{"path":"`+r.URL.Path+`"}}`)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestDispatchPassesThroughNon401(t *testing.T) {
	srv, calls := bearerServer(t, "T1")
	box := &tokenBox{token: "T1"}

	res := RunDispatch(context.Background(), Request{Method: http.MethodGet, Path: "/items"}, 0, DispatchDeps{
		BaseURL:     srv.URL,
		AccessToken: box.get,
		RequestID:   func(context.Context) string { return "rid-1" },
	})
	if res.Failure != DispatchFailureNone || res.Status != http.StatusOK {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Attempts != 1 || res.Replayed || res.Unauthorized || res.RequestID != "rid-1" {
		t.Fatalf("unexpected bookkeeping %+v", res)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one call, got %d", calls.Load())
	}
}

func TestDispatchRefreshesOnceAndReplays(t *testing.T) {
	srv, calls := bearerServer(t, "T2")
	box := &tokenBox{token: "T1"}
	var refreshes atomic.Int32

	res := RunDispatch(context.Background(), Request{Method: http.MethodGet, Path: "/items"}, 0, DispatchDeps{
		BaseURL:     srv.URL,
		AccessToken: box.get,
		Refresh: func(_ context.Context, rejected string) (string, error) {
			if rejected != "T1" {
				t.Errorf("expected rejected token T1, got %q", rejected)
			}
			refreshes.Add(1)
			box.set("T2")
			return "T2", nil
		},
	})
	if res.Failure != DispatchFailureNone || res.Status != http.StatusOK {
		t.Fatalf("unexpected result %+v", res)
	}
	if !res.Unauthorized || !res.Replayed || res.Attempts != 2 {
		t.Fatalf("unexpected bookkeeping %+v", res)
	}
	if refreshes.Load() != 1 || calls.Load() != 2 {
		t.Fatalf("expected 1 refresh and 2 calls, got %d and %d", refreshes.Load(), calls.Load())
	}
}

func TestDispatchReplayRejectedIsTerminal(t *testing.T) {
	srv, calls := bearerServer(t, "never")
	box := &tokenBox{token: "T1"}
	var refreshes atomic.Int32

	res := RunDispatch(context.Background(), Request{Path: "/items"}, 0, DispatchDeps{
		BaseURL:     srv.URL,
		AccessToken: box.get,
		Refresh: func(context.Context, string) (string, error) {
			refreshes.Add(1)
			box.set("T2")
			return "T2", nil
		},
	})
	if res.Failure != DispatchFailureUnauthorized || res.Status != http.StatusUnauthorized {
		t.Fatalf("unexpected result %+v", res)
	}
	var se *StatusError
	if !errors.As(res.Err, &se) || se.Message != "Unauthorized" {
		t.Fatalf("expected status error with backend message, got %v", res.Err)
	}
	if refreshes.Load() != 1 || calls.Load() != 2 {
		t.Fatalf("expected 1 refresh and 2 calls, got %d and %d", refreshes.Load(), calls.Load())
	}
}

func TestDispatchRefreshFailure(t *testing.T) {
	srv, calls := bearerServer(t, "T2")
	box := &tokenBox{token: "T1"}
	boom := errors.New("Invalid refresh token")

	res := RunDispatch(context.Background(), Request{Path: "/items"}, 0, DispatchDeps{
		BaseURL:     srv.URL,
		AccessToken: box.get,
		Refresh:     func(context.Context, string) (string, error) { return "", boom },
	})
	if res.Failure != DispatchFailureRefresh || !errors.Is(res.Err, boom) || !res.Unauthorized {
		t.Fatalf("unexpected result %+v", res)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected no replay, got %d calls", calls.Load())
	}
}

func TestDispatchAuthPathNeverRefreshes(t *testing.T) {
	srv, _ := bearerServer(t, "T2")
	box := &tokenBox{token: "T1"}

	res := RunDispatch(context.Background(), Request{Method: http.MethodPost, Path: "/auth/login"}, 0, DispatchDeps{
		BaseURL:     srv.URL,
		AccessToken: box.get,
		IsAuthPath:  func(p string) bool { return strings.HasPrefix(p, "/auth/") },
		Refresh: func(context.Context, string) (string, error) {
			t.Errorf("auth path must not refresh")
			return "", nil
		},
	})
	if res.Failure != DispatchFailureNone || res.Status != http.StatusUnauthorized {
		t.Fatalf("expected plain 401 reply, got %+v", res)
	}
}

func TestDispatchProactiveRefresh(t *testing.T) {
	srv, calls := bearerServer(t, "T2")
	box := &tokenBox{token: "T1"}

	res := RunDispatch(context.Background(), Request{Path: "/items"}, 0, DispatchDeps{
		BaseURL:     srv.URL,
		AccessToken: box.get,
		Proactive:   true,
		ExpiresSoon: func(token string) bool { return token == "T1" },
		Refresh: func(context.Context, string) (string, error) {
			box.set("T2")
			return "T2", nil
		},
	})
	if res.Failure != DispatchFailureNone || !res.ProactiveRefresh || res.Replayed {
		t.Fatalf("unexpected result %+v", res)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestDispatchTimeoutAndBuildFailures(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)
	box := &tokenBox{token: "T1"}

	res := RunDispatch(context.Background(), Request{Path: "/slow", Timeout: 20 * time.Millisecond}, 0, DispatchDeps{
		BaseURL:     srv.URL,
		AccessToken: box.get,
	})
	if res.Failure != DispatchFailureTimeout {
		t.Fatalf("expected timeout, got %+v", res)
	}

	res = RunDispatch(context.Background(), Request{Method: "BAD METHOD", Path: "/x"}, 0, DispatchDeps{
		BaseURL:     srv.URL,
		AccessToken: box.get,
	})
	if res.Failure != DispatchFailureBuild {
		t.Fatalf("expected build failure, got %+v", res)
	}
}

func TestRequestBuildHeaders(t *testing.T) {
	req := Request{
		Method: http.MethodPost,
		Path:   "items",
		Query:  map[string][]string{"page": {"2"}},
		Header: http.Header{"X-Tenant": {"acme"}, "Authorization": {"Basic zzz"}},
		Body:   []byte(`{"a":1}`),
	}
	httpReq, err := req.build(context.Background(), "https://api.example.com/v1/", "T7", "rid", "authclient-test")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := httpReq.URL.String(); got != "https://api.example.com/v1/items?page=2" {
		t.Fatalf("unexpected url %s", got)
	}
	checks := map[string]string{
		"Authorization": "Bearer T7",
		"Content-Type":  MediaTypeJSON,
		"Accept":        MediaTypeJSON,
		"X-Request-ID":  "rid",
		"User-Agent":    "authclient-test",
		"X-Tenant":      "acme",
	}
	for k, want := range checks {
		if got := httpReq.Header.Get(k); got != want {
			t.Fatalf("header %s: expected %q, got %q", k, want, got)
		}
	}
	if httpReq.GetBody == nil {
		t.Fatalf("expected replayable body")
	}
}

func TestResolveURLKeepsAbsolute(t *testing.T) {
	u, err := ResolveURL("https://api.example.com", "https://files.example.com/x", nil)
	if err != nil || u.Host != "files.example.com" {
		t.Fatalf("unexpected %v %v", u, err)
	}
}

func TestDispatchCallerCancelledWhileRefreshing(t *testing.T) {
	srv, _ := bearerServer(t, "T2")
	box := &tokenBox{token: "T1"}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res := RunDispatch(ctx, Request{Path: "/items"}, 0, DispatchDeps{
		BaseURL:     srv.URL,
		AccessToken: box.get,
		Refresh: func(ctx context.Context, _ string) (string, error) {
			cancel()
			<-ctx.Done()
			return "", ctx.Err()
		},
	})
	if res.Failure != DispatchFailureTransport || !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("expected transport failure for cancelled caller, got %+v", res)
	}
}
