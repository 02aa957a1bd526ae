package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrBodyNotReplayable is returned when a request rejected with 401 carries a body that
// cannot be re-read for the replay.
var ErrBodyNotReplayable = errors.New("middleware: request body cannot be replayed (GetBody is nil)")

// TokenReader returns the current access token, or "" when none is stored.
type TokenReader interface {
	AccessToken(ctx context.Context) (string, error)
}

// Refresher renews the access token after rejected was refused by the server.
// *refresh.Coordinator satisfies it.
type Refresher interface {
	AcquireAfter(ctx context.Context, rejected string) (string, error)
}

// Transport injects bearer tokens and replays a request once after a refresh.
type Transport struct {
	// Base performs the round trips. nil means http.DefaultTransport.
	Base      http.RoundTripper
	Tokens    TokenReader
	Refresher Refresher
	// SkipPaths are URL paths that never trigger a refresh, typically the login and
	// refresh endpoints.
	SkipPaths []string
	// OnReplay, when set, is called before the replayed round trip.
	OnReplay func(*http.Request)
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	token := ""
	if t.Tokens != nil {
		token, _ = t.Tokens.AccessToken(ctx)
	}

	first := req.Clone(ctx)
	setBearer(first, token)
	resp, err := t.base().RoundTrip(first)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || t.Refresher == nil || t.skip(req) {
		return resp, err
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}

	sent, _ := bearerToken(first.Header.Get("Authorization"))
	drain(resp)

	fresh, err := t.Refresher.AcquireAfter(ctx, sent)
	if err != nil {
		return nil, fmt.Errorf("middleware: refresh after 401: %w", err)
	}

	replay := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, errors.Join(ErrBodyNotReplayable, err)
		}
		replay.Body = body
	}
	setBearer(replay, fresh)
	if t.OnReplay != nil {
		t.OnReplay(replay)
	}
	return t.base().RoundTrip(replay)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) skip(req *http.Request) bool {
	if req.URL == nil {
		return false
	}
	p := strings.TrimRight(req.URL.Path, "/")
	for _, s := range t.SkipPaths {
		if s != "" && p == strings.TrimRight(s, "/") {
			return true
		}
	}
	return false
}

func setBearer(req *http.Request, token string) {
	if token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
