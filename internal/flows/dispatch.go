package flows

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// DispatchFailureKind classifies dispatch failures for root-level mapping.
type DispatchFailureKind int

const (
	DispatchFailureNone DispatchFailureKind = iota
	DispatchFailureBuild
	DispatchFailureTransport
	DispatchFailureTimeout
	DispatchFailureRefresh
	DispatchFailureUnauthorized
)

// DispatchResult carries the raw backend reply or failure metadata.
//
// A reply with any HTTP status, including 4xx and 5xx, is DispatchFailureNone; only a 401
// on the replay is reported as DispatchFailureUnauthorized.
type DispatchResult struct {
	Failure   DispatchFailureKind
	Err       error
	Status    int
	Header    http.Header
	Body      []byte
	RequestID string
	Attempts  int
	Duration  time.Duration

	Unauthorized     bool // the first attempt was rejected with 401
	Replayed         bool
	ProactiveRefresh bool
}

// DispatchDeps captures dispatch flow dependencies.
type DispatchDeps struct {
	BaseURL        string
	UserAgent      string
	Client         Doer
	DefaultTimeout time.Duration

	AccessToken  func(context.Context) (string, error)
	Refresh      func(ctx context.Context, rejected string) (string, error)
	ExpiresSoon  func(token string) bool
	Proactive    bool
	IsAuthPath   func(path string) bool
	RequestID    func(context.Context) string
	Now          func() time.Time
	Warn         func(string, ...any)
}

// RunDispatch sends req as the given attempt. Attempt 0 may refresh the credential once
// and replay as attempt 1; attempt 1 never refreshes.
func RunDispatch(ctx context.Context, req Request, attempt int, deps DispatchDeps) DispatchResult {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	started := now()

	requestID := ""
	if deps.RequestID != nil {
		requestID = deps.RequestID(ctx)
	}

	res := runAttempt(ctx, req, attempt, requestID, deps)
	res.RequestID = requestID
	res.Duration = now().Sub(started)
	return res
}

func runAttempt(ctx context.Context, req Request, attempt int, requestID string, deps DispatchDeps) DispatchResult {
	authPath := deps.IsAuthPath != nil && deps.IsAuthPath(req.Path)

	token, err := deps.AccessToken(ctx)
	if err != nil {
		if deps.Warn != nil {
			deps.Warn("authclient: read access token failed: %v", err)
		}
		token = ""
	}

	proactive := false
	if attempt == 0 && !authPath && deps.Proactive && token != "" &&
		deps.ExpiresSoon != nil && deps.ExpiresSoon(token) && deps.Refresh != nil {
		fresh, err := deps.Refresh(ctx, token)
		if err != nil {
			return DispatchResult{Failure: refreshFailureKind(ctx, err), Err: err, Attempts: attempt}
		}
		token = fresh
		proactive = true
	}

	status, header, body, err := send(ctx, req, token, requestID, deps)
	if err != nil {
		kind := DispatchFailureTransport
		if errors.Is(err, errBuild) {
			kind = DispatchFailureBuild
		} else if isTimeout(err) {
			kind = DispatchFailureTimeout
		}
		return DispatchResult{Failure: kind, Err: err, Attempts: attempt + 1, ProactiveRefresh: proactive}
	}

	if status != http.StatusUnauthorized || authPath {
		return DispatchResult{
			Status:           status,
			Header:           header,
			Body:             body,
			Attempts:         attempt + 1,
			ProactiveRefresh: proactive,
		}
	}

	if attempt > 0 || deps.Refresh == nil {
		return DispatchResult{
			Failure:  DispatchFailureUnauthorized,
			Err:      NewStatusError(status, body),
			Status:   status,
			Header:   header,
			Body:     body,
			Attempts: attempt + 1,
		}
	}

	if _, err := deps.Refresh(ctx, token); err != nil {
		return DispatchResult{
			Failure:      refreshFailureKind(ctx, err),
			Err:          err,
			Status:       status,
			Attempts:     attempt + 1,
			Unauthorized: true,
		}
	}

	replay := runAttempt(ctx, req, attempt+1, requestID, deps)
	replay.Unauthorized = true
	replay.Replayed = true
	replay.ProactiveRefresh = replay.ProactiveRefresh || proactive
	return replay
}

// refreshFailureKind reports a caller that stopped waiting for the exchange as a
// transport failure; the exchange itself keeps running for the other waiters.
func refreshFailureKind(ctx context.Context, err error) DispatchFailureKind {
	if ctx.Err() == nil || !errors.Is(err, ctx.Err()) {
		return DispatchFailureRefresh
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return DispatchFailureTimeout
	}
	return DispatchFailureTransport
}

var errBuild = errors.New("build request")

func send(ctx context.Context, r Request, token, requestID string, deps DispatchDeps) (int, http.Header, []byte, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = deps.DefaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := r.build(ctx, deps.BaseURL, token, requestID, deps.UserAgent)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %w", errBuild, err)
	}

	client := deps.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, err
	}
	return resp.StatusCode, resp.Header, body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
