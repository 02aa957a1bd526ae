package flows

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureEncode
	LoginFailureTransport
	LoginFailureRejected
	LoginFailureMalformed
	LoginFailureProfile
	LoginFailureStore
)

// LoginRequest is the flow-local credential submission.
type LoginRequest struct {
	Username string
	Password string
	Extra    map[string]any
}

// LoginResult carries the stored session or failure metadata.
type LoginResult struct {
	Failure      LoginFailureKind
	Err          error
	Status       int
	Body         []byte
	AccessToken  string
	RefreshToken string
	Profile      []byte
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	BaseURL     string
	LoginPath   string
	ProfilePath string
	UserAgent   string
	Timeout     time.Duration
	Client      Doer
	RequestID   func(context.Context) string

	SetTokens  func(ctx context.Context, access, refresh string) error
	SetSession func(ctx context.Context, access, refresh string, profile []byte) error
	Clear      func(context.Context) error
	Warn       func(string, ...any)
}

// RunLogin exchanges credentials for a token pair, stores the pair, then fetches the
// profile with the new access token. Any failure after the pair was stored clears the
// whole credential set.
func RunLogin(ctx context.Context, in LoginRequest, deps LoginDeps) LoginResult {
	payload := make(map[string]any, len(in.Extra)+2)
	for k, v := range in.Extra {
		payload[k] = v
	}
	payload["username"] = in.Username
	payload["password"] = in.Password

	body, err := json.Marshal(payload)
	if err != nil {
		return LoginResult{Failure: LoginFailureEncode, Err: err}
	}

	requestID := ""
	if deps.RequestID != nil {
		requestID = deps.RequestID(ctx)
	}
	transport := DispatchDeps{
		BaseURL:        deps.BaseURL,
		UserAgent:      deps.UserAgent,
		Client:         deps.Client,
		DefaultTimeout: deps.Timeout,
	}

	status, _, reply, err := send(ctx, Request{Method: http.MethodPost, Path: deps.LoginPath, Body: body}, "", requestID, transport)
	if err != nil {
		return LoginResult{Failure: LoginFailureTransport, Err: err}
	}
	if !Successful(status) {
		return LoginResult{Failure: LoginFailureRejected, Err: NewStatusError(status, reply), Status: status, Body: reply}
	}

	access, refresh, err := ParseTokenPair(reply)
	if err != nil {
		return LoginResult{Failure: LoginFailureMalformed, Err: err, Status: status, Body: reply}
	}
	if err := deps.SetTokens(ctx, access, refresh); err != nil {
		return LoginResult{Failure: LoginFailureStore, Err: err}
	}

	status, _, reply, err = send(ctx, Request{Method: http.MethodGet, Path: deps.ProfilePath}, access, requestID, transport)
	if err == nil && !Successful(status) {
		err = NewStatusError(status, reply)
	}
	if err != nil {
		clearAfterLogin(ctx, deps)
		kind := LoginFailureProfile
		if status == 0 {
			kind = LoginFailureTransport
		}
		return LoginResult{Failure: kind, Err: fmt.Errorf("fetch profile: %w", err), Status: status, Body: reply}
	}

	profile := unwrapData(reply)
	if err := deps.SetSession(ctx, access, refresh, profile); err != nil {
		clearAfterLogin(ctx, deps)
		return LoginResult{Failure: LoginFailureStore, Err: err}
	}

	return LoginResult{
		Status:       status,
		AccessToken:  access,
		RefreshToken: refresh,
		Profile:      profile,
	}
}

func clearAfterLogin(ctx context.Context, deps LoginDeps) {
	if deps.Clear == nil {
		return
	}
	if err := deps.Clear(ctx); err != nil && deps.Warn != nil {
		deps.Warn("authclient: clear credentials after failed login: %v", err)
	}
}
