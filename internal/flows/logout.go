package flows

import (
	"context"
	"net/http"
	"time"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	BaseURL    string
	LogoutPath string
	UserAgent  string
	Timeout    time.Duration
	Client     Doer
	RequestID  func(context.Context) string

	AccessToken func(context.Context) (string, error)
	Clear       func(context.Context) error
}

// LogoutResult reports the remote call and the local clear separately.
type LogoutResult struct {
	Status    int
	RemoteErr error
	ClearErr  error
}

// RunLogout notifies the backend when a logout path is configured, then clears the local
// credential set regardless of the remote outcome.
func RunLogout(ctx context.Context, deps LogoutDeps) LogoutResult {
	var res LogoutResult

	if deps.LogoutPath != "" {
		token := ""
		if deps.AccessToken != nil {
			token, _ = deps.AccessToken(ctx)
		}
		if token != "" {
			requestID := ""
			if deps.RequestID != nil {
				requestID = deps.RequestID(ctx)
			}
			status, _, body, err := send(ctx, Request{Method: http.MethodPost, Path: deps.LogoutPath}, token, requestID, DispatchDeps{
				BaseURL:        deps.BaseURL,
				UserAgent:      deps.UserAgent,
				Client:         deps.Client,
				DefaultTimeout: deps.Timeout,
			})
			res.Status = status
			switch {
			case err != nil:
				res.RemoteErr = err
			case !Successful(status):
				res.RemoteErr = NewStatusError(status, body)
			}
		}
	}

	res.ClearErr = deps.Clear(ctx)
	return res
}
