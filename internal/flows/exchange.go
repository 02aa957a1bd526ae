package flows

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// ErrMalformedTokens is returned when a backend reply lacks the access/refresh pair.
var ErrMalformedTokens = errors.New("token response missing accessToken or refreshToken")

// ExchangeDeps captures refresh exchange dependencies.
type ExchangeDeps struct {
	BaseURL     string
	RefreshPath string
	UserAgent   string
	Client      Doer
	RequestID   func(context.Context) string
}

// ExchangeResult carries the issued pair or failure metadata.
type ExchangeResult struct {
	AccessToken  string
	RefreshToken string
	Status       int
	Err          error
}

type refreshRequestBody struct {
	RefreshToken string `json:"refreshToken"`
}

// RunRefreshExchange posts refreshToken to the refresh endpoint. The request carries no
// bearer header and is never itself refreshed or retried.
func RunRefreshExchange(ctx context.Context, refreshToken string, deps ExchangeDeps) ExchangeResult {
	body, err := json.Marshal(refreshRequestBody{RefreshToken: refreshToken})
	if err != nil {
		return ExchangeResult{Err: err}
	}

	requestID := ""
	if deps.RequestID != nil {
		requestID = deps.RequestID(ctx)
	}
	req := Request{Method: http.MethodPost, Path: deps.RefreshPath, Body: body}
	status, _, reply, err := send(ctx, req, "", requestID, DispatchDeps{
		BaseURL:   deps.BaseURL,
		UserAgent: deps.UserAgent,
		Client:    deps.Client,
	})
	if err != nil {
		return ExchangeResult{Err: err}
	}
	if !Successful(status) {
		return ExchangeResult{Status: status, Err: NewStatusError(status, reply)}
	}

	access, refresh, err := ParseTokenPair(reply)
	if err != nil {
		return ExchangeResult{Status: status, Err: err}
	}
	return ExchangeResult{AccessToken: access, RefreshToken: refresh, Status: status}
}

// ParseTokenPair reads {data:{accessToken, refreshToken}}, also accepting the pair at the
// top level.
func ParseTokenPair(body []byte) (string, string, error) {
	if !gjson.ValidBytes(body) {
		return "", "", ErrMalformedTokens
	}
	for _, prefix := range []string{"data.", ""} {
		access := gjson.GetBytes(body, prefix+"accessToken")
		refresh := gjson.GetBytes(body, prefix+"refreshToken")
		if access.Type == gjson.String && refresh.Type == gjson.String && access.Str != "" && refresh.Str != "" {
			return access.Str, refresh.Str, nil
		}
	}
	return "", "", ErrMalformedTokens
}
