package authclient

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/MrEthical07/authclient/jwt"
)

// TokenSource exposes the stored access token to oauth2-aware libraries. Expiry is taken
// from the token's exp claim when it is a JWT and left zero otherwise.
//
// With proactive refresh enabled, a token inside the expiry skew is renewed through the
// shared refresh coordinator before it is returned.
func (c *Client) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, c: c}
}

type tokenSource struct {
	ctx context.Context
	c   *Client
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	c := s.c
	if !c.ready() {
		return nil, ErrClientNotReady
	}
	access, err := c.store.AccessToken(s.ctx)
	if err != nil {
		return nil, err
	}
	if access == "" {
		return nil, ErrNotAuthenticated
	}

	if c.config.Refresh.Proactive && c.expiresSoon(access) {
		fresh, err := c.coordinator.AcquireAfter(s.ctx, access)
		if err != nil {
			return nil, err
		}
		c.metricInc(MetricProactiveRefresh)
		access = fresh
	}

	return &oauth2.Token{
		AccessToken: access,
		TokenType:   "Bearer",
		Expiry:      jwt.Expiry(access),
	}, nil
}
