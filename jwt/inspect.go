package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned by Inspect for opaque tokens.
var ErrNotJWT = errors.New("token is not a JWT")

// Claims defines the registered claims the client cares about.
//
// Zero times mean the claim was absent.
type Claims struct {
	Subject   string
	Issuer    string
	Audience  []string
	ID        string
	ExpiresAt time.Time
	IssuedAt  time.Time
	NotBefore time.Time
}

// Expired reports whether the token is past its exp claim at now.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Inspect describes the inspect operation and its observable behavior.
//
// Inspect decodes the payload of a compact JWT. The signature is not checked. Inspect
// returns ErrNotJWT when token does not have three dot-separated segments and a wrapped
// parse error when the header or payload cannot be decoded.
func Inspect(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return Claims{}, ErrNotJWT
	}

	parser := jwt.NewParser()
	var registered jwt.RegisteredClaims
	if _, _, err := parser.ParseUnverified(token, &registered); err != nil {
		return Claims{}, fmt.Errorf("inspect token: %w", err)
	}

	c := Claims{
		Subject:  registered.Subject,
		Issuer:   registered.Issuer,
		Audience: []string(registered.Audience),
		ID:       registered.ID,
	}
	if registered.ExpiresAt != nil {
		c.ExpiresAt = registered.ExpiresAt.Time
	}
	if registered.IssuedAt != nil {
		c.IssuedAt = registered.IssuedAt.Time
	}
	if registered.NotBefore != nil {
		c.NotBefore = registered.NotBefore.Time
	}
	return c, nil
}

// ExpiresWithin reports whether token carries an exp claim that falls within skew of now.
// Opaque tokens, undecodable tokens and tokens without exp report false, leaving expiry
// detection to the backend's 401.
func ExpiresWithin(token string, now time.Time, skew time.Duration) bool {
	c, err := Inspect(token)
	if err != nil || c.ExpiresAt.IsZero() {
		return false
	}
	if skew < 0 {
		skew = 0
	}
	return !now.Add(skew).Before(c.ExpiresAt)
}

// Expiry returns the exp claim of token, or the zero time when it has none.
func Expiry(token string) time.Time {
	c, err := Inspect(token)
	if err != nil {
		return time.Time{}
	}
	return c.ExpiresAt
}
