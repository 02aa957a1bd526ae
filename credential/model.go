package credential

import (
	"encoding/json"
	"errors"
)

// ErrPartialCredential is returned when a write or a stored snapshot carries exactly one
// token of the access/refresh pair.
var ErrPartialCredential = errors.New("partial credential: access and refresh tokens must be set together")

// Credential is the authenticated session snapshot held by the client.
type Credential struct {
	AccessToken  string
	RefreshToken string
	Profile      json.RawMessage
}

// Authenticated reports whether both tokens are present.
func (c Credential) Authenticated() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

// Keys names the three durable entries. Zero fields fall back to [DefaultKeys].
type Keys struct {
	AccessToken  string
	RefreshToken string
	Profile      string
}

// DefaultKeys returns the fixed key names used when no prefix is configured.
func DefaultKeys() Keys {
	return Keys{
		AccessToken:  "access_token",
		RefreshToken: "refresh_token",
		Profile:      "user_profile",
	}
}

// PrefixedKeys namespaces the default keys, e.g. "console:access_token".
func PrefixedKeys(prefix string) Keys {
	k := DefaultKeys()
	if prefix == "" {
		return k
	}
	return Keys{
		AccessToken:  prefix + ":" + k.AccessToken,
		RefreshToken: prefix + ":" + k.RefreshToken,
		Profile:      prefix + ":" + k.Profile,
	}
}

func (k Keys) normalize() Keys {
	d := DefaultKeys()
	if k.AccessToken == "" {
		k.AccessToken = d.AccessToken
	}
	if k.RefreshToken == "" {
		k.RefreshToken = d.RefreshToken
	}
	if k.Profile == "" {
		k.Profile = d.Profile
	}
	return k
}

// StoreError wraps a backend failure with the operation and key that failed.
type StoreError struct {
	Op  string // "load", "store", "remove"
	Key string
	Err error
}

func (e *StoreError) Error() string {
	msg := "credential " + e.Op
	if e.Key != "" {
		msg += " " + e.Key
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
