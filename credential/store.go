package credential

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNilBackend is returned by [NewStore] when no backend is supplied.
var ErrNilBackend = errors.New("credential backend is nil")

// Store is the single source of truth for the bearer credential and the cached profile.
//
// The token pair is always written and read in one backend call, so no observer can see a
// refresh token without its access token or the reverse.
type Store struct {
	backend Backend
	keys    Keys
}

// NewStore returns a Store over backend. Empty fields in keys use the default names.
func NewStore(backend Backend, keys Keys) (*Store, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	return &Store{backend: backend, keys: keys.normalize()}, nil
}

// AccessToken returns the stored access token, or "" when the store holds no complete pair.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	c, err := s.tokens(ctx)
	if err != nil {
		return "", err
	}
	return c.AccessToken, nil
}

// RefreshToken returns the stored refresh token, or "" when the store holds no complete pair.
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	c, err := s.tokens(ctx)
	if err != nil {
		return "", err
	}
	return c.RefreshToken, nil
}

// Profile returns the cached profile document. A missing profile yields nil.
func (s *Store) Profile(ctx context.Context) (json.RawMessage, error) {
	vals, err := s.backend.Load(ctx, s.keys.Profile)
	if err != nil {
		return nil, &StoreError{Op: "load", Key: s.keys.Profile, Err: err}
	}
	raw, ok := vals[s.keys.Profile]
	if !ok || raw == "" {
		return nil, nil
	}
	return json.RawMessage(raw), nil
}

// Snapshot reads all three entries in one call. A backend holding exactly one token is
// reported as unauthenticated together with [ErrPartialCredential].
func (s *Store) Snapshot(ctx context.Context) (Credential, error) {
	vals, err := s.backend.Load(ctx, s.keys.AccessToken, s.keys.RefreshToken, s.keys.Profile)
	if err != nil {
		return Credential{}, &StoreError{Op: "load", Err: err}
	}

	c := Credential{
		AccessToken:  vals[s.keys.AccessToken],
		RefreshToken: vals[s.keys.RefreshToken],
	}
	if p := vals[s.keys.Profile]; p != "" {
		c.Profile = json.RawMessage(p)
	}
	if (c.AccessToken == "") != (c.RefreshToken == "") {
		c.AccessToken, c.RefreshToken = "", ""
		return c, ErrPartialCredential
	}
	return c, nil
}

// SetTokens replaces the token pair in one atomic write. Both values must be non-empty.
func (s *Store) SetTokens(ctx context.Context, access, refresh string) error {
	if access == "" || refresh == "" {
		return ErrPartialCredential
	}
	err := s.backend.Store(ctx, map[string]string{
		s.keys.AccessToken:  access,
		s.keys.RefreshToken: refresh,
	})
	if err != nil {
		return &StoreError{Op: "store", Err: err}
	}
	return nil
}

// SetSession stores the tokens and the profile together after a successful login.
func (s *Store) SetSession(ctx context.Context, c Credential) error {
	if c.AccessToken == "" || c.RefreshToken == "" {
		return ErrPartialCredential
	}
	values := map[string]string{
		s.keys.AccessToken:  c.AccessToken,
		s.keys.RefreshToken: c.RefreshToken,
	}
	if len(c.Profile) > 0 {
		values[s.keys.Profile] = string(c.Profile)
	}
	if err := s.backend.Store(ctx, values); err != nil {
		return &StoreError{Op: "store", Err: err}
	}
	if len(c.Profile) == 0 {
		if err := s.backend.Remove(ctx, s.keys.Profile); err != nil {
			return &StoreError{Op: "remove", Key: s.keys.Profile, Err: err}
		}
	}
	return nil
}

// ClearTokens removes both tokens and leaves the profile in place.
func (s *Store) ClearTokens(ctx context.Context) error {
	if err := s.backend.Remove(ctx, s.keys.AccessToken, s.keys.RefreshToken); err != nil {
		return &StoreError{Op: "remove", Err: err}
	}
	return nil
}

// Clear removes the tokens and the profile. Clearing an empty store succeeds.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.Remove(ctx, s.keys.AccessToken, s.keys.RefreshToken, s.keys.Profile); err != nil {
		return &StoreError{Op: "remove", Err: err}
	}
	return nil
}

func (s *Store) tokens(ctx context.Context) (Credential, error) {
	vals, err := s.backend.Load(ctx, s.keys.AccessToken, s.keys.RefreshToken)
	if err != nil {
		return Credential{}, &StoreError{Op: "load", Err: err}
	}
	c := Credential{
		AccessToken:  vals[s.keys.AccessToken],
		RefreshToken: vals[s.keys.RefreshToken],
	}
	if (c.AccessToken == "") != (c.RefreshToken == "") {
		return Credential{}, nil
	}
	return c, nil
}
