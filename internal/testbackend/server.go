// Package testbackend is an in-process fake of the admin console backend: login, token
// refresh, profile, logout, a small item collection, uploads, and exports. Tests and the
// load generator run the client against it.
package testbackend

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

// Paths served by the fake backend.
const (
	LoginPath   = "/auth/login"
	RefreshPath = "/auth/refresh"
	ProfilePath = "/auth/profile"
	LogoutPath  = "/auth/logout"
	ItemsPath   = "/api/items"
	BarePath    = "/api/bare"
	FailPath    = "/api/fail"
	SlowPath    = "/api/slow"
	UploadPath  = "/api/upload"
	ExportPath  = "/api/export"
)

var signingKey = []byte("testbackend-signing-key")

// Options configures a Server.
type Options struct {
	// Users maps username to password. Empty means {"admin": "secret"}.
	Users map[string]string
	// AccessTTL, when positive, makes access tokens HS256 JWTs expiring after AccessTTL.
	// Otherwise access tokens are opaque.
	AccessTTL time.Duration
	// RefreshDelay is added to every refresh exchange.
	RefreshDelay time.Duration
	// SlowDelay is how long SlowPath takes to answer.
	SlowDelay time.Duration
}

// Server is a running fake backend.
type Server struct {
	*httptest.Server

	opts Options

	mu         sync.Mutex
	access     map[string]string // access token -> username
	refresh    map[string]string // refresh token -> username
	items      map[string]Item
	headers    []string
	profileErr int
	refreshErr int
	gate       chan struct{}

	seq          atomic.Int64
	loginCalls   atomic.Int64
	refreshCalls atomic.Int64
	profileCalls atomic.Int64
	logoutCalls  atomic.Int64
	apiCalls     atomic.Int64
	unauthorized atomic.Int64
}

// Item is the resource served under ItemsPath.
type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// New starts a fake backend. Close it with Server.Close.
func New(opts Options) *Server {
	if len(opts.Users) == 0 {
		opts.Users = map[string]string{"admin": "secret"}
	}
	if opts.SlowDelay <= 0 {
		opts.SlowDelay = 2 * time.Second
	}
	s := &Server{
		opts:    opts,
		access:  make(map[string]string),
		refresh: make(map[string]string),
		items:   make(map[string]Item),
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Post(LoginPath, s.login)
	r.Post(RefreshPath, s.refreshTokens)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get(ProfilePath, s.profile)
		r.Post(LogoutPath, s.logout)

		r.Route(ItemsPath, func(r chi.Router) {
			r.Get("/", s.listItems)
			r.Post("/", s.createItem)
			r.Get("/{id}", s.getItem)
			r.Put("/{id}", s.updateItem)
			r.Patch("/{id}", s.updateItem)
			r.Delete("/{id}", s.deleteItem)
		})
		r.Get(BarePath, s.bare)
		r.Get(FailPath, s.fail)
		r.Get(SlowPath, s.slow)
		r.Post(UploadPath, s.upload)
		r.Get(ExportPath+"/{name}", s.export)
	})
	return r
}

// Issue creates a valid token pair for username without going through login.
func (s *Server) Issue(username string) (string, string) {
	n := s.seq.Add(1)
	access := s.newAccessToken(username, n)
	refresh := "R" + strconv.FormatInt(n, 10)

	s.mu.Lock()
	s.access[access] = username
	s.refresh[refresh] = username
	s.mu.Unlock()
	return access, refresh
}

func (s *Server) newAccessToken(username string, n int64) string {
	if s.opts.AccessTTL <= 0 {
		return "T" + strconv.FormatInt(n, 10)
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   username,
		ID:        strconv.FormatInt(n, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.AccessTTL)),
	})
	signed, err := token.SignedString(signingKey)
	if err != nil {
		panic(fmt.Sprintf("testbackend: sign access token: %v", err))
	}
	return signed
}

// ExpireAccess invalidates every access token issued so far. Refresh tokens stay valid.
func (s *Server) ExpireAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = make(map[string]string)
}

// RevokeRefresh invalidates every refresh token issued so far.
func (s *Server) RevokeRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = make(map[string]string)
}

// FailProfile makes the profile endpoint answer with status. Zero restores it.
func (s *Server) FailProfile(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profileErr = status
}

// FailRefresh makes the refresh endpoint answer with status. Zero restores it.
func (s *Server) FailRefresh(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshErr = status
}

// HoldRefresh makes refresh exchanges block until ReleaseRefresh.
func (s *Server) HoldRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate == nil {
		s.gate = make(chan struct{})
	}
}

// ReleaseRefresh unblocks held refresh exchanges.
func (s *Server) ReleaseRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
}

// AuthHeaders returns the Authorization headers seen on protected routes, in arrival
// order.
func (s *Server) AuthHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.headers...)
}

// Stats is a snapshot of the call counters.
type Stats struct {
	Login        int64
	Refresh      int64
	Profile      int64
	Logout       int64
	API          int64
	Unauthorized int64
}

// Stats returns the call counters.
func (s *Server) Stats() Stats {
	return Stats{
		Login:        s.loginCalls.Load(),
		Refresh:      s.refreshCalls.Load(),
		Profile:      s.profileCalls.Load(),
		Logout:       s.logoutCalls.Load(),
		API:          s.apiCalls.Load(),
		Unauthorized: s.unauthorized.Load(),
	}
}

func (s *Server) validAccess(token string) (string, bool) {
	s.mu.Lock()
	user, ok := s.access[token]
	s.mu.Unlock()
	if !ok {
		return "", false
	}
	if s.opts.AccessTTL > 0 {
		if _, err := jwt.Parse(token, func(*jwt.Token) (any, error) { return signingKey, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})); err != nil {
			return "", false
		}
	}
	return user, true
}
