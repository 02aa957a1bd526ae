package session

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultLoginURL      = "/login"
	DefaultRedirectDelay = 1500 * time.Millisecond
	DefaultMessage       = "Your session has expired, please sign in again"
	DefaultTitle         = "Session expired"
)

// Level classifies a Notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a user-facing message emitted on teardown.
type Notice struct {
	Level   Level
	Title   string
	Message string
}

// Notifier delivers notices to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// Navigator moves the user to another location.
type Navigator interface {
	Navigate(target string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(target string)

func (f NavigatorFunc) Navigate(target string) { f(target) }

// Clearer removes every stored credential entry.
type Clearer interface {
	Clear(ctx context.Context) error
}

// LogNotifier writes notices to a logger. It is the notifier used when none is configured.
type LogNotifier struct {
	Log logrus.FieldLogger
}

func (n LogNotifier) Notify(_ context.Context, notice Notice) {
	if n.Log == nil {
		return
	}
	entry := n.Log.WithFields(logrus.Fields{"component": "session", "title": notice.Title})
	switch notice.Level {
	case LevelError:
		entry.Error(notice.Message)
	case LevelWarning:
		entry.Warn(notice.Message)
	default:
		entry.Info(notice.Message)
	}
}

// Config controls teardown presentation.
type Config struct {
	LoginURL      string
	RedirectDelay time.Duration
	Title         string
	Message       string
	Logger        logrus.FieldLogger
}

// Teardown clears the session and performs the one-time notify and redirect.
type Teardown struct {
	clearer   Clearer
	notifier  Notifier
	navigator Navigator
	cfg       Config
	log       logrus.FieldLogger

	runs atomic.Uint64

	// mu guards armed, gen and timer. gen changes on every Arm so a Run that began before
	// it cannot schedule or perform a redirect afterwards.
	mu    sync.Mutex
	armed bool
	gen   uint64
	timer *time.Timer
}

// NewTeardown returns an armed Teardown. A nil notifier logs notices; a nil navigator skips
// navigation.
func NewTeardown(clearer Clearer, notifier Notifier, navigator Navigator, cfg Config) *Teardown {
	if cfg.LoginURL == "" {
		cfg.LoginURL = DefaultLoginURL
	}
	if cfg.RedirectDelay < 0 {
		cfg.RedirectDelay = 0
	}
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	if cfg.Message == "" {
		cfg.Message = DefaultMessage
	}
	log := cfg.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	if notifier == nil {
		notifier = LogNotifier{Log: log}
	}

	return &Teardown{
		clearer:   clearer,
		notifier:  notifier,
		navigator: navigator,
		cfg:       cfg,
		log:       log.WithField("component", "session"),
		armed:     true,
	}
}

// Run clears all credential entries. The first call since the last Arm also notifies the
// user and schedules navigation to the login location; it returns true in that case.
func (t *Teardown) Run(ctx context.Context, reason error) bool {
	t.runs.Add(1)
	if t.clearer != nil {
		if err := t.clearer.Clear(ctx); err != nil {
			t.log.WithError(err).Warn("clear credentials during teardown")
		}
	}

	t.mu.Lock()
	if !t.armed {
		t.mu.Unlock()
		return false
	}
	t.armed = false
	gen := t.gen
	t.mu.Unlock()

	entry := t.log.WithFields(logrus.Fields{"operation": "teardown", "login_url": t.cfg.LoginURL})
	if reason != nil {
		entry = entry.WithField("reason", reason.Error())
	}
	entry.Info("session ended")

	t.notifier.Notify(ctx, Notice{Level: LevelWarning, Title: t.cfg.Title, Message: t.cfg.Message})

	if t.navigator != nil {
		t.schedule(gen)
	}
	return true
}

func (t *Teardown) schedule(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen != gen {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	target := t.cfg.LoginURL
	t.timer = time.AfterFunc(t.cfg.RedirectDelay, func() {
		t.mu.Lock()
		current := t.gen == gen
		t.mu.Unlock()
		if current {
			t.navigator.Navigate(target)
		}
	})
}

// Arm re-enables the notice and redirect, typically after a successful login. A redirect
// scheduled, or about to be scheduled, by the previous session is cancelled.
func (t *Teardown) Arm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	t.stopLocked()
	t.armed = true
}

// Stop cancels a scheduled redirect. It does not re-arm.
func (t *Teardown) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Teardown) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Fired reports whether a notice was emitted since the last Arm.
func (t *Teardown) Fired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.armed
}

// Runs returns how many times Run has been called.
func (t *Teardown) Runs() uint64 {
	return t.runs.Load()
}
