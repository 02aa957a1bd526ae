package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingClearer struct {
	calls atomic.Int32
	err   error
}

func (c *countingClearer) Clear(context.Context) error {
	c.calls.Add(1)
	return c.err
}

type recorder struct {
	mu       sync.Mutex
	notices  []Notice
	targets  []string
	navigate chan string
}

func newRecorder() *recorder {
	return &recorder{navigate: make(chan string, 8)}
}

func (r *recorder) Notify(_ context.Context, n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) Navigate(target string) {
	r.mu.Lock()
	r.targets = append(r.targets, target)
	r.mu.Unlock()
	r.navigate <- target
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices), len(r.targets)
}

func TestTeardownIsIdempotent(t *testing.T) {
	clearer := &countingClearer{}
	rec := newRecorder()
	td := NewTeardown(clearer, rec, rec, Config{LoginURL: "/signin", RedirectDelay: 5 * time.Millisecond})

	if !td.Run(context.Background(), errors.New("refresh rejected")) {
		t.Fatal("expected first run to fire")
	}
	if td.Run(context.Background(), errors.New("refresh rejected")) {
		t.Fatal("expected second run to only clear")
	}

	select {
	case target := <-rec.navigate:
		if target != "/signin" {
			t.Fatalf("unexpected target %q", target)
		}
	case <-time.After(time.Second):
		t.Fatal("redirect never happened")
	}
	time.Sleep(20 * time.Millisecond)

	notices, redirects := rec.counts()
	if notices != 1 || redirects != 1 {
		t.Fatalf("expected one notice and one redirect, got %d/%d", notices, redirects)
	}
	if clearer.calls.Load() != 2 {
		t.Fatalf("expected clear on every run, got %d", clearer.calls.Load())
	}
	if !td.Fired() || td.Runs() != 2 {
		t.Fatalf("unexpected state fired=%v runs=%d", td.Fired(), td.Runs())
	}
}

func TestTeardownConcurrentRunsFireOnce(t *testing.T) {
	rec := newRecorder()
	td := NewTeardown(&countingClearer{}, rec, rec, Config{RedirectDelay: time.Hour})
	defer td.Stop()

	var fired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if td.Run(context.Background(), nil) {
				fired.Add(1)
			}
		}()
	}
	wg.Wait()

	if fired.Load() != 1 {
		t.Fatalf("expected exactly one firing run, got %d", fired.Load())
	}
	if notices, _ := rec.counts(); notices != 1 {
		t.Fatalf("expected one notice, got %d", notices)
	}
}

func TestTeardownArmReenables(t *testing.T) {
	rec := newRecorder()
	td := NewTeardown(&countingClearer{}, rec, rec, Config{RedirectDelay: time.Hour})
	defer td.Stop()

	td.Run(context.Background(), nil)
	td.Arm()
	if td.Fired() {
		t.Fatal("expected armed state after Arm")
	}
	if !td.Run(context.Background(), nil) {
		t.Fatal("expected run after Arm to fire")
	}
	if notices, _ := rec.counts(); notices != 2 {
		t.Fatalf("expected two notices, got %d", notices)
	}
}

func TestTeardownStopCancelsRedirect(t *testing.T) {
	rec := newRecorder()
	td := NewTeardown(&countingClearer{}, rec, rec, Config{RedirectDelay: 30 * time.Millisecond})

	td.Run(context.Background(), nil)
	td.Stop()
	time.Sleep(80 * time.Millisecond)

	if _, redirects := rec.counts(); redirects != 0 {
		t.Fatalf("expected no redirect after Stop, got %d", redirects)
	}
}

func TestTeardownClearFailureStillNotifies(t *testing.T) {
	rec := newRecorder()
	td := NewTeardown(&countingClearer{err: errors.New("disk full")}, rec, nil, Config{})

	if !td.Run(context.Background(), nil) {
		t.Fatal("expected run to fire despite clear failure")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.notices) != 1 || rec.notices[0].Message != DefaultMessage || rec.notices[0].Level != LevelWarning {
		t.Fatalf("unexpected notices %+v", rec.notices)
	}
}

func TestTeardownArmDuringNoticeCancelsRedirect(t *testing.T) {
	rec := newRecorder()
	var td *Teardown
	notifier := NotifierFunc(func(ctx context.Context, n Notice) {
		rec.Notify(ctx, n)
		// a login lands between the notice and the redirect
		td.Arm()
	})
	td = NewTeardown(&countingClearer{}, notifier, rec, Config{RedirectDelay: 0})
	defer td.Stop()

	if !td.Run(context.Background(), nil) {
		t.Fatal("expected first run to fire")
	}
	time.Sleep(50 * time.Millisecond)

	if notices, redirects := rec.counts(); notices != 1 || redirects != 0 {
		t.Fatalf("expected one notice and no redirect, got %d notices %d redirects", notices, redirects)
	}
	if td.Fired() {
		t.Fatal("expected teardown to stay armed for the new session")
	}
}

func TestTeardownArmInvalidatesPendingRedirect(t *testing.T) {
	rec := newRecorder()
	td := NewTeardown(&countingClearer{}, rec, rec, Config{RedirectDelay: 20 * time.Millisecond})
	defer td.Stop()

	td.Run(context.Background(), nil)
	td.Arm()
	time.Sleep(60 * time.Millisecond)

	if _, redirects := rec.counts(); redirects != 0 {
		t.Fatalf("expected redirect from the previous session to be dropped, got %d", redirects)
	}
}
