package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"spendwise/internal/core"
	applog "spendwise/internal/log"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestRegistry(cfg Config) (*Registry, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return newRegistry(cfg, applog.Discard(), clock.Now), clock
}

func TestCreateAndLookup(t *testing.T) {
	r, _ := newTestRegistry(Config{})
	s := r.Create("ada")
	if s.Token == "" || s.Store == nil || s.Username != "ada" {
		t.Fatalf("unexpected session %+v", s)
	}
	got, ok := r.Lookup(s.Token)
	if !ok || got != s {
		t.Fatal("lookup failed")
	}
	if _, ok := r.Lookup(""); ok {
		t.Fatal("empty token must not resolve")
	}
	if other := r.Create("ada"); other.Token == s.Token || other.Store == s.Store {
		t.Fatal("each login must get its own session")
	}
}

func TestSessionsExpireAfterInactivity(t *testing.T) {
	r, clock := newTestRegistry(Config{TTL: time.Hour})
	s := r.Create("ada")

	clock.Advance(50 * time.Minute)
	if _, ok := r.Lookup(s.Token); !ok {
		t.Fatal("session expired too early")
	}
	clock.Advance(50 * time.Minute)
	if _, ok := r.Lookup(s.Token); !ok {
		t.Fatal("lookup should have extended the session")
	}
	clock.Advance(61 * time.Minute)
	if _, ok := r.Lookup(s.Token); ok {
		t.Fatal("session should have expired")
	}
}

func TestLeastRecentlyUsedIsEvicted(t *testing.T) {
	r, _ := newTestRegistry(Config{MaxEntries: 2})
	a := r.Create("a")
	b := r.Create("b")
	r.Lookup(a.Token)
	c := r.Create("c")

	if _, ok := r.Lookup(b.Token); ok {
		t.Fatal("b should have been evicted")
	}
	for _, s := range []*Session{a, c} {
		if _, ok := r.Lookup(s.Token); !ok {
			t.Fatalf("%s should still be live", s.Username)
		}
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", r.Len())
	}
}

func TestDrop(t *testing.T) {
	r, _ := newTestRegistry(Config{})
	s := r.Create("ada")
	if !r.Drop(s.Token) || r.Drop(s.Token) {
		t.Fatal("drop should succeed exactly once")
	}
}

func TestSeedCategories(t *testing.T) {
	cats := []core.Category{{ID: 4, Name: "Rent", Color: "#123456"}}
	r, _ := newTestRegistry(Config{Categories: cats})
	got := r.Create("ada").Store.Categories()
	if len(got) != 1 || got[0].Name != "Rent" {
		t.Fatalf("unexpected categories %+v", got)
	}
}

func TestCleanExpiredAndRun(t *testing.T) {
	r, clock := newTestRegistry(Config{TTL: time.Minute, CleanupInterval: time.Millisecond})
	r.Create("a")
	r.Create("b")
	clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for r.Len() != 0 {
		select {
		case <-deadline:
			t.Fatalf("janitor did not clean up, %d left", r.Len())
		case <-time.After(5 * time.Millisecond):
		}
	}

	r.Close()
	r.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}
