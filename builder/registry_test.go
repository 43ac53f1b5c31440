package builder

import (
	"context"
	"testing"
	"time"
)

func newTestRegistry() *Registry {
	return NewRegistry(newFakeStore(), fakeCatalog{})
}

func TestRegistryScopesLookupsToCompany(t *testing.T) {
	r := newTestRegistry()
	s := r.Create("co-1", "usr-1")
	t.Cleanup(r.CloseAll)

	if got, ok := r.Get("co-1", s.ID); !ok || got != s {
		t.Fatalf("expected to find the session for its own company")
	}
	if _, ok := r.Get("co-2", s.ID); ok {
		t.Fatal("a session id from another tenant must behave like a miss")
	}
	if _, ok := r.Get("co-1", "no-such-session"); ok {
		t.Fatal("unknown session id must miss")
	}
	if r.Count() != 1 {
		t.Fatalf("expected one live session, got %d", r.Count())
	}
}

func TestRegistryRemoveClosesSession(t *testing.T) {
	r := newTestRegistry()
	s := r.Create("co-1", "usr-1")

	if !r.Remove("co-1", s.ID) {
		t.Fatal("expected remove to succeed")
	}
	if err := s.Mutate(context.Background(), contactUpdate("gone")); err != ErrSessionClosed {
		t.Fatalf("expected the removed session to be closed, got %v", err)
	}
	if _, ok := r.Get("co-1", s.ID); ok {
		t.Fatal("removed session still resolvable")
	}
	if r.Remove("co-1", s.ID) {
		t.Fatal("second remove must report a miss")
	}
}

func TestRegistryRemoveRefusesForeignCompany(t *testing.T) {
	r := newTestRegistry()
	s := r.Create("co-1", "usr-1")
	t.Cleanup(r.CloseAll)

	if r.Remove("co-2", s.ID) {
		t.Fatal("another tenant must not be able to close the session")
	}
	if err := s.Mutate(context.Background(), contactUpdate("still here")); err != nil {
		t.Fatalf("session should survive a foreign remove, got %v", err)
	}
}

func TestRegistryEvictsIdleSessions(t *testing.T) {
	r := newTestRegistry()
	stale := r.Create("co-1", "usr-1")
	fresh := r.Create("co-1", "usr-2")
	t.Cleanup(r.CloseAll)

	stale.mu.Lock()
	stale.lastActive = time.Now().Add(-2 * r.idleTimeout)
	stale.mu.Unlock()

	if evicted := r.evictIdle(time.Now()); evicted != 1 {
		t.Fatalf("expected one eviction, got %d", evicted)
	}
	if _, ok := r.Get("co-1", stale.ID); ok {
		t.Fatal("stale session still resolvable after eviction")
	}
	if err := stale.Mutate(context.Background(), contactUpdate("late")); err != ErrSessionClosed {
		t.Fatalf("expected the evicted session to be closed, got %v", err)
	}
	if _, ok := r.Get("co-1", fresh.ID); !ok {
		t.Fatal("fresh session must survive the sweep")
	}
}

func TestRegistryActivityDefersEviction(t *testing.T) {
	r := newTestRegistry()
	s := r.Create("co-1", "usr-1")
	t.Cleanup(r.CloseAll)

	s.mu.Lock()
	s.lastActive = time.Now().Add(-2 * r.idleTimeout)
	s.mu.Unlock()

	// A mutation refreshes the idle clock before the sweep runs.
	if err := s.Mutate(context.Background(), contactUpdate("active again")); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if evicted := r.evictIdle(time.Now()); evicted != 0 {
		t.Fatalf("expected no eviction after fresh activity, got %d", evicted)
	}
}

func TestRegistryCloseAllDrains(t *testing.T) {
	r := newTestRegistry()
	first := r.Create("co-1", "usr-1")
	second := r.Create("co-2", "usr-2")

	r.CloseAll()

	if r.Count() != 0 {
		t.Fatalf("expected an empty registry, got %d", r.Count())
	}
	for _, s := range []*Session{first, second} {
		if err := s.Mutate(context.Background(), contactUpdate("too late")); err != ErrSessionClosed {
			t.Fatalf("expected drained session to be closed, got %v", err)
		}
	}
}
