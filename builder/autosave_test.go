package builder

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached within 2s")
}

func TestAutosaveCoalescesBurstIntoOneSave(t *testing.T) {
	var saves int32
	s := NewAutosaveScheduler(150*time.Millisecond, func() error {
		atomic.AddInt32(&saves, 1)
		return nil
	})
	defer s.Close()

	for i := 0; i < 5; i++ {
		s.MarkDirty()
		time.Sleep(10 * time.Millisecond)
	}
	if n := atomic.LoadInt32(&saves); n != 0 {
		t.Fatalf("expected no save inside the debounce window, got %d", n)
	}

	waitFor(t, func() bool { return atomic.LoadInt32(&saves) == 1 })
	time.Sleep(300 * time.Millisecond)
	if n := atomic.LoadInt32(&saves); n != 1 {
		t.Fatalf("expected a single coalesced save, got %d", n)
	}
}

func TestAutosaveMidSaveEditsGetOneFollowUp(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	var saves int32
	s := NewAutosaveScheduler(10*time.Millisecond, func() error {
		started <- struct{}{}
		if atomic.AddInt32(&saves, 1) == 1 {
			<-release
		}
		return nil
	})
	defer s.Close()

	s.MarkDirty()
	<-started
	if got := s.State(); got != AutosaveSaving {
		t.Fatalf("expected saving state, got %s", got)
	}

	// Three edits land while the first save is still in flight.
	s.MarkDirty()
	s.MarkDirty()
	s.MarkDirty()
	close(release)

	<-started
	time.Sleep(100 * time.Millisecond)
	if n := atomic.LoadInt32(&saves); n != 2 {
		t.Fatalf("expected exactly one follow-up save, got %d saves total", n)
	}
}

func TestForceSaveCancelsPendingDebounce(t *testing.T) {
	var saves int32
	s := NewAutosaveScheduler(150*time.Millisecond, func() error {
		atomic.AddInt32(&saves, 1)
		return nil
	})
	defer s.Close()

	s.MarkDirty()
	if got := s.State(); got != AutosaveDebouncing {
		t.Fatalf("expected debouncing state, got %s", got)
	}
	if err := s.ForceSave(); err != nil {
		t.Fatalf("ForceSave: %v", err)
	}
	if n := atomic.LoadInt32(&saves); n != 1 {
		t.Fatalf("expected one save, got %d", n)
	}

	time.Sleep(300 * time.Millisecond)
	if n := atomic.LoadInt32(&saves); n != 1 {
		t.Fatalf("expected no trailing debounced save, got %d", n)
	}
}

func TestForceSaveWaitsOutInFlightSave(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var saves int32
	s := NewAutosaveScheduler(10*time.Millisecond, func() error {
		if atomic.AddInt32(&saves, 1) == 1 {
			close(started)
			<-release
		}
		return nil
	})
	defer s.Close()

	s.MarkDirty()
	<-started

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()

	if err := s.ForceSave(); err != nil {
		t.Fatalf("ForceSave: %v", err)
	}
	if n := atomic.LoadInt32(&saves); n != 2 {
		t.Fatalf("expected the forced save to run after the in-flight one, got %d saves", n)
	}
}

func TestForceSaveSurfacesError(t *testing.T) {
	wantErr := errors.New("store down")
	s := NewAutosaveScheduler(time.Hour, func() error { return wantErr })
	defer s.Close()

	if err := s.ForceSave(); !errors.Is(err, wantErr) {
		t.Fatalf("expected the dispatch error, got %v", err)
	}
}

func TestFailedSaveRetriesOnlyOnNextEdit(t *testing.T) {
	var saves int32
	s := NewAutosaveScheduler(20*time.Millisecond, func() error {
		if atomic.AddInt32(&saves, 1) == 1 {
			return errors.New("store down")
		}
		return nil
	})
	defer s.Close()

	s.MarkDirty()
	waitFor(t, func() bool { return atomic.LoadInt32(&saves) == 1 })

	time.Sleep(150 * time.Millisecond)
	if n := atomic.LoadInt32(&saves); n != 1 {
		t.Fatalf("failed save should not retry on its own, got %d attempts", n)
	}

	s.MarkDirty()
	waitFor(t, func() bool { return atomic.LoadInt32(&saves) == 2 })
}

func TestCloseCancelsPendingSave(t *testing.T) {
	var saves int32
	s := NewAutosaveScheduler(30*time.Millisecond, func() error {
		atomic.AddInt32(&saves, 1)
		return nil
	})

	s.MarkDirty()
	s.Close()

	time.Sleep(120 * time.Millisecond)
	if n := atomic.LoadInt32(&saves); n != 0 {
		t.Fatalf("expected no save after close, got %d", n)
	}

	s.MarkDirty()
	if err := s.ForceSave(); err != nil {
		t.Fatalf("ForceSave after close: %v", err)
	}
	if n := atomic.LoadInt32(&saves); n != 0 {
		t.Fatalf("expected closed scheduler to stay idle, got %d saves", n)
	}
	if got := s.State(); got != AutosaveIdle {
		t.Fatalf("expected idle after close, got %s", got)
	}
}

func TestCloseWaitsForInFlightSave(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var finished int32
	s := NewAutosaveScheduler(5*time.Millisecond, func() error {
		close(started)
		<-release
		atomic.StoreInt32(&finished, 1)
		return nil
	})

	s.MarkDirty()
	<-started
	go func() {
		time.Sleep(30 * time.Millisecond)
		close(release)
	}()

	s.Close()
	if atomic.LoadInt32(&finished) != 1 {
		t.Fatalf("Close returned before the in-flight save finished")
	}
}
