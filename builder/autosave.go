package builder

import (
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/quotes_backend/config"
)

// Autosave states reported through the session status payload.
const (
	AutosaveIdle       = "idle"
	AutosaveDebouncing = "debouncing"
	AutosaveSaving     = "saving"
)

// AutosaveScheduler turns a stream of draft edits into a bounded rate of
// store saves. Every edit restarts the debounce window; edits arriving
// while a save is in flight coalesce into at most one follow-up save.
// The scheduler knows nothing about drafts, the dispatch closure owns
// the snapshot and the store call.
type AutosaveScheduler struct {
	debounce time.Duration
	dispatch func() error

	mu       sync.Mutex
	timer    *time.Timer
	saveDone chan struct{} // non-nil while a save is in flight
	dirty    bool
	closed   bool
}

func NewAutosaveScheduler(debounce time.Duration, dispatch func() error) *AutosaveScheduler {
	if debounce <= 0 {
		debounce = config.AutosaveDebounce()
	}
	return &AutosaveScheduler{debounce: debounce, dispatch: dispatch}
}

// MarkDirty records an edit. The debounce window restarts; if a save is
// already in flight the edit is covered by the follow-up save instead.
func (s *AutosaveScheduler) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.dirty = true
	if s.saveDone != nil {
		return
	}
	s.schedule()
}

// ForceSave cancels any pending debounce, waits out an in-flight save
// and then saves synchronously, returning the save error to the caller.
func (s *AutosaveScheduler) ForceSave() error {
	s.mu.Lock()
	for {
		if s.closed {
			s.mu.Unlock()
			return nil
		}
		s.cancelTimer()
		if s.saveDone == nil {
			break
		}
		done := s.saveDone
		s.mu.Unlock()
		<-done
		s.mu.Lock()
	}
	s.dirty = false
	done := make(chan struct{})
	s.saveDone = done
	s.mu.Unlock()

	err := s.dispatch()

	s.mu.Lock()
	s.saveDone = nil
	close(done)
	s.mu.Unlock()
	return err
}

// Close cancels the pending debounce and blocks until any in-flight
// save finishes. No save is dispatched afterward.
func (s *AutosaveScheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cancelTimer()
	done := s.saveDone
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// State reports idle, debouncing or saving.
func (s *AutosaveScheduler) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.saveDone != nil:
		return AutosaveSaving
	case s.timer != nil:
		return AutosaveDebouncing
	default:
		return AutosaveIdle
	}
}

// schedule (re)arms the debounce timer. Callers hold mu.
func (s *AutosaveScheduler) schedule() {
	if s.timer != nil {
		s.timer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(s.debounce, func() { s.fire(t) })
	s.timer = t
}

// cancelTimer stops a pending debounce. Callers hold mu.
func (s *AutosaveScheduler) cancelTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *AutosaveScheduler) fire(t *time.Timer) {
	s.mu.Lock()
	if s.closed || s.timer != t {
		// Cancelled or superseded while this callback was pending.
		s.mu.Unlock()
		return
	}
	s.timer = nil
	if s.saveDone != nil {
		s.mu.Unlock()
		return
	}
	s.dirty = false
	done := make(chan struct{})
	s.saveDone = done
	s.mu.Unlock()

	// The dispatch closure logs its own failures; debounced saves have
	// no caller to report to.
	_ = s.dispatch()

	s.mu.Lock()
	s.saveDone = nil
	close(done)
	// Edits that landed mid-save get exactly one follow-up save. A
	// failed save does not self-retry; the next edit or a forced save
	// picks the unsaved state back up.
	if s.dirty && !s.closed {
		s.schedule()
	}
	s.mu.Unlock()
}
