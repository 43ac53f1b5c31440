package builder

import (
	"context"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/quotes_backend/config"
	"github.com/sirupsen/logrus"
)

// Registry tracks live builder sessions by id and evicts the ones left
// idle past the configured timeout. Eviction closes a session the same
// way an explicit unmount does.
type Registry struct {
	store   QuoteStore
	catalog Catalog
	logger  *logrus.Logger

	idleTimeout time.Duration
	sweepEvery  time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(store QuoteStore, cat Catalog) *Registry {
	return &Registry{
		store:       store,
		catalog:     cat,
		logger:      config.GetLogger(),
		idleTimeout: config.SessionIdleTimeout(),
		sweepEvery:  time.Minute,
		sessions:    make(map[string]*Session),
	}
}

// Create starts a fresh drafting session.
func (r *Registry) Create(companyId string, userId string) *Session {
	s := NewSession(companyId, userId, r.store, r.catalog)
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Open loads a stored quote into a new session for edit mode.
func (r *Registry) Open(ctx context.Context, companyId string, userId string, quoteId int) (*Session, error) {
	s, err := OpenSession(ctx, companyId, userId, quoteId, r.store, r.catalog)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s, nil
}

// Get scopes lookups to the owning company, a session id from another
// tenant behaves like a miss.
func (r *Registry) Get(companyId string, sessionId string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionId]
	if !ok || s.CompanyId != companyId {
		return nil, false
	}
	return s, true
}

// Remove closes and drops the session, the unmount path.
func (r *Registry) Remove(companyId string, sessionId string) bool {
	r.mu.Lock()
	s, ok := r.sessions[sessionId]
	if ok && s.CompanyId == companyId {
		delete(r.sessions, sessionId)
	} else {
		ok = false
	}
	r.mu.Unlock()

	if ok {
		// Close blocks on an in-flight save; never under the registry lock.
		s.Close()
	}
	return ok
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Run sweeps for idle sessions until the context ends.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.evictIdle(time.Now())
		}
	}
}

func (r *Registry) evictIdle(now time.Time) int {
	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if now.Sub(s.LastActive()) >= r.idleTimeout {
			delete(r.sessions, id)
			expired = append(expired, s)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
		r.logger.WithFields(logrus.Fields{
			"field":      "SessionRegistry",
			"session_id": s.ID,
			"company_id": s.CompanyId,
		}).Info("evicted idle builder session")
	}
	return len(expired)
}

// CloseAll drains the registry on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		delete(r.sessions, id)
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
