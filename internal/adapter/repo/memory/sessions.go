// Package memory provides the default in-process session store. Sessions
// live for the lifetime of the process; a restart loses them all, which is an
// accepted non-goal of durability.
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/ai-excel-interviewer/internal/domain"
)

// SessionRepo maps session id -> Session behind a RWMutex. The lock is held
// only for the duration of a copy or mutator call, never across network I/O,
// so requests for different sessions proceed independently. Two concurrent
// updates to the same session remain an accepted race (last writer wins).
type SessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewSessionRepo constructs an empty in-memory store.
func NewSessionRepo() *SessionRepo {
	return &SessionRepo{sessions: make(map[string]*domain.Session)}
}

// Create allocates a fresh identifier, inserts the session, and returns it.
func (r *SessionRepo) Create(_ domain.Context, s domain.Session) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	// uuid collisions are not a practical concern, but the contract says a
	// fresh id must not collide with any existing key.
	for {
		if _, exists := r.sessions[s.ID]; !exists {
			break
		}
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	stored := clone(s)
	r.sessions[s.ID] = &stored
	return clone(stored), nil
}

// Get returns a copy of the session or ErrNotFound.
func (r *SessionRepo) Get(_ domain.Context, id string) (domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return domain.Session{}, fmt.Errorf("op=session.get id=%s: %w", id, domain.ErrNotFound)
	}
	return clone(*s), nil
}

// Update applies mutate to the stored session under the write lock and
// returns the updated copy, or ErrNotFound when id is absent.
func (r *SessionRepo) Update(_ domain.Context, id string, mutate func(*domain.Session)) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return domain.Session{}, fmt.Errorf("op=session.update id=%s: %w", id, domain.ErrNotFound)
	}
	mutate(s)
	return clone(*s), nil
}

// clone deep-copies a session so callers can never alias the stored
// transcript slice.
func clone(s domain.Session) domain.Session {
	out := s
	out.Transcript = make([]domain.Message, len(s.Transcript))
	copy(out.Transcript, s.Transcript)
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		out.CompletedAt = &at
	}
	return out
}
