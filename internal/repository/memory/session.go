package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"promptgate/internal/domain"
	"promptgate/internal/domain/models"
	"promptgate/internal/domain/repositories"
)

// sessionEntry pairs a session with the mutex guarding it
type sessionEntry struct {
	mu      sync.Mutex
	session models.Session
}

// SessionRepository is a process-local SessionRepository.
// The map lock is held only for lookup/insert; mutations take the entry lock,
// so different sessions never wait on each other's work.
// Sessions are never evicted.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	now      func() time.Time
	logger   *slog.Logger
}

// NewSessionRepository creates an empty in-memory session store
func NewSessionRepository(logger *slog.Logger) *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]*sessionEntry),
		now:      time.Now,
		logger:   logger,
	}
}

var _ repositories.SessionRepository = (*SessionRepository)(nil)

// Get returns a copy of the session
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	entry, ok := r.lookup(id)
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, domain.ErrNotFound)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	s := entry.session
	return &s, nil
}

// Upsert creates the session lazily and applies fn under its lock
func (r *SessionRepository) Upsert(ctx context.Context, id string, fn repositories.SessionMutator) (*models.Session, error) {
	return r.apply(r.lookupOrCreate(id), fn)
}

// Update applies fn to an existing session
func (r *SessionRepository) Update(ctx context.Context, id string, fn repositories.SessionMutator) (*models.Session, error) {
	entry, ok := r.lookup(id)
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, domain.ErrNotFound)
	}
	return r.apply(entry, fn)
}

// Len returns the number of sessions held
func (r *SessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *SessionRepository) apply(entry *sessionEntry, fn repositories.SessionMutator) (*models.Session, error) {
	entry.mu.Lock()
	defer entry.mu.Unlock()

	// fn works on a copy so a failed mutation leaves no partial writes
	working := entry.session
	if err := fn(&working); err != nil {
		return nil, err
	}
	working.UpdatedAt = r.now()
	entry.session = working

	s := working
	return &s, nil
}

func (r *SessionRepository) lookup(id string) (*sessionEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[id]
	return entry, ok
}

func (r *SessionRepository) lookupOrCreate(id string) *sessionEntry {
	// Fast path: existing session under read lock
	if entry, ok := r.lookup(id); ok {
		return entry
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another request may have created it while we waited
	if entry, ok := r.sessions[id]; ok {
		return entry
	}

	now := r.now()
	entry := &sessionEntry{session: models.Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}}
	r.sessions[id] = entry
	r.logger.Debug("session created", "session_id", id)
	return entry
}
