package repositories

import (
	"context"

	"promptgate/internal/domain/models"
)

// SessionMutator changes a session in place. It runs while the store holds the
// session's lock, so a read-check-write inside it is atomic with respect to
// other requests for the same session.
type SessionMutator func(s *models.Session) error

// SessionRepository owns quota sessions.
// Implementations must serialize mutations per session id and must not block
// callers working on different ids.
type SessionRepository interface {
	// Get returns a copy of the session.
	// Returns domain.ErrNotFound if it was never created.
	Get(ctx context.Context, id string) (*models.Session, error)

	// Upsert creates the session with zero counters if needed, then applies fn.
	// Returns a copy of the session after fn. If fn fails, the session is left
	// as it was (a freshly created one is still kept).
	Upsert(ctx context.Context, id string, fn SessionMutator) (*models.Session, error)

	// Update applies fn to an existing session.
	// Returns domain.ErrNotFound without calling fn if the session does not exist.
	Update(ctx context.Context, id string, fn SessionMutator) (*models.Session, error)
}
