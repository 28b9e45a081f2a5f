package services

import (
	"context"

	"promptgate/internal/domain/models"
)

// Decision is the quota state machine's answer for one request
type Decision struct {
	// Admitted is true when a counter was incremented and generation may proceed
	Admitted bool
	// State is the session state the decision was taken in. For a locked
	// decision it is one of the two locked states.
	State   models.QuotaState
	Session models.Session
}

// QuotaService decides whether requests proceed and applies payment events
type QuotaService interface {
	// Admit runs check-then-increment for the session, creating it on first contact.
	Admit(ctx context.Context, sessionID string) (*Decision, error)

	// ConfirmFirstPayment marks the session paid and opens round 1.
	// Returns domain.ErrNotFound for an unknown session.
	ConfirmFirstPayment(ctx context.Context, sessionID string) (*models.Session, error)

	// ConfirmSecondRoundPayment opens the next payment round.
	// Returns domain.ErrNotFound for an unknown session.
	ConfirmSecondRoundPayment(ctx context.Context, sessionID string) (*models.Session, error)

	// Status returns the session and its derived state.
	Status(ctx context.Context, sessionID string) (*models.SessionStatus, error)
}
