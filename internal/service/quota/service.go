package quota

import (
	"context"
	"fmt"
	"log/slog"

	"promptgate/internal/domain/models"
	"promptgate/internal/domain/repositories"
	"promptgate/internal/domain/services"
	"promptgate/internal/metrics"
)

// Limits configures the paywall thresholds
type Limits struct {
	FreeQueries int // admitted requests before the first paywall
	PaidQueries int // admitted requests per payment round
}

// service implements the QuotaService interface
type service struct {
	sessions repositories.SessionRepository
	limits   Limits
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewService creates the quota state machine over the given session store
func NewService(
	sessions repositories.SessionRepository,
	limits Limits,
	m *metrics.Metrics,
	logger *slog.Logger,
) services.QuotaService {
	return &service{
		sessions: sessions,
		limits:   limits,
		metrics:  m,
		logger:   logger,
	}
}

// Admit checks the counters before incrementing them. Only the admitted branch
// increments; a locked request leaves the session untouched.
func (s *service) Admit(ctx context.Context, sessionID string) (*services.Decision, error) {
	decision := &services.Decision{}

	sess, err := s.sessions.Upsert(ctx, sessionID, func(sess *models.Session) error {
		switch {
		case !sess.PaymentConfirmed && sess.FreeQueriesUsed >= s.limits.FreeQueries:
			decision.State = models.StateLockedAwaitingFirstPayment
		case sess.PaymentConfirmed && sess.PaidQueryCount >= s.limits.PaidQueries:
			decision.State = models.StateLockedAwaitingSecondPayment
		default:
			decision.Admitted = true
			decision.State = sess.State(s.limits.FreeQueries, s.limits.PaidQueries)
			if sess.FreeQueriesUsed < s.limits.FreeQueries {
				sess.FreeQueriesUsed++
			} else {
				sess.PaidQueryCount++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("admit session: %w", err)
	}
	decision.Session = *sess

	s.metrics.ObserveQuotaDecision(string(decision.State), decision.Admitted)
	s.logger.Debug("quota decision",
		"session_id", sessionID,
		"admitted", decision.Admitted,
		"state", decision.State,
		"free_queries_used", sess.FreeQueriesUsed,
		"paid_query_count", sess.PaidQueryCount,
		"payment_round", sess.CurrentPaymentRound,
	)

	return decision, nil
}

// ConfirmFirstPayment sets the session paid and starts round 1
func (s *service) ConfirmFirstPayment(ctx context.Context, sessionID string) (*models.Session, error) {
	sess, err := s.sessions.Update(ctx, sessionID, func(sess *models.Session) error {
		sess.PaymentConfirmed = true
		sess.PaidQueryCount = 0
		sess.CurrentPaymentRound = 1
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("confirm payment: %w", err)
	}

	s.logger.Info("payment confirmed",
		"session_id", sessionID,
		"payment_round", sess.CurrentPaymentRound,
	)
	return sess, nil
}

// ConfirmSecondRoundPayment starts the next paid round
func (s *service) ConfirmSecondRoundPayment(ctx context.Context, sessionID string) (*models.Session, error) {
	sess, err := s.sessions.Update(ctx, sessionID, func(sess *models.Session) error {
		sess.CurrentPaymentRound++
		sess.PaidQueryCount = 0
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("confirm payment round: %w", err)
	}

	s.logger.Info("payment round confirmed",
		"session_id", sessionID,
		"payment_round", sess.CurrentPaymentRound,
	)
	return sess, nil
}

// Status returns a snapshot of the session
func (s *service) Status(ctx context.Context, sessionID string) (*models.SessionStatus, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session status: %w", err)
	}
	return &models.SessionStatus{
		Session: *sess,
		State:   sess.State(s.limits.FreeQueries, s.limits.PaidQueries),
	}, nil
}
