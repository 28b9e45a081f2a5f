package models

import "time"

// QuotaState is the paywall position of a session, derived from its counters.
type QuotaState string

const (
	StateFree                        QuotaState = "free"
	StateLockedAwaitingFirstPayment  QuotaState = "locked_awaiting_first_payment"
	StatePaidActive                  QuotaState = "paid_active"
	StateLockedAwaitingSecondPayment QuotaState = "locked_awaiting_second_payment"
)

// Session tracks free and paid usage for one caller identity.
// Counters only grow, except PaidQueryCount which a payment confirmation resets.
type Session struct {
	ID                  string    `json:"session_id"`
	FreeQueriesUsed     int       `json:"free_queries_used"`
	PaymentConfirmed    bool      `json:"payment_confirmed"`
	PaidQueryCount      int       `json:"paid_query_count"` // meaningful only when PaymentConfirmed
	CurrentPaymentRound int       `json:"current_payment_round"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// State derives the quota state for the given limits.
func (s *Session) State(freeLimit, paidLimit int) QuotaState {
	switch {
	case !s.PaymentConfirmed && s.FreeQueriesUsed >= freeLimit:
		return StateLockedAwaitingFirstPayment
	case !s.PaymentConfirmed:
		return StateFree
	case s.PaidQueryCount >= paidLimit:
		return StateLockedAwaitingSecondPayment
	default:
		return StatePaidActive
	}
}

// SessionStatus is the read model returned by GET /sessions/{id}
type SessionStatus struct {
	Session
	State QuotaState `json:"state"`
}
