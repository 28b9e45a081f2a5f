package models

// Status values carried by a locked AskResponse
const (
	StatusLocked       = "locked"
	StatusLockedRound2 = "locked_round2"
)

// AskResponse is the 200 body of /ask and /followup.
// Exactly one of Response or Status is meaningful: an admitted request carries
// the generated text, a quota-locked one carries Status and CallToAction.
// Response is never empty on an admitted request; an empty generation is a
// backend failure.
type AskResponse struct {
	Response     string        `json:"response,omitempty"`
	Suggestions  []Suggestion  `json:"suggestions"`
	Status       string        `json:"status,omitempty"`
	Message      string        `json:"message,omitempty"`
	CallToAction *CallToAction `json:"cta,omitempty"`
}

// Locked reports whether the request was held back by the paywall.
func (r *AskResponse) Locked() bool {
	return r.Status == StatusLocked || r.Status == StatusLockedRound2
}

// CallToAction tells the client how to unlock the session.
type CallToAction struct {
	Label        string `json:"label"`
	URL          string `json:"url,omitempty"`
	PaymentRound int    `json:"payment_round"` // round the payment will open
}

// PaymentResponse is returned by both payment confirmation routes.
type PaymentResponse struct {
	Status  string  `json:"status"`
	Session Session `json:"session"`
}
