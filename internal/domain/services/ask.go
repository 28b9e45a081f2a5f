package services

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"promptgate/internal/config"
	"promptgate/internal/domain/models"
)

// AskRequest is the body of /ask and /followup.
type AskRequest struct {
	HumanToken      string `json:"humanToken"`
	SessionID       string `json:"sessionId"`
	LegacySessionID string `json:"session_id"` // accepted for older clients
	Prompt          string `json:"prompt"`
	Action          string `json:"action"`

	// Identity is the resolved caller key (set by the server, never decoded)
	Identity string `json:"-"`
	// FollowUp marks requests from /followup
	FollowUp bool `json:"-"`
}

// DeclaredSessionID returns the caller's session identifier, if any
func (r *AskRequest) DeclaredSessionID() string {
	return firstNonBlank(r.SessionID, r.LegacySessionID)
}

// Validate checks the fields generation needs
func (r *AskRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Prompt,
			validation.Required.Error("no prompt provided"),
			validation.By(notBlank("no prompt provided")),
			validation.RuneLength(1, config.MaxPromptLength),
		),
		validation.Field(&r.SessionID, validation.RuneLength(0, config.MaxSessionIDLength)),
		validation.Field(&r.LegacySessionID, validation.RuneLength(0, config.MaxSessionIDLength)),
		validation.Field(&r.Identity, validation.Required),
	)
}

// PaymentRequest is the body of both payment confirmation routes
type PaymentRequest struct {
	SessionID       string `json:"sessionId"`
	LegacySessionID string `json:"session_id"`
}

// ID returns the session the payment is for
func (r *PaymentRequest) ID() string {
	return firstNonBlank(r.SessionID, r.LegacySessionID)
}

// Validate requires a session identifier
func (r *PaymentRequest) Validate() error {
	id := r.ID()
	return validation.Validate(id,
		validation.Required.Error("sessionId is required"),
		validation.RuneLength(1, config.MaxSessionIDLength),
	)
}

// AskService runs an admitted-path request: quota, prompt, generation, suggestions
type AskService interface {
	// Ask returns a generated answer, or a locked response when the paywall
	// holds the request back. Backend failures match domain.ErrBackendFailure.
	Ask(ctx context.Context, req *AskRequest) (*models.AskResponse, error)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func notBlank(message string) validation.RuleFunc {
	return func(value interface{}) error {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("must be a string")
		}
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s", message)
		}
		return nil
	}
}
