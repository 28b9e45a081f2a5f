package ask

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"promptgate/internal/domain"
	"promptgate/internal/domain/models"
	"promptgate/internal/domain/services"
	domainllm "promptgate/internal/domain/services/llm"
	"promptgate/internal/metrics"
	"promptgate/internal/service/prompt"
	"promptgate/internal/service/suggestion"
)

// ErrEmptyAnswer is reported as a backend failure when generation succeeds
// with no text, so an answered body always carries a response.
var ErrEmptyAnswer = errors.New("generation backend returned an empty answer")

// Paywall holds the call-to-action targets shown on a locked response
type Paywall struct {
	FirstPaymentURL  string
	SecondPaymentURL string
}

// service implements the AskService interface
type service struct {
	quota       services.QuotaService
	prompts     *prompt.Builder
	generator   domainllm.Generator
	suggestions *suggestion.Pipeline
	paywall     Paywall
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewService creates the ask orchestration service
func NewService(
	quota services.QuotaService,
	prompts *prompt.Builder,
	generator domainllm.Generator,
	suggestions *suggestion.Pipeline,
	paywall Paywall,
	m *metrics.Metrics,
	logger *slog.Logger,
) services.AskService {
	return &service{
		quota:       quota,
		prompts:     prompts,
		generator:   generator,
		suggestions: suggestions,
		paywall:     paywall,
		metrics:     m,
		logger:      logger,
	}
}

// Ask validates the request before touching the quota, so a request that
// could never be answered does not spend a query.
func (s *service) Ask(ctx context.Context, req *services.AskRequest) (*models.AskResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	decision, err := s.quota.Admit(ctx, req.Identity)
	if err != nil {
		return nil, err
	}
	if !decision.Admitted {
		s.logger.Info("request locked by paywall",
			"session_id", req.Identity,
			"state", decision.State,
			"follow_up", req.FollowUp,
		)
		return s.lockedResponse(decision), nil
	}

	pr, err := s.prompts.Build(req.Action, req.Prompt)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	answer, err := s.generator.Generate(ctx, &domainllm.GenerateRequest{
		System: pr.System,
		User:   pr.User,
	})
	if err == nil && strings.TrimSpace(answer) == "" {
		err = ErrEmptyAnswer
	}
	s.metrics.ObserveGeneration("answer", started, err)
	if err != nil {
		s.logger.Error("generation failed",
			"session_id", req.Identity,
			"action", pr.Kind,
			"error", err,
		)
		return nil, &domain.BackendError{Err: err}
	}

	resp := &models.AskResponse{
		Response:    answer,
		Suggestions: []models.Suggestion{},
	}

	// Suggestions only enrich a fresh, untransformed question
	if !req.FollowUp && strings.TrimSpace(req.Action) == "" {
		resp.Suggestions = s.suggestions.Suggest(ctx, req.Prompt, answer)
	}

	s.logger.Info("request answered",
		"session_id", req.Identity,
		"action", pr.Kind,
		"follow_up", req.FollowUp,
		"state", decision.State,
		"suggestions", len(resp.Suggestions),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return resp, nil
}

func (s *service) lockedResponse(d *services.Decision) *models.AskResponse {
	if d.State == models.StateLockedAwaitingSecondPayment {
		return &models.AskResponse{
			Suggestions: []models.Suggestion{},
			Status:      models.StatusLockedRound2,
			Message:     "The paid queries for this round are used up. Confirm the next payment to continue.",
			CallToAction: &models.CallToAction{
				Label:        "Continue with another round",
				URL:          s.paywall.SecondPaymentURL,
				PaymentRound: d.Session.CurrentPaymentRound + 1,
			},
		}
	}
	return &models.AskResponse{
		Suggestions: []models.Suggestion{},
		Status:      models.StatusLocked,
		Message:     "The free queries are used up. Confirm payment to continue.",
		CallToAction: &models.CallToAction{
			Label:        "Unlock more answers",
			URL:          s.paywall.FirstPaymentURL,
			PaymentRound: 1,
		},
	}
}
