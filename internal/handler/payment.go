package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"promptgate/internal/domain"
	"promptgate/internal/domain/models"
	"promptgate/internal/domain/services"
	"promptgate/internal/httputil"
	"promptgate/internal/metrics"
)

// PaymentHandler applies external payment confirmations to quota sessions
type PaymentHandler struct {
	quota   services.QuotaService
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(quota services.QuotaService, m *metrics.Metrics, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		quota:   quota,
		metrics: m,
		logger:  logger,
	}
}

// ConfirmPayment opens the first paid round
// POST /confirm_payment
func (h *PaymentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parse(w, r)
	if !ok {
		return
	}

	sess, err := h.quota.ConfirmFirstPayment(r.Context(), id)
	h.respond(w, r, "payment_confirmed", sess, err)
}

// ConfirmPaymentRound2 opens the next paid round
// POST /confirm_payment_round2
func (h *PaymentHandler) ConfirmPaymentRound2(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parse(w, r)
	if !ok {
		return
	}

	sess, err := h.quota.ConfirmSecondRoundPayment(r.Context(), id)
	h.respond(w, r, "payment_round_confirmed", sess, err)
}

// GetSession returns the quota state of a session
// GET /sessions/{id}
func (h *PaymentHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	status, err := h.quota.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, status)
}

// parse distinguishes an unreadable body from a missing sessionId; both are 400 here
func (h *PaymentHandler) parse(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req services.PaymentRequest
	if _, err := httputil.ReadJSONBody(w, r, &req); err != nil {
		h.fail(w, r, domain.Malformed(http.StatusBadRequest, "malformed request body"))
		return "", false
	}
	if err := req.Validate(); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return "", false
	}
	return req.ID(), true
}

func (h *PaymentHandler) respond(w http.ResponseWriter, r *http.Request, status string, sess *models.Session, err error) {
	if err != nil {
		h.logger.Info("payment confirmation rejected",
			"path", r.URL.Path,
			"error", err,
			"request_id", httputil.GetRequestID(r),
		)
		h.fail(w, r, err)
		return
	}

	h.metrics.ObserveRequest(r.Pattern, metrics.OutcomeConfirmed)
	httputil.RespondJSON(w, http.StatusOK, models.PaymentResponse{
		Status:  status,
		Session: *sess,
	})
}

func (h *PaymentHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.metrics.ObserveRequest(r.Pattern, outcomeFor(err))
	handleError(w, err)
}
