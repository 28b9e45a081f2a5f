package handler

import (
	"log/slog"
	"net/http"

	"promptgate/internal/domain"
	"promptgate/internal/domain/services"
	"promptgate/internal/httputil"
	"promptgate/internal/metrics"
)

// AskHandler handles /ask and /followup
type AskHandler struct {
	service services.AskService
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewAskHandler creates a new ask handler
func NewAskHandler(service services.AskService, m *metrics.Metrics, logger *slog.Logger) *AskHandler {
	return &AskHandler{
		service: service,
		metrics: m,
		logger:  logger,
	}
}

// Ask answers a fresh question, with follow-up suggestions
// POST /ask
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, false)
}

// FollowUp continues a conversation; it is not rate limited and gets no suggestions
// POST /followup
func (h *AskHandler) FollowUp(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, true)
}

func (h *AskHandler) handle(w http.ResponseWriter, r *http.Request, followUp bool) {
	// Decoded and vetted by BotGate
	body, ok := httputil.GetBody[*services.AskRequest](r)
	if !ok {
		handleError(w, domain.Malformed(http.StatusForbidden, "malformed request body"))
		return
	}

	req := *body
	req.Identity = httputil.GetIdentity(r)
	req.FollowUp = followUp

	resp, err := h.service.Ask(r.Context(), &req)
	if err != nil {
		h.metrics.ObserveRequest(r.Pattern, outcomeFor(err))
		handleError(w, err)
		return
	}

	outcome := metrics.OutcomeAnswered
	if resp.Locked() {
		outcome = metrics.OutcomeLocked
	}
	h.metrics.ObserveRequest(r.Pattern, outcome)

	httputil.RespondJSON(w, http.StatusOK, resp)
}
