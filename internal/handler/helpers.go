package handler

import (
	"errors"
	"net/http"

	"promptgate/internal/domain"
	"promptgate/internal/httputil"
	"promptgate/internal/metrics"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var httpErr domain.HTTPError

	switch {
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, domain.ErrRateLimited):
		httputil.RespondError(w, http.StatusTooManyRequests, domain.ErrRateLimited.Error())
	case errors.As(err, &httpErr):
		// Rejections and backend failures carry their own status and message
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// outcomeFor names an error for the request metrics
func outcomeFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrMalformedRequest):
		return metrics.OutcomeInvalid
	case errors.Is(err, domain.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, domain.ErrBotRejected):
		return metrics.OutcomeBotRejected
	case errors.Is(err, domain.ErrRateLimited):
		return metrics.OutcomeRateLimited
	default:
		return metrics.OutcomeBackendError
	}
}
