package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"promptgate/internal/domain/services"
	"promptgate/internal/httputil"
	"promptgate/internal/metrics"
)

// BotGate rejects requests whose body lacks the shared humanToken sentinel.
//
// This is a static shared-secret check, not bot detection: the token ships
// with the frontend, so any client that inspects a request can replay it.
// It only keeps naive scripted traffic away from the quota and the backend.
//
// The decoded body is stored in the request context for the next stages.
// Nothing downstream runs for a rejected request.
func BotGate(humanToken string, m *metrics.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body services.AskRequest
			if _, err := httputil.ReadJSONBody(w, r, &body); err != nil {
				logger.Info("bot gate: unreadable body",
					"path", r.URL.Path,
					"request_id", httputil.GetRequestID(r),
					"error", err,
				)
				m.ObserveRequest(r.Pattern, metrics.OutcomeBotRejected)
				httputil.RespondError(w, http.StatusForbidden, "malformed request body")
				return
			}

			if subtle.ConstantTimeCompare([]byte(body.HumanToken), []byte(humanToken)) != 1 {
				logger.Info("bot gate: token rejected",
					"path", r.URL.Path,
					"request_id", httputil.GetRequestID(r),
					"token_present", body.HumanToken != "",
				)
				m.ObserveRequest(r.Pattern, metrics.OutcomeBotRejected)
				httputil.RespondError(w, http.StatusForbidden, "human verification failed")
				return
			}

			next.ServeHTTP(w, httputil.WithBody(r, &body))
		})
	}
}
