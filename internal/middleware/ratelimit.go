package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"promptgate/internal/domain"
	"promptgate/internal/httputil"
	"promptgate/internal/metrics"
	"promptgate/internal/service/ratelimit"
)

// RateLimit admits one request per identity per window. It must run after
// IdentityResolver; a limited request never reaches the quota or the backend.
func RateLimit(limiter *ratelimit.Limiter, m *metrics.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := httputil.GetIdentity(r)
			if limiter.Allow(identity) {
				next.ServeHTTP(w, r)
				return
			}

			retry := int(math.Ceil(limiter.RetryAfter(identity).Seconds()))
			logger.Info("rate limit exceeded",
				"identity", identity,
				"retry_after_seconds", retry,
				"request_id", httputil.GetRequestID(r),
			)
			m.ObserveRequest(r.Pattern, metrics.OutcomeRateLimited)

			w.Header().Set("Retry-After", strconv.Itoa(retry))
			httputil.RespondErrorWithExtras(w, http.StatusTooManyRequests, domain.ErrRateLimited.Error(),
				map[string]interface{}{"retry_after_seconds": retry})
		})
	}
}
