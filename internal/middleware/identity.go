package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"promptgate/internal/domain/services"
	"promptgate/internal/httputil"
)

// Sentinel identity keys
const (
	IdentityError     = "error"      // body could not be parsed
	IdentityNoSession = "no-session" // neither a session id nor an address
)

// Identity sources
const (
	SourceSession = "session"
	SourceAddress = "address"
	SourceError   = "error"
	SourceNone    = "none"
)

// Identity is the caller key shared by the rate limiter and the quota session
type Identity struct {
	Key    string
	Source string
}

// ResolveIdentity derives the caller key: the declared session id when there
// is one, else the network address. body is nil when it failed to parse.
func ResolveIdentity(body *services.AskRequest, r *http.Request) Identity {
	if body == nil {
		return Identity{Key: IdentityError, Source: SourceError}
	}
	if sid := body.DeclaredSessionID(); sid != "" {
		return Identity{Key: sid, Source: SourceSession}
	}
	if addr := remoteAddress(r); addr != "" {
		return Identity{Key: addr, Source: SourceAddress}
	}
	return Identity{Key: IdentityNoSession, Source: SourceNone}
}

// remoteAddress prefers the last X-Forwarded-For hop (the one our proxy
// appended), then the connection's host.
func remoteAddress(r *http.Request) string {
	if values := r.Header.Values("X-Forwarded-For"); len(values) > 0 {
		hops := strings.Split(values[len(values)-1], ",")
		if hop := strings.TrimSpace(hops[len(hops)-1]); hop != "" {
			return hop
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

// IdentityResolver stores the resolved key in the request context. It reuses
// the body decoded by BotGate. The gateway's routes always mount BotGate first;
// the decoding fallback serves IdentityResolver mounted on its own.
func IdentityResolver(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, ok := httputil.GetBody[*services.AskRequest](r)
			if !ok {
				var decoded services.AskRequest
				if _, err := httputil.ReadJSONBody(w, r, &decoded); err == nil {
					body = &decoded
					r = httputil.WithBody(r, body)
				}
			}

			id := ResolveIdentity(body, r)
			logger.Debug("identity resolved",
				"identity", id.Key,
				"source", id.Source,
				"request_id", httputil.GetRequestID(r),
			)
			next.ServeHTTP(w, httputil.WithIdentity(r, id.Key))
		})
	}
}
