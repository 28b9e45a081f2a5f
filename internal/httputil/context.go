package httputil

import (
	"context"
	"net/http"
)

// Context key type to avoid collisions
type contextKey string

const (
	requestIDKey contextKey = "requestID"
	identityKey  contextKey = "identity"
	bodyKey      contextKey = "body"
)

// WithRequestID adds the request id to the request context
func WithRequestID(r *http.Request, id string) *http.Request {
	ctx := context.WithValue(r.Context(), requestIDKey, id)
	return r.WithContext(ctx)
}

// GetRequestID retrieves the request id, returns empty string if not found
func GetRequestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey).(string)
	return id
}

// WithIdentity adds the resolved caller key to the request context
func WithIdentity(r *http.Request, identity string) *http.Request {
	ctx := context.WithValue(r.Context(), identityKey, identity)
	return r.WithContext(ctx)
}

// GetIdentity retrieves the resolved caller key, returns empty string if not found
func GetIdentity(r *http.Request) string {
	identity, _ := r.Context().Value(identityKey).(string)
	return identity
}

// WithBody stores a decoded request body so later middleware and the handler
// share one parse
func WithBody(r *http.Request, body interface{}) *http.Request {
	ctx := context.WithValue(r.Context(), bodyKey, body)
	return r.WithContext(ctx)
}

// GetBody retrieves the decoded body stored by WithBody
func GetBody[T any](r *http.Request) (T, bool) {
	body, ok := r.Context().Value(bodyKey).(T)
	return body, ok
}
