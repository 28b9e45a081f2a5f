package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - match with errors.Is()
var (
	// ErrMalformedRequest means the body was absent or not a JSON object.
	ErrMalformedRequest = errors.New("malformed request body")
	// ErrBotRejected means the humanToken check failed.
	ErrBotRejected = errors.New("bot check failed")
	// ErrRateLimited means the identity already used its request for the window.
	ErrRateLimited = errors.New("rate limit: at most one request per minute")
	// ErrValidation means the body parsed but a required field is missing or invalid.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound means the referenced session does not exist.
	ErrNotFound = errors.New("not found")
	// ErrBackendFailure means the primary generation call failed or timed out.
	ErrBackendFailure = errors.New("generation backend failure")
)

// RejectionError carries a caller-facing message for a gate rejection while
// still matching its sentinel via errors.Is.
type RejectionError struct {
	Kind    error // one of the sentinels above
	Message string
	Status  int
}

func (e *RejectionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

// StatusCode implements HTTPError
func (e *RejectionError) StatusCode() int { return e.Status }

// Is allows errors.Is() to match against the wrapped sentinel
func (e *RejectionError) Is(target error) bool { return target == e.Kind }

// Malformed returns an ErrMalformedRequest rejection with the given status.
// The ask routes answer 403, the payment routes 400.
func Malformed(status int, message string) error {
	return &RejectionError{Kind: ErrMalformedRequest, Message: message, Status: status}
}

// BotRejected returns the 403 rejection used by the bot gate.
func BotRejected(message string) error {
	return &RejectionError{Kind: ErrBotRejected, Message: message, Status: http.StatusForbidden}
}

// BackendError wraps a generation failure. Its message is surfaced verbatim.
type BackendError struct {
	Err error
}

func (e *BackendError) Error() string { return e.Err.Error() }

func (e *BackendError) Unwrap() error { return e.Err }

// StatusCode implements HTTPError
func (e *BackendError) StatusCode() int { return http.StatusInternalServerError }

// Is allows errors.Is() to match against ErrBackendFailure
func (e *BackendError) Is(target error) bool { return target == ErrBackendFailure }
