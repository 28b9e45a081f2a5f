package config

import "time"

const (
	// DefaultFreeQueryLimit is how many requests a session gets before the
	// first paywall.
	DefaultFreeQueryLimit = 2

	// DefaultPaidQueryLimit is how many requests one payment round buys.
	DefaultPaidQueryLimit = 5

	// DefaultRateLimitWindow is the minimum interval between two admitted
	// /ask requests from the same identity.
	DefaultRateLimitWindow = 60 * time.Second

	// DefaultLLMTimeout bounds a single outbound generation call.
	DefaultLLMTimeout = 60 * time.Second

	// DefaultModel is the chat model used when OPENAI_MODEL is not set.
	DefaultModel = "gpt-4o"

	// DefaultHumanToken is the shared sentinel the frontend sends as
	// humanToken. It is not a secret in any meaningful sense.
	DefaultHumanToken = "i-am-human"

	// MaxPromptLength caps the user text forwarded to the backend.
	MaxPromptLength = 4000

	// MaxSessionIDLength caps caller-supplied session identifiers.
	MaxSessionIDLength = 128

	// MaxRequestBodyBytes limits request bodies on every JSON route.
	MaxRequestBodyBytes = 1 << 20
)
