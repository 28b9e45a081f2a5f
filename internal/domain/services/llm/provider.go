package llm

import "context"

// Generator is the opaque text-generation backend:
// generate(systemPrompt, userText) -> text | failure.
type Generator interface {
	// Generate returns the assistant's text for one system + user exchange.
	Generate(ctx context.Context, req *GenerateRequest) (string, error)

	// Name returns the backend name (e.g., "openai", "echo")
	Name() string
}

// GenerateRequest contains the parameters for one generation call.
type GenerateRequest struct {
	// System is the instruction built by the prompt builder
	System string

	// User is the user's text (or, for suggestions, the previous answer)
	User string
}
