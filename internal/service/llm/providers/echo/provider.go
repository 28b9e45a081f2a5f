package echo

import (
	"context"
	"fmt"
	"strings"

	domainllm "promptgate/internal/domain/services/llm"
)

// Provider is a stand-in backend that answers without any network call.
// Used for local development and tests without an API key.
type Provider struct{}

// NewProvider creates a new echo provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "echo"
}

// Generate returns the user text with the first line of the instruction.
func (p *Provider) Generate(ctx context.Context, req *domainllm.GenerateRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	instruction, _, _ := strings.Cut(req.System, "\n")
	return fmt.Sprintf("[echo] %s\n\n%s", strings.TrimSpace(instruction), req.User), nil
}
