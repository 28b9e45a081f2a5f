package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainllm "promptgate/internal/domain/services/llm"
)

// BoundedGenerator applies a per-call timeout to another Generator.
type BoundedGenerator struct {
	next    domainllm.Generator
	timeout time.Duration
}

// NewBoundedGenerator wraps next. A non-positive timeout disables the bound.
func NewBoundedGenerator(next domainllm.Generator, timeout time.Duration) *BoundedGenerator {
	return &BoundedGenerator{next: next, timeout: timeout}
}

// Name returns the wrapped provider's name
func (g *BoundedGenerator) Name() string {
	return g.next.Name()
}

// Generate calls the wrapped generator under the timeout
func (g *BoundedGenerator) Generate(ctx context.Context, req *domainllm.GenerateRequest) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	text, err := g.next.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("generation timed out after %s: %w", g.timeout, err)
		}
		return "", err
	}
	return text, nil
}
