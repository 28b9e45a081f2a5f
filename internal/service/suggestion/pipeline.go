package suggestion

import (
	"context"
	"log/slog"
	"time"

	"promptgate/internal/domain/models"
	domainllm "promptgate/internal/domain/services/llm"
	"promptgate/internal/metrics"
	"promptgate/internal/service/prompt"
)

// Pipeline asks the backend for follow-up actions. It is best effort: every
// failure degrades to an empty list and is only logged.
type Pipeline struct {
	generator domainllm.Generator
	prompts   *prompt.Builder
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewPipeline creates a suggestion pipeline
func NewPipeline(
	generator domainllm.Generator,
	prompts *prompt.Builder,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		generator: generator,
		prompts:   prompts,
		metrics:   m,
		logger:    logger,
	}
}

// Suggest returns the suggestions the model produced for answer.
// The result is never nil.
func (p *Pipeline) Suggest(ctx context.Context, userText, answer string) []models.Suggestion {
	empty := []models.Suggestion{}

	pr, err := p.prompts.Suggestions(userText, answer)
	if err != nil {
		p.logger.Error("failed to build suggestions prompt", "error", err)
		return empty
	}

	started := time.Now()
	reply, err := p.generator.Generate(ctx, &domainllm.GenerateRequest{
		System: pr.System,
		User:   pr.User,
	})
	p.metrics.ObserveGeneration("suggestions", started, err)
	if err != nil {
		p.metrics.ObserveSuggestions(metrics.SuggestionsBackendError, 0)
		p.logger.Warn("suggestion call failed", "error", err)
		return empty
	}

	items, ok := ExtractJSONArray(reply)
	if !ok {
		p.metrics.ObserveSuggestions(metrics.SuggestionsUnparsable, 0)
		p.logger.Warn("suggestion reply is not a JSON array", "reply_length", len(reply))
		return empty
	}

	kept, dropped := Filter(items)
	p.metrics.ObserveSuggestions(metrics.SuggestionsParsed, dropped)
	if dropped > 0 {
		p.logger.Debug("suggestions filtered", "kept", len(kept), "dropped", dropped)
	}
	return kept
}
