package llm

import (
	"fmt"
	"log/slog"

	"promptgate/internal/config"
	domainllm "promptgate/internal/domain/services/llm"
	"promptgate/internal/service/llm/providers/echo"
	"promptgate/internal/service/llm/providers/openai"
)

// ProviderFactory creates the configured generation backend
type ProviderFactory struct {
	config *config.Config
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(cfg *config.Config) *ProviderFactory {
	return &ProviderFactory{
		config: cfg,
	}
}

// GetProvider returns a generator for the given provider name
//
// Supported providers:
//   - "openai" - chat completions via the OpenAI API (or a compatible base URL)
//   - "echo" - local stand-in for dev and tests, no API key required
func (f *ProviderFactory) GetProvider(providerName string) (domainllm.Generator, error) {
	switch providerName {
	case "openai":
		return f.createOpenAIProvider()

	case "echo":
		return echo.NewProvider(), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerName)
	}
}

func (f *ProviderFactory) createOpenAIProvider() (domainllm.Generator, error) {
	if f.config.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	provider, err := openai.NewProvider(openai.Settings{
		APIKey:  f.config.OpenAIAPIKey,
		Model:   f.config.OpenAIModel,
		BaseURL: f.config.OpenAIBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI provider: %w", err)
	}
	return provider, nil
}

// SetupGenerator builds the configured provider and wraps it with the call
// timeout.
func SetupGenerator(cfg *config.Config, logger *slog.Logger) (domainllm.Generator, error) {
	provider, err := NewProviderFactory(cfg).GetProvider(cfg.LLMProvider)
	if err != nil {
		return nil, err
	}

	if provider.Name() == "echo" && cfg.Environment == "prod" {
		logger.Warn("echo generation backend enabled in prod")
	}
	logger.Info("generation backend initialized",
		"provider", provider.Name(),
		"model", cfg.OpenAIModel,
		"timeout", cfg.LLMTimeout.String(),
	)

	return NewBoundedGenerator(provider, cfg.LLMTimeout), nil
}
