package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	domainllm "promptgate/internal/domain/services/llm"
)

// Settings configures the OpenAI provider
type Settings struct {
	APIKey  string
	Model   string
	BaseURL string // optional, for OpenAI-compatible gateways
}

// Provider implements the Generator interface with OpenAI chat completions.
type Provider struct {
	client openai.Client
	model  string
}

// NewProvider creates a new OpenAI provider.
// The SDK's automatic retries are disabled: a failed call is reported as is.
func NewProvider(s Settings) (*Provider, error) {
	if s.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if s.Model == "" {
		return nil, errors.New("openai model is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(s.APIKey),
		option.WithMaxRetries(0),
	}
	if s.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.BaseURL))
	}

	return &Provider{
		client: openai.NewClient(opts...),
		model:  s.Model,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "openai"
}

// Generate sends the system instruction and the user text as one chat turn.
func (p *Provider) Generate(ctx context.Context, req *domainllm.GenerateRequest) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("openai: empty content (finish_reason %q)", resp.Choices[0].FinishReason)
	}
	return content, nil
}
