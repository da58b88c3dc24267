package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/shopsearch/internal/domain"
)

// ChatGenerator produces chat completions through the OpenAI-compatible API.
type ChatGenerator struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// ChatConfig holds chat generator settings.
type ChatConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// NewChatGenerator creates an OpenAI-compatible chat backend.
func NewChatGenerator(cfg *ChatConfig) *ChatGenerator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 300
	}

	return &ChatGenerator{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}
}

// Generate sends the prompt as a single user message and returns the reply.
func (g *ChatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %v: %w", err, domain.ErrUpstreamUnavailable)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty chat response: %w", domain.ErrUpstreamUnavailable)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
