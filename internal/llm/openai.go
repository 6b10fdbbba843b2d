package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"ragchat/internal/domain"
)

// OpenAICompatible talks to any chat-completions endpoint: OpenAI itself,
// OpenRouter and Gemini's compatibility layer.
type OpenAICompatible struct {
	name        string
	model       string
	maxTokens   int
	temperature float32
	client      *openai.Client
}

func newOpenAICompatible(name string, cfg Config) *OpenAICompatible {
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	return &OpenAICompatible{
		name:        name,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		client:      openai.NewClientWithConfig(oc),
	}
}

func (c *OpenAICompatible) Name() string  { return c.name }
func (c *OpenAICompatible) Model() string { return c.model }

func (c *OpenAICompatible) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	var messages []openai.ChatCompletionMessage
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: prompt.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt.User})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%s chat: %w: %w", c.name, classify(err), err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s chat: %w: no choices returned", c.name, domain.ErrMalformedResponse)
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("%s chat: %w: empty answer (finish reason %q)", c.name, domain.ErrMalformedResponse, resp.Choices[0].FinishReason)
	}
	return answer, nil
}
