// Package openai wraps the OpenAI chat completion API for outreach copy
// generation.
package openai

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	goopenai "github.com/sashabaranov/go-openai"
)

// Client defines the OpenAI operations used by the outreach generator.
type Client interface {
	// Generate produces one completion for the prompt.
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Option configures the OpenAI client.
type Option func(*chatClient)

// WithBaseURL points the client at a different API endpoint (for testing or
// proxies).
func WithBaseURL(url string) Option {
	return func(c *chatClient) {
		c.baseURL = url
	}
}

type chatClient struct {
	apiKey  string
	model   string
	baseURL string
	inner   *goopenai.Client
}

// NewClient creates an OpenAI chat client.
func NewClient(apiKey, model string, opts ...Option) Client {
	c := &chatClient{apiKey: apiKey, model: model}
	for _, opt := range opts {
		opt(c)
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	c.inner = goopenai.NewClientWithConfig(cfg)
	return c
}

func (c *chatClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	var messages []goopenai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := c.inner.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", eris.Wrap(err, "openai: chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("openai: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
