// Package anthropic wraps the Anthropic Messages API as an alternate
// outreach copy generator.
package anthropic

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// Client defines the Anthropic operations used by the outreach generator.
type Client interface {
	// Generate produces one completion for the prompt.
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Option configures the Anthropic client.
type Option func(*messageClient)

// WithBaseURL points the client at a different API endpoint (for testing).
func WithBaseURL(url string) Option {
	return func(c *messageClient) {
		c.requestOpts = append(c.requestOpts, option.WithBaseURL(url))
	}
}

type messageClient struct {
	model       string
	maxTokens   int64
	requestOpts []option.RequestOption
	inner       sdk.Client
}

// NewClient creates an Anthropic message client.
func NewClient(apiKey, model string, opts ...Option) Client {
	c := &messageClient{
		model:       model,
		maxTokens:   1024,
		requestOpts: []option.RequestOption{option.WithAPIKey(apiKey)},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.inner = sdk.NewClient(c.requestOpts...)
	return c
}

func (c *messageClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	msg, err := c.inner.Messages.New(ctx, params)
	if err != nil {
		return "", eris.Wrap(err, "anthropic: create message")
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", eris.New("anthropic: empty response")
	}
	return text, nil
}
