// Anthropic messages API implementation of [TextGenerator]
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/desertthunder/moodsplit/internal/shared"
)

const (
	DefaultAnthropicModel = "claude-sonnet-4-5-20250929"
	anthropicMaxTokens    = 4096
)

// AnthropicGenerator calls the Anthropic messages API through the official SDK.
type AnthropicGenerator struct {
	client anthropic.Client
	model  string
}

// NewAnthropicGenerator returns a [shared.ConfigurationError] when no API key is configured.
// Extra request options (base URL, HTTP client) are passed to the SDK client.
func NewAnthropicGenerator(cfg shared.AnthropicConfig, opts ...option.RequestOption) (*AnthropicGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &shared.ConfigurationError{Key: "credentials.anthropic.api_key"}
	}

	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}

	// Retries are owned by ClassificationClient.
	options := append([]option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}, opts...)
	return &AnthropicGenerator{client: anthropic.NewClient(options...), model: model}, nil
}

func (g *AnthropicGenerator) Name() string {
	return "anthropic"
}

// Generate sends the prompt as a single user turn and returns the first text block.
func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string) (*Generation, error) {
	message, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   anthropicMaxTokens,
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: Anthropic API error: %v", shared.ErrAPIRequest, err)
	}

	for _, block := range message.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return &Generation{Text: strings.TrimSpace(block.Text), RawResponse: message.RawJSON()}, nil
		}
	}
	return nil, fmt.Errorf("%w: no text content in Anthropic response", shared.ErrEmptyResponse)
}
