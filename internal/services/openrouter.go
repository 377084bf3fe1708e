// OpenRouter chat completions implementation of [TextGenerator]
package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/moodsplit/internal/shared"
)

const (
	DefaultOpenRouterBase  = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel = "google/gemma-3-27b-it:free"
	openRouterTimeout      = 90 * time.Second
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content any `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenRouterGenerator calls an OpenAI-compatible chat completions endpoint.
type OpenRouterGenerator struct {
	api   *APIClient
	model string
}

// NewOpenRouterGenerator returns a [shared.ConfigurationError] when no API key is configured.
// A nil client gets a 90 second timeout.
func NewOpenRouterGenerator(cfg shared.OpenRouterConfig, client *http.Client) (*OpenRouterGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &shared.ConfigurationError{Key: "credentials.openrouter.api_key"}
	}
	if client == nil {
		client = &http.Client{Timeout: openRouterTimeout}
	}

	base := cfg.APIBase
	if base == "" {
		base = DefaultOpenRouterBase
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenRouterModel
	}

	api := NewAPIClient(base, client).
		WithHeader("Authorization", "Bearer "+cfg.APIKey).
		WithHeader("HTTP-Referer", cfg.HTTPReferer).
		WithHeader("X-Title", cfg.AppTitle)

	return &OpenRouterGenerator{api: api, model: model}, nil
}

func (g *OpenRouterGenerator) Name() string {
	return "openrouter"
}

// Generate posts the prompt as a single user message at temperature 0.
func (g *OpenRouterGenerator) Generate(ctx context.Context, prompt string) (*Generation, error) {
	payload := chatRequest{
		Model:       g.model,
		Temperature: 0.0,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
	}

	resp, err := g.api.Post(ctx, "/chat/completions", payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode >= 400 {
		sentinel := shared.ErrAPIRequest
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			sentinel = shared.ErrRateLimited
		case resp.StatusCode >= 500:
			sentinel = shared.ErrServiceUnavailable
		}
		return nil, fmt.Errorf("%w: OpenRouter API error %d: %s", sentinel, resp.StatusCode, resp.Text())
	}

	var decoded chatResponse
	if err := resp.Decode(&decoded); err != nil {
		return nil, err
	}

	text := extractChatContent(decoded)
	if text == "" {
		return nil, fmt.Errorf("%w: OpenRouter returned no content: %s", shared.ErrEmptyResponse, resp.Text())
	}

	return &Generation{Text: text, RawResponse: resp.Text()}, nil
}

// extractChatContent reads choices[0].message.content, which is either a string or a list of parts.
func extractChatContent(r chatResponse) string {
	if len(r.Choices) == 0 {
		return ""
	}

	switch content := r.Choices[0].Message.Content.(type) {
	case string:
		return strings.TrimSpace(content)
	case []any:
		var parts []string
		for _, part := range content {
			switch p := part.(type) {
			case map[string]any:
				if text, ok := p["text"].(string); ok {
					parts = append(parts, text)
				}
			case string:
				parts = append(parts, p)
			}
		}
		return strings.TrimSpace(strings.Join(parts, "\n"))
	default:
		return ""
	}
}
