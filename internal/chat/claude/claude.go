package claude

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/sintaxia/internal/chat"
)

const maxTokens = 1024

type ClaudeClient struct {
	client      *anthropic.Client
	temperature float32
}

// NewClaudeClient builds a client for the Anthropic Messages API. An empty
// baseURL keeps the library default.
func NewClaudeClient(apiKey, baseURL string, temperature float32) *ClaudeClient {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &ClaudeClient{
		client:      anthropic.NewClient(apiKey, opts...),
		temperature: temperature,
	}
}

func (c *ClaudeClient) Complete(ctx context.Context, model, system, message string) (string, error) {
	temperature := c.temperature
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(model),
		System:      system,
		Messages:    []anthropic.Message{anthropic.NewUserTextMessage(message)},
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		if isBadRequest(err) {
			return "", fmt.Errorf("%w: %w", chat.ErrBadRequest, err)
		}
		return "", fmt.Errorf("failed to call claude: %w", err)
	}

	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText {
			return block.GetText(), nil
		}
	}
	return "", fmt.Errorf("claude returned no text content")
}

func isBadRequest(err error) bool {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		return string(apiErr.Type) == "invalid_request_error"
	}
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode == http.StatusBadRequest
	}
	return false
}
