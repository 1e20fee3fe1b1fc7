// Package llm implements the Completer port against the Anthropic API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Completer = (*Client)(nil)

const (
	requestTimeout = 45 * time.Second
	maxTokens      = 1024
	temperature    = 0.1
)

// Client wraps the Anthropic API for summary generation. Requests use a low
// temperature so the JSON-schema instructions in the system prompt dominate.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates a completion client with the given API key and model.
func NewClient(apiKey, model string, opts ...option.RequestOption) *Client {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// Complete sends the prompt pair and returns the raw text of the first text
// block in the response. HTTP 429 responses are translated into
// *driven.RateLimitError so the worker requeues the job instead of dropping it.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		var apierr *anthropic.Error
		if errors.As(err, &apierr) && apierr.StatusCode == http.StatusTooManyRequests {
			return "", &driven.RateLimitError{}
		}
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", fmt.Errorf("no text content in API response")
}
