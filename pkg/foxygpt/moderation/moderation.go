// Package moderation implements the safety gate: every non-empty inbound
// text is classified by the OpenAI moderation endpoint before it may enter
// the transcript.
package moderation

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

// Client classifies inbound text against the moderation endpoint.
type Client struct {
	api    *openai.Client
	model  string
	logger *slog.Logger
}

// New creates a moderation client sharing the bot's OpenAI client.
func New(api *openai.Client, model string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if model == "" {
		model = openai.ModerationTextStable
	}
	return &Client{
		api:    api,
		model:  model,
		logger: logger.With("component", "moderation"),
	}
}

// Classify reports whether text is flagged by the moderation model.
// A failed call returns an error and must be treated as fatal for the
// event's pass; callers never default to "safe" on failure.
func (c *Client) Classify(ctx context.Context, text string) (bool, error) {
	resp, err := c.api.Moderations(ctx, openai.ModerationRequest{
		Model: c.model,
		Input: text,
	})
	if err != nil {
		return false, fmt.Errorf("moderation request: %w", err)
	}
	if len(resp.Results) == 0 {
		return false, fmt.Errorf("moderation response has no results")
	}

	flagged := resp.Results[0].Flagged
	c.logger.Debug("classified message", "flagged", flagged)
	return flagged, nil
}
