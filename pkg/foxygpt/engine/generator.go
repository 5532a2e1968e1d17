package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sveny/foxygpt/pkg/foxygpt/transcript"
)

// emptyReplyFallback is sent instead of nothing when the model returns an
// empty reply body.
const emptyReplyFallback = "...I had something to say, but it slipped my mind."

// ReplyConfig configures the response generation stage.
type ReplyConfig struct {
	// Model is the completion model used for replies.
	Model string `yaml:"model"`

	// MaxTokens caps the reply length.
	MaxTokens int `yaml:"max_tokens"`
}

// DefaultReplyConfig returns the default reply settings.
func DefaultReplyConfig() ReplyConfig {
	return ReplyConfig{
		Model:     "gpt-4o",
		MaxTokens: 4096,
	}
}

// Generator produces the persona's replies.
type Generator struct {
	api    *openai.Client
	cfg    ReplyConfig
	logger *slog.Logger
}

// NewGenerator creates a response generator sharing the bot's OpenAI client.
func NewGenerator(api *openai.Client, cfg ReplyConfig, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &Generator{
		api:    api,
		cfg:    cfg,
		logger: logger.With("component", "generator"),
	}
}

// Generate runs one completion over the full transcript and returns the
// reply text. The decision is made in a separate call, so no anchor ever
// appears in (or needs stripping from) the reply.
func (g *Generator) Generate(ctx context.Context, turns []transcript.Turn) (string, error) {
	resp, err := g.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     g.cfg.Model,
		Messages:  toMessages(turns),
		MaxTokens: g.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("reply call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("reply call returned no choices")
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		g.logger.Warn("model returned an empty reply, substituting fallback",
			"finish_reason", resp.Choices[0].FinishReason)
		return emptyReplyFallback, nil
	}
	return reply, nil
}

// toMessages converts transcript turns into chat messages. User turns carry
// the "author: content" prefix so the persona knows who said what; the
// persona prompt instructs the model never to echo that format back.
func toMessages(turns []transcript.Turn) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		msg := openai.ChatCompletionMessage{Content: t.Content}
		switch t.Role {
		case transcript.RoleSystem:
			msg.Role = openai.ChatMessageRoleSystem
		case transcript.RoleAssistant:
			msg.Role = openai.ChatMessageRoleAssistant
		default:
			msg.Role = openai.ChatMessageRoleUser
			if t.Author != "" {
				msg.Content = t.Author + ": " + t.Content
			}
		}
		msgs = append(msgs, msg)
	}
	return msgs
}
