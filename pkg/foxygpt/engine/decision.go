// Package engine implements the two model-facing stages of the pipeline:
// the decision engine, which turns the current transcript into a binary
// respond/stay-quiet verdict, and the response generator, which produces
// the persona's reply once a verdict says to speak.
//
// The decision reply uses a first-line anchor: line one of the model output
// must be exactly YES or NO. The prompt wording and the parser below are a
// matched pair; changing one without the other breaks verdict extraction.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sveny/foxygpt/pkg/foxygpt/transcript"
)

// ErrNoAnchor reports a decision reply whose first line is not YES or NO.
// The caller must treat the verdict as "do not respond"; an ambiguous
// decision never causes a reply.
var ErrNoAnchor = errors.New("decision reply has no YES/NO anchor on its first line")

// Verdict is the decision engine's outcome: the extracted boolean plus the
// raw justification text for logging.
type Verdict struct {
	Respond bool
	Raw     string
}

// DecisionConfig configures the decision stage.
type DecisionConfig struct {
	// Model is the completion model used for the verdict call.
	Model string `yaml:"model"`

	// Window bounds the transcript view: the system turn plus the last
	// Window turns. 0 sends the full transcript.
	Window int `yaml:"window"`

	// MaxTokens caps the verdict reply (first line + short justification).
	MaxTokens int `yaml:"max_tokens"`
}

// DefaultDecisionConfig returns the default decision settings.
func DefaultDecisionConfig() DecisionConfig {
	return DecisionConfig{
		Model:     "gpt-4o-mini",
		Window:    0,
		MaxTokens: 150,
	}
}

// Decider issues the verdict call.
type Decider struct {
	api     *openai.Client
	cfg     DecisionConfig
	botName string
	logger  *slog.Logger
}

// NewDecider creates a decision engine sharing the bot's OpenAI client.
func NewDecider(api *openai.Client, cfg DecisionConfig, botName string, logger *slog.Logger) *Decider {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 150
	}
	return &Decider{
		api:     api,
		cfg:     cfg,
		botName: botName,
		logger:  logger.With("component", "decision"),
	}
}

// decisionInstructions is the dedicated instruction turn for the verdict
// call. It is never persisted to the transcript.
func decisionInstructions(botName string) string {
	return fmt.Sprintf(`You decide whether the chatbot %[1]s should reply to the latest message in a chat channel. You are not %[1]s; you only make the reply/ignore call.

Reply YES when:
- the message is directed at %[1]s, mentions it, or answers something it said
- the message continues a conversation %[1]s is already part of
- the message asks a question on a topic %[1]s was just discussing

Reply NO when:
- the message is part of an exchange between other people that does not involve %[1]s
- a greeting or remark is not addressed to anyone in particular and %[1]s is not mid-conversation
- replying would inject %[1]s into a conversation uninvited
- the topic is polarizing (politics, religion, and the like)

Lines of the form [Image description: "..."] are machine-written captions of images users posted; treat them as real conversation context.

The first line of your reply must be exactly YES or NO and nothing else. Below it, briefly explain your reasoning. The first line is parsed by a program that only understands YES or NO.`, botName)
}

// Decide runs one verdict call over the given transcript view.
// On ErrNoAnchor the returned verdict is valid (Respond=false) and carries
// the raw reply; any other error means the call itself failed.
func (d *Decider) Decide(ctx context.Context, view []transcript.Turn) (Verdict, error) {
	resp, err := d.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: decisionInstructions(d.botName)},
			{Role: openai.ChatMessageRoleUser, Content: renderView(view)},
		},
		Temperature: 0.1,
		MaxTokens:   d.cfg.MaxTokens,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("decision call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Verdict{}, fmt.Errorf("decision call returned no choices")
	}

	verdict, err := parseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		return verdict, err
	}
	d.logger.Debug("verdict extracted", "respond", verdict.Respond)
	return verdict, nil
}

// parseVerdict extracts the anchored boolean from the first line of raw.
// Anything other than a bare YES or NO on line one yields ErrNoAnchor and
// a do-not-respond verdict.
func parseVerdict(raw string) (Verdict, error) {
	firstLine, _, _ := strings.Cut(strings.TrimSpace(raw), "\n")
	switch strings.ToUpper(strings.TrimSpace(firstLine)) {
	case "YES":
		return Verdict{Respond: true, Raw: raw}, nil
	case "NO":
		return Verdict{Respond: false, Raw: raw}, nil
	default:
		return Verdict{Respond: false, Raw: raw}, ErrNoAnchor
	}
}

// renderView flattens a transcript view into role- and author-prefixed
// lines for the decision prompt.
func renderView(view []transcript.Turn) string {
	var b strings.Builder
	for _, t := range view {
		if t.Author != "" {
			fmt.Fprintf(&b, "%s (%s): %s\n", t.Role, t.Author, t.Content)
		} else {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
		}
	}
	return b.String()
}
