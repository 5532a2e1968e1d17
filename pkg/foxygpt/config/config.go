// Package config defines the bot configuration: a YAML file for behaviour
// (persona, models, decision window, retention) and environment variables
// or the OS keyring for credentials.
package config

import (
	"fmt"

	"github.com/sveny/foxygpt/pkg/foxygpt/bot"
	"github.com/sveny/foxygpt/pkg/foxygpt/engine"
	"github.com/sveny/foxygpt/pkg/foxygpt/vision"
)

// defaultPersona is the system turn seeded into the transcript at startup.
const defaultPersona = `You are a friendly Discord chatbot called FoxyGPT.
You converse like a normal internet human, occasionally (but not constantly) using internet slang.

Discord tricks:
- You can hide text with the spoiler tag: ||spoiler||.
- You can format text with code blocks: ` + "```code```" + `, optionally with a language: ` + "```js code```" + `.
- You can quote text like this: >quote.

Messages you receive are formatted as "username: content" so you know who is talking.
Never replicate that format in your own replies; the users must not see it.
Lines like [Image description: "..."] describe images users posted; treat them as part of the conversation.`

// Config is the full bot configuration.
type Config struct {
	// Name is the bot's display name, used in the decision prompt.
	Name string `yaml:"name"`

	// Persona is the system prompt seeded as the transcript's first turn.
	Persona string `yaml:"persona"`

	// Discord is the chat transport configuration.
	Discord bot.DiscordConfig `yaml:"discord"`

	// OpenAI configures the completion and moderation backend.
	OpenAI OpenAIConfig `yaml:"openai"`

	// Vision configures the image captioning backend.
	Vision vision.Config `yaml:"vision"`

	// Decision configures the respond/stay-quiet stage.
	Decision engine.DecisionConfig `yaml:"decision"`

	// Reply configures the response generation stage.
	Reply engine.ReplyConfig `yaml:"reply"`

	// Retention configures the optional transcript sweep.
	Retention RetentionConfig `yaml:"retention"`

	// Audit configures the SQLite audit trail.
	Audit AuditConfig `yaml:"audit"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`
}

// OpenAIConfig configures the OpenAI-compatible backend shared by the
// safety gate, decision engine, and response generator.
type OpenAIConfig struct {
	// APIKey authenticates all calls. Usually supplied via OPENAI_API_KEY.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the API endpoint for compatible providers.
	BaseURL string `yaml:"base_url"`

	// ModerationModel is the safety gate model.
	ModerationModel string `yaml:"moderation_model"`
}

// RetentionConfig bounds transcript growth. Disabled by default: the
// transcript is unbounded unless a deployment opts in.
type RetentionConfig struct {
	// MaxTurns is the number of turns kept by a sweep (system turn
	// included). 0 disables the sweep.
	MaxTurns int `yaml:"max_turns"`

	// Sweep is the cron schedule for the trim job (e.g. "@every 30m").
	Sweep string `yaml:"sweep"`
}

// AuditConfig configures the audit database.
type AuditConfig struct {
	// Path is the SQLite file; empty disables the audit trail.
	Path string `yaml:"path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the log format ("json", "text").
	Format string `yaml:"format"`
}

// DefaultConfig returns the default bot configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:     "FoxyGPT",
		Persona:  defaultPersona,
		Vision:   vision.DefaultConfig(),
		Decision: engine.DefaultDecisionConfig(),
		Reply:    engine.DefaultReplyConfig(),
		Retention: RetentionConfig{
			Sweep: "@every 30m",
		},
		Audit: AuditConfig{
			Path: "./foxygpt-audit.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that every required credential is present, returning an
// actionable error naming the variable to set. Called once at startup so
// a missing credential halts the process instead of failing mid-pipeline.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("Discord bot token is not set: export DISCORD_TOKEN (or run `foxygpt setup`)")
	}
	if c.Discord.ChannelID == "" {
		return fmt.Errorf("listen channel is not set: export CHANNEL_ID (or run `foxygpt setup`)")
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OpenAI API key is not set: export OPENAI_API_KEY (or run `foxygpt setup`)")
	}
	if c.Vision.Enabled && c.Vision.ProjectID == "" {
		return fmt.Errorf("vision is enabled but the Google Cloud project is not set: export GOOGLE_PROJECT_ID or set vision.project_id")
	}
	return nil
}
