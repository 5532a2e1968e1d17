package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// discordMessageLimit is Discord's per-message character cap.
const discordMessageLimit = 2000

// DiscordConfig holds the transport configuration.
type DiscordConfig struct {
	// Token is the Discord bot token.
	Token string `yaml:"token"`

	// ChannelID is the single channel the bot listens and replies in.
	// Events from every other channel are discarded.
	ChannelID string `yaml:"channel_id"`
}

// Discord connects the dispatcher to the Discord gateway. It implements
// Transport for the dispatcher's outbound side.
type Discord struct {
	cfg        DiscordConfig
	session    *discordgo.Session
	dispatcher *Dispatcher
	logger     *slog.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewDiscord creates the transport. Attach a dispatcher before Connect.
func NewDiscord(cfg DiscordConfig, logger *slog.Logger) *Discord {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discord{
		cfg:    cfg,
		logger: logger.With("component", "discord"),
	}
}

// SetDispatcher attaches the pipeline that inbound events are handed to.
func (d *Discord) SetDispatcher(dp *Dispatcher) { d.dispatcher = dp }

// Connect opens the gateway WebSocket connection and starts receiving
// message events.
func (d *Discord) Connect(ctx context.Context) error {
	if d.cfg.Token == "" {
		return fmt.Errorf("discord: bot token is required")
	}
	if d.cfg.ChannelID == "" {
		return fmt.Errorf("discord: channel_id is required")
	}
	if d.dispatcher == nil {
		return fmt.Errorf("discord: no dispatcher attached")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	session, err := discordgo.New("Bot " + d.cfg.Token)
	if err != nil {
		return fmt.Errorf("discord: creating session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	session.AddHandler(d.onReady)
	session.AddHandler(d.onMessageCreate)

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord: opening gateway: %w", err)
	}

	d.session = session
	return nil
}

// Close shuts the gateway connection down.
func (d *Discord) Close() error {
	if d.cancel != nil {
		d.cancel()
	}
	if d.session != nil {
		return d.session.Close()
	}
	return nil
}

// onReady logs the identity the gateway handed us.
func (d *Discord) onReady(s *discordgo.Session, r *discordgo.Ready) {
	d.logger.Info("discord: connected",
		"bot", r.User.Username,
		"id", r.User.ID,
		"channel", d.cfg.ChannelID)
}

// onMessageCreate converts a gateway message into a pipeline event.
// Each pass runs in its own goroutine; passes for messages arriving in
// close succession interleave at their network calls and are intentionally
// not serialized against each other.
func (d *Discord) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.ChannelID != d.cfg.ChannelID {
		return
	}
	// Discard our own traffic, and other bots' (avoids reply loops).
	if m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}

	ev := Event{
		MessageID:  m.ID,
		ChannelID:  m.ChannelID,
		AuthorID:   m.Author.ID,
		AuthorName: m.Author.Username,
		Text:       m.Content,
	}
	for _, a := range m.Attachments {
		ev.Attachments = append(ev.Attachments, Attachment{
			URL:         a.URL,
			ContentType: a.ContentType,
		})
	}

	go d.dispatcher.HandleEvent(d.ctx, ev)
}

// Send delivers a reply, splitting it when it exceeds Discord's limit.
func (d *Discord) Send(ctx context.Context, channelID, text string) error {
	if d.session == nil {
		return fmt.Errorf("discord: not connected")
	}
	for _, chunk := range splitMessage(text, discordMessageLimit) {
		if _, err := d.session.ChannelMessageSend(channelID, chunk); err != nil {
			return fmt.Errorf("discord: sending message: %w", err)
		}
	}
	return nil
}

// Retract deletes a message at the transport layer. Used for flagged
// content; the transcript itself is never touched.
func (d *Discord) Retract(ctx context.Context, channelID, messageID string) error {
	if d.session == nil {
		return fmt.Errorf("discord: not connected")
	}
	if err := d.session.ChannelMessageDelete(channelID, messageID); err != nil {
		return fmt.Errorf("discord: deleting message: %w", err)
	}
	return nil
}

// splitMessage chunks text at newline boundaries where possible, hard
// splitting lines longer than the limit.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, line := range strings.Split(text, "\n") {
		for len(line) > limit {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			chunks = append(chunks, line[:limit])
			line = line[limit:]
		}
		if current.Len() > 0 && current.Len()+len(line)+1 > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
