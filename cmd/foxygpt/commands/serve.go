package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/sveny/foxygpt/pkg/foxygpt/audit"
	"github.com/sveny/foxygpt/pkg/foxygpt/bot"
	"github.com/sveny/foxygpt/pkg/foxygpt/config"
	"github.com/sveny/foxygpt/pkg/foxygpt/engine"
	"github.com/sveny/foxygpt/pkg/foxygpt/moderation"
	"github.com/sveny/foxygpt/pkg/foxygpt/transcript"
	"github.com/sveny/foxygpt/pkg/foxygpt/vision"
)

// newServeCmd creates the `foxygpt serve` command that runs the bot.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and run the bot",
		Long: `Connects to the Discord gateway and processes messages from the
configured channel until interrupted.

Examples:
  foxygpt serve
  foxygpt serve --config ./config.yaml`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	// ── Load and validate config ──
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── Configure logger ──
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	logLevel := slog.LevelInfo
	if verbose || cfg.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
	}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	logger := slog.New(handler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Backends ──
	apiCfg := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		apiCfg.BaseURL = cfg.OpenAI.BaseURL
	}
	api := openai.NewClientWithConfig(apiCfg)

	var captioner bot.Captioner
	if cfg.Vision.Enabled {
		v, err := vision.New(ctx, cfg.Vision, logger)
		if err != nil {
			return fmt.Errorf("starting perception: %w", err)
		}
		captioner = v
		logger.Info("image captioning enabled", "project", cfg.Vision.ProjectID, "location", cfg.Vision.Location)
	} else {
		logger.Info("image captioning disabled, attachments will be ignored")
	}

	var auditor bot.Auditor
	if cfg.Audit.Path != "" {
		auditLog, err := audit.Open(cfg.Audit.Path)
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		defer auditLog.Close()
		auditor = auditLog
	}

	// ── Pipeline ──
	store := transcript.New(cfg.Persona)
	discord := bot.NewDiscord(cfg.Discord, logger)

	dispatcher := bot.New(bot.Options{
		Store:          store,
		Gate:           moderation.New(api, cfg.OpenAI.ModerationModel, logger),
		Captioner:      captioner,
		Decider:        engine.NewDecider(api, cfg.Decision, cfg.Name, logger),
		Generator:      engine.NewGenerator(api, cfg.Reply, logger),
		Transport:      discord,
		Audit:          auditor,
		DecisionWindow: cfg.Decision.Window,
		Logger:         logger,
	})
	discord.SetDispatcher(dispatcher)

	// ── Retention sweep (opt-in) ──
	if cfg.Retention.MaxTurns > 0 && cfg.Retention.Sweep != "" {
		sweeper := cron.New()
		_, err := sweeper.AddFunc(cfg.Retention.Sweep, func() {
			if removed := store.TrimFront(cfg.Retention.MaxTurns); removed > 0 {
				logger.Info("transcript trimmed", "removed", removed, "kept", store.Len())
			}
		})
		if err != nil {
			return fmt.Errorf("invalid retention schedule %q: %w", cfg.Retention.Sweep, err)
		}
		sweeper.Start()
		defer sweeper.Stop()
		logger.Info("retention sweep scheduled", "schedule", cfg.Retention.Sweep, "max_turns", cfg.Retention.MaxTurns)
	}

	// ── Connect and run ──
	if err := discord.Connect(ctx); err != nil {
		return err
	}
	defer discord.Close()

	logger.Info("FoxyGPT is running", "channel", cfg.Discord.ChannelID)
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
