package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sveny/foxygpt/pkg/foxygpt/config"
)

// newSetupCmd creates the `foxygpt setup` command for interactive
// configuration.
func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactive setup wizard",
		Long: `Starts an interactive wizard that collects the Discord bot token,
OpenAI API key, and channel ID, then writes .env and config.yaml.
Secrets can optionally go to the OS keyring instead of the .env file.

Examples:
  foxygpt setup`,
		RunE: runSetup,
	}
}

func runSetup(_ *cobra.Command, _ []string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("setup needs an interactive terminal; set DISCORD_TOKEN, OPENAI_API_KEY and CHANNEL_ID manually instead")
	}

	var (
		discordToken  string
		openAIKey     string
		channelID     string
		visionEnabled bool
		projectID     string
		useKeyring    bool
	)

	required := func(name string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", name)
			}
			return nil
		}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Discord bot token").
				Description("From the Discord developer portal, Bot tab.").
				EchoMode(huh.EchoModePassword).
				Validate(required("the bot token")).
				Value(&discordToken),
			huh.NewInput().
				Title("OpenAI API key").
				EchoMode(huh.EchoModePassword).
				Validate(required("the API key")).
				Value(&openAIKey),
			huh.NewInput().
				Title("Channel ID to listen on").
				Description("Right-click the channel in Discord with developer mode on.").
				Validate(required("the channel ID")).
				Value(&channelID),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable image captioning?").
				Description("Describes posted images via Vertex AI so the bot can talk about them.").
				Value(&visionEnabled),
			huh.NewInput().
				Title("Google Cloud project ID").
				Description("Leave empty if captioning is disabled.").
				Value(&projectID),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Store secrets in the OS keyring?").
				Description("Otherwise they go into .env next to the binary.").
				Value(&useKeyring),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("Setup cancelled.")
			return nil
		}
		return err
	}

	// ── Secrets ──
	env := map[string]string{
		"CHANNEL_ID": strings.TrimSpace(channelID),
	}
	if projectID != "" {
		env["GOOGLE_PROJECT_ID"] = strings.TrimSpace(projectID)
	}

	storedInKeyring := false
	if useKeyring && config.KeyringAvailable() {
		if err := config.StoreSecrets(discordToken, openAIKey); err != nil {
			fmt.Println("Keyring unavailable, falling back to .env:", err)
		} else {
			storedInKeyring = true
		}
	}
	if !storedInKeyring {
		env["DISCORD_TOKEN"] = discordToken
		env["OPENAI_API_KEY"] = openAIKey
	}

	if err := godotenv.Write(env, ".env"); err != nil {
		return fmt.Errorf("writing .env: %w", err)
	}
	if err := os.Chmod(".env", 0o600); err != nil {
		return fmt.Errorf("restricting .env permissions: %w", err)
	}

	// ── Behaviour config ──
	cfg := config.DefaultConfig()
	cfg.Vision.Enabled = visionEnabled
	cfg.Vision.ProjectID = strings.TrimSpace(projectID)
	if err := config.Save(cfg, "config.yaml"); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Configuration written:")
	if storedInKeyring {
		fmt.Println("  - secrets:  OS keyring")
		fmt.Println("  - .env:     channel and project only")
	} else {
		fmt.Println("  - .env:     credentials and channel (permissions 600)")
	}
	fmt.Println("  - config.yaml: persona, models, retention (no secrets)")
	fmt.Println()
	fmt.Println("Start the bot with: foxygpt serve")
	return nil
}
