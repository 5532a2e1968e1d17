package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR} and ${VAR:-default} references in config
// values.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// Load reads configuration: defaults, overlaid with the YAML file at path
// (optional), with secrets resolved from the environment, .env files, and
// the OS keyring. An empty path searches the standard locations.
func Load(path string) (*Config, error) {
	// godotenv.Load does NOT overwrite existing env vars.
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}

	cfg := DefaultConfig()

	if path == "" {
		path = FindConfigFile()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	resolveSecrets(cfg)
	return cfg, nil
}

// FindConfigFile searches for config files in standard locations.
func FindConfigFile() string {
	candidates := []string{
		"config.yaml",
		"config.yml",
		"foxygpt.yaml",
		"foxygpt.yml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Save writes the config as YAML with secrets replaced by environment
// variable references, so the file never holds credentials in plaintext.
func Save(cfg *Config, path string) error {
	sanitized := *cfg
	sanitized.Discord.Token = "${DISCORD_TOKEN}"
	sanitized.OpenAI.APIKey = "${OPENAI_API_KEY}"
	if sanitized.Vision.BearerToken != "" {
		sanitized.Vision.BearerToken = "${VISION_BEARER_TOKEN}"
	}

	data, err := yaml.Marshal(&sanitized)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment
// values. Unset variables without a default expand to the empty string so
// Validate reports them by name instead of the loader choking on the
// placeholder.
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		sub := envVarPattern.FindStringSubmatch(match)
		name, fallback := sub[1], sub[2]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return fallback
	})
}

// resolveSecrets fills empty credentials from the environment, then the OS
// keyring. DISCORD_API_KEY is accepted as a legacy alias for DISCORD_TOKEN.
func resolveSecrets(cfg *Config) {
	if cfg.Discord.Token == "" {
		cfg.Discord.Token = firstEnv("DISCORD_TOKEN", "DISCORD_API_KEY")
	}
	if cfg.Discord.Token == "" {
		cfg.Discord.Token = GetKeyring(keyringDiscordToken)
	}

	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = GetKeyring(keyringOpenAIKey)
	}

	if cfg.Discord.ChannelID == "" {
		cfg.Discord.ChannelID = os.Getenv("CHANNEL_ID")
	}
	if cfg.Vision.ProjectID == "" {
		cfg.Vision.ProjectID = os.Getenv("GOOGLE_PROJECT_ID")
	}
	if cfg.Vision.BearerToken == "" {
		cfg.Vision.BearerToken = os.Getenv("VISION_BEARER_TOKEN")
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return ""
}
