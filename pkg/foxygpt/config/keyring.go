// Package config – keyring.go provides credential storage in the operating
// system's native keyring (Linux: Secret Service, macOS: Keychain,
// Windows: Credential Manager).
//
// Resolution order for secrets: environment variable → .env file → keyring.
package config

import "github.com/zalando/go-keyring"

const (
	// keyringService is the service name used in the OS keyring.
	keyringService = "foxygpt"

	keyringDiscordToken = "discord_token"
	keyringOpenAIKey    = "openai_api_key"
)

// StoreKeyring saves a secret to the OS keyring.
func StoreKeyring(key, value string) error {
	return keyring.Set(keyringService, key, value)
}

// GetKeyring retrieves a secret from the OS keyring; empty if not found.
func GetKeyring(key string) string {
	val, err := keyring.Get(keyringService, key)
	if err != nil {
		return ""
	}
	return val
}

// DeleteKeyring removes a secret from the OS keyring.
func DeleteKeyring(key string) error {
	return keyring.Delete(keyringService, key)
}

// KeyringAvailable checks if the OS keyring is accessible.
func KeyringAvailable() bool {
	testKey := "__foxygpt_test__"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(keyringService, testKey)
	return true
}

// StoreSecrets writes the Discord token and OpenAI key to the keyring so
// the .env file can stay credential-free.
func StoreSecrets(discordToken, openAIKey string) error {
	if err := StoreKeyring(keyringDiscordToken, discordToken); err != nil {
		return err
	}
	return StoreKeyring(keyringOpenAIKey, openAIKey)
}
