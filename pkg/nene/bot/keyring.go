// Package bot – keyring.go provides credential storage using the operating
// system's native keyring (Linux: Secret Service/GNOME Keyring, macOS:
// Keychain, Windows: Credential Manager).
//
// Priority for resolving secrets:
//  1. OS keyring (encrypted by the OS, requires user session)
//  2. Environment variable (NENE_API_KEY, LINE_CHANNEL_TOKEN, ...)
//  3. .env file (loaded by godotenv)
//  4. config.yaml value (least secure — plaintext on disk)
package bot

import (
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService is the service name used in the OS keyring.
	keyringService = "nene"

	// KeyAPIKey is the keyring entry name for the LLM API key.
	KeyAPIKey = "api_key"

	// KeyLineToken is the keyring entry name for the LINE channel token.
	KeyLineToken = "line_channel_token"

	// KeyLineSecret is the keyring entry name for the LINE channel secret.
	KeyLineSecret = "line_channel_secret"
)

// StoreKeyring saves a secret to the OS keyring.
func StoreKeyring(key, value string) error {
	if err := keyring.Set(keyringService, key, value); err != nil {
		return fmt.Errorf("storing %q in keyring: %w", key, err)
	}
	return nil
}

// GetKeyring retrieves a secret from the OS keyring.
// Returns empty string if not found.
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

// ResolveSecrets resolves all credentials using the priority chain
// keyring → env/.env (already merged into cfg by the loader) → config value,
// updating the config in place.
func ResolveSecrets(cfg *Config, logger *slog.Logger) {
	resolve := func(keyringKey string, current *string, what string) {
		if val := GetKeyring(keyringKey); val != "" {
			*current = val
			logger.Debug(what+" loaded from OS keyring", "key", keyringKey)
			return
		}
		if *current != "" && !IsEnvReference(*current) {
			logger.Debug(what + " loaded from config/env")
			return
		}
		*current = ""
	}

	resolve(KeyAPIKey, &cfg.API.APIKey, "API key")
	resolve(KeyLineToken, &cfg.Channels.Line.ChannelToken, "LINE channel token")
	resolve(KeyLineSecret, &cfg.Channels.Line.ChannelSecret, "LINE channel secret")

	if cfg.API.APIKey == "" {
		logger.Warn("no API key found. Set one with: nene config set-key or NENE_API_KEY")
	}
}
