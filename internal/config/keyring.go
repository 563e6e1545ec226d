package config

import (
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name in the OS keychain.
	KeyringService = "RepoGraph"

	// KeyringNeo4jPasswordItem is the key for the Neo4j password.
	KeyringNeo4jPasswordItem = "neo4j-password"

	// KeyringLLMAPIKeyItem is the key for the LLM API key.
	KeyringLLMAPIKeyItem = "llm-api-key"
)

// KeyringManager handles secure credential storage in the OS keychain.
// - macOS: Keychain Access → "RepoGraph"
// - Windows: Credential Manager → "RepoGraph"
// - Linux: Secret Service (requires libsecret)
type KeyringManager struct {
	logger *slog.Logger
}

// NewKeyringManager creates a new keyring manager.
func NewKeyringManager() *KeyringManager {
	return &KeyringManager{
		logger: slog.Default().With("component", "keyring"),
	}
}

// SetNeo4jPassword stores the Neo4j password in the OS keychain.
func (km *KeyringManager) SetNeo4jPassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if err := keyring.Set(KeyringService, KeyringNeo4jPasswordItem, password); err != nil {
		km.logger.Error("failed to save neo4j password to keychain", "error", err)
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}
	km.logger.Info("neo4j password saved to keychain", "service", KeyringService)
	return nil
}

// GetNeo4jPassword retrieves the Neo4j password from the OS keychain.
// A missing entry is not an error.
func (km *KeyringManager) GetNeo4jPassword() (string, error) {
	pw, err := keyring.Get(KeyringService, KeyringNeo4jPasswordItem)
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}
	return pw, nil
}

// SetLLMAPIKey stores the LLM API key in the OS keychain.
func (km *KeyringManager) SetLLMAPIKey(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("api key cannot be empty")
	}
	if err := keyring.Set(KeyringService, KeyringLLMAPIKeyItem, apiKey); err != nil {
		km.logger.Error("failed to save API key to keychain", "error", err)
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}
	km.logger.Info("llm api key saved to keychain", "service", KeyringService)
	return nil
}

// GetLLMAPIKey retrieves the LLM API key from the OS keychain.
func (km *KeyringManager) GetLLMAPIKey() (string, error) {
	key, err := keyring.Get(KeyringService, KeyringLLMAPIKeyItem)
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}
	return key, nil
}

// DeleteAll removes all stored credentials from the OS keychain.
func (km *KeyringManager) DeleteAll() error {
	for _, item := range []string{KeyringNeo4jPasswordItem, KeyringLLMAPIKeyItem} {
		if err := keyring.Delete(KeyringService, item); err != nil && err != keyring.ErrNotFound {
			return fmt.Errorf("failed to delete %s from OS keychain: %w", item, err)
		}
	}
	km.logger.Info("credentials deleted from keychain")
	return nil
}

// IsAvailable checks if the OS keychain is usable. Returns false on
// headless systems where no secret service is running.
func (km *KeyringManager) IsAvailable() bool {
	_, err := keyring.Get(KeyringService, "test-availability")
	if err == keyring.ErrNotFound {
		return true
	}
	if err != nil {
		km.logger.Debug("keychain not available", "error", err)
		return false
	}
	return true
}

// MaskSecret masks a credential for display, showing only the first 7 and
// last 4 characters.
func MaskSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) < 12 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", secret[:7], secret[len(secret)-4:])
}
