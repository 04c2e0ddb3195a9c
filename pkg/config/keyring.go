package config

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringService is the OS keyring service name API keys are stored under.
const KeyringService = "milkyway"

// ResolveLLMKey returns the API key for provider: the environment value when
// set, otherwise the keyring entry. A missing keyring entry is not an error.
func ResolveLLMKey(cfg LLMConfig) (string, error) {
	if key := cfg.APIKey(); key != "" {
		return key, nil
	}
	if cfg.Provider == "" || cfg.Provider == "none" {
		return "", nil
	}

	key, err := keyring.Get(KeyringService, cfg.Provider)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s key from keyring: %w", cfg.Provider, err)
	}
	return key, nil
}

// SetLLMKey stores an API key for provider in the OS keyring.
func SetLLMKey(provider, key string) error {
	if provider == "" || provider == "none" {
		return fmt.Errorf("provider is required")
	}
	if key == "" {
		return fmt.Errorf("key is required")
	}
	if err := keyring.Set(KeyringService, provider, key); err != nil {
		return fmt.Errorf("failed to store %s key in keyring: %w", provider, err)
	}
	return nil
}

// DeleteLLMKey removes the stored key for provider. Deleting a key that was
// never stored succeeds.
func DeleteLLMKey(provider string) error {
	err := keyring.Delete(KeyringService, provider)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete %s key from keyring: %w", provider, err)
	}
	return nil
}
