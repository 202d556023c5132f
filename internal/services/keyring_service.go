package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "discussdraft"

type KeyringConfig struct {
	// Backend is "auto", "file" or a keyring backend name such as "keychain".
	Backend  string
	Dir      string
	Password string
}

// KeyringService stores provider API keys outside the settings database.
type KeyringService struct {
	ring keyring.Keyring
}

func NewKeyringService(cfg KeyringConfig) (*KeyringService, error) {
	kcfg := keyring.Config{
		ServiceName:      serviceName,
		FileDir:          cfg.Dir,
		FilePasswordFunc: keyring.FixedStringPrompt(cfg.Password),
	}
	switch backend := strings.ToLower(strings.TrimSpace(cfg.Backend)); backend {
	case "", "auto":
	default:
		kcfg.AllowedBackends = []keyring.BackendType{keyring.BackendType(backend)}
	}

	ring, err := keyring.Open(kcfg)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return NewKeyringServiceWith(ring), nil
}

// NewKeyringServiceWith wraps an already opened keyring.
func NewKeyringServiceWith(ring keyring.Keyring) *KeyringService {
	return &KeyringService{ring: ring}
}

func (s *KeyringService) StoreApiKey(provider string, apiKey []byte) error {
	if len(apiKey) == 0 {
		return errors.New("API key is empty")
	}
	if provider == "" {
		return errors.New("provider is required")
	}
	return s.ring.Set(keyring.Item{
		Key:         provider,
		Data:        apiKey,
		Label:       provider + " API key",
		Description: "API key for " + provider + " used by discussdraft",
	})
}

// GetApiKey returns "" without an error when no key is stored.
func (s *KeyringService) GetApiKey(provider string) (string, error) {
	if provider == "" {
		return "", errors.New("provider is required")
	}
	item, err := s.ring.Get(provider)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(item.Data), nil
}

func (s *KeyringService) DeleteApiKey(provider string) error {
	if provider == "" {
		return errors.New("provider is required")
	}
	err := s.ring.Remove(provider)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (s *KeyringService) ListApiKeys() ([]map[string]string, error) {
	keys, err := s.ring.Keys()
	if err != nil {
		return nil, err
	}

	var results []map[string]string
	for _, provider := range keys {
		if _, err := s.ring.Get(provider); err != nil {
			continue
		}
		results = append(results, map[string]string{
			"provider":    provider,
			"label":       provider + " API key",
			"description": "API key for " + provider + " used by discussdraft",
		})
	}
	return results, nil
}
