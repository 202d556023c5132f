package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"discussdraft/internal/models"
	"discussdraft/internal/repositories"
)

type SettingsService interface {
	// Get returns the stored settings with API keys attached.
	Get(ctx context.Context) (*models.Settings, error)
	// Update validates and saves in. Empty strings keep the stored value, but
	// numeric fields and sideInstructions are saved as given, so callers with
	// a partial update merge it over Get first.
	Update(ctx context.Context, in models.Settings) (*models.Settings, error)
}

type settingsService struct {
	repo    repositories.SettingsRepository
	keys    *KeyringService
	catalog ModelCatalogService
}

func NewSettingsService(repo repositories.SettingsRepository, keys *KeyringService, catalog ModelCatalogService) SettingsService {
	return &settingsService{repo: repo, keys: keys, catalog: catalog}
}

func (s *settingsService) Get(ctx context.Context) (*models.Settings, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if settings.ClaudeModel == "" {
		settings.ClaudeModel = models.DefaultClaudeModel
	}
	if settings.GeminiModel == "" {
		settings.GeminiModel = models.DefaultGeminiModel
	}
	if settings.ReplyCount <= 0 {
		settings.ReplyCount = models.DefaultReplyCount
	}
	if !settings.Provider.Valid() {
		settings.Provider = models.ProviderClaude
	}

	if settings.ClaudeAPIKey, err = s.keys.GetApiKey(string(models.ProviderClaude)); err != nil {
		return nil, fmt.Errorf("read claude API key: %w", err)
	}
	if settings.GeminiAPIKey, err = s.keys.GetApiKey(string(models.ProviderGemini)); err != nil {
		return nil, fmt.Errorf("read gemini API key: %w", err)
	}
	return settings, nil
}

func (s *settingsService) Update(ctx context.Context, in models.Settings) (*models.Settings, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	if in.Provider == "" {
		in.Provider = current.Provider
	}
	if !in.Provider.Valid() {
		return nil, fmt.Errorf("%w: provider must be claude or gemini", ErrInvalidInput)
	}
	if in.Temperature < models.MinTemperature || in.Temperature > models.MaxTemperature {
		return nil, fmt.Errorf("%w: temperature must be between 0 and 2", ErrInvalidInput)
	}
	if in.MaxTokens <= 0 {
		return nil, fmt.Errorf("%w: maxTokens must be a positive integer", ErrInvalidInput)
	}
	if in.ReplyCount <= 0 {
		in.ReplyCount = current.ReplyCount
	}

	in.ClaudeModel = strings.TrimSpace(in.ClaudeModel)
	if in.ClaudeModel == "" {
		in.ClaudeModel = current.ClaudeModel
	}
	in.GeminiModel = strings.TrimSpace(in.GeminiModel)
	if in.GeminiModel == "" {
		in.GeminiModel = current.GeminiModel
	}
	if !s.catalog.HasModel(models.ProviderClaude, in.ClaudeModel) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, in.ClaudeModel)
	}
	if !s.catalog.HasModel(models.ProviderGemini, in.GeminiModel) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, in.GeminiModel)
	}

	in.ClaudeAPIKey = strings.TrimSpace(in.ClaudeAPIKey)
	in.GeminiAPIKey = strings.TrimSpace(in.GeminiAPIKey)
	for _, p := range []models.Provider{models.ProviderClaude, models.ProviderGemini} {
		key := in.APIKeyFor(p)
		if key != "" && !strings.HasPrefix(key, models.KeyPrefix(p)) {
			return nil, fmt.Errorf("%w: %s keys must start with %q", ErrInvalidAPIKey, p.Title(), models.KeyPrefix(p))
		}
	}
	if in.ClaudeAPIKey == "" {
		in.ClaudeAPIKey = current.ClaudeAPIKey
	}
	if in.GeminiAPIKey == "" {
		in.GeminiAPIKey = current.GeminiAPIKey
	}
	if in.APIKeyFor(in.Provider) == "" {
		return nil, fmt.Errorf("%w for %s", ErrMissingAPIKey, in.Provider.Title())
	}

	in.SideInstructions = strings.TrimSpace(in.SideInstructions)
	if err := s.repo.Update(ctx, &in); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	for _, p := range []models.Provider{models.ProviderClaude, models.ProviderGemini} {
		key := in.APIKeyFor(p)
		if key == "" || key == current.APIKeyFor(p) {
			continue
		}
		if err := s.keys.StoreApiKey(string(p), []byte(key)); err != nil {
			return nil, fmt.Errorf("store %s API key: %w", p, err)
		}
	}

	slog.Info("settings saved", slog.Any("settings", in))
	return &in, nil
}
