package services

import (
	"fmt"

	"gorm.io/gorm"

	"discussdraft/internal/llm/client"
	"discussdraft/internal/llm/prompts"
	"discussdraft/internal/repositories"
)

// Services aggregates the domain services backed by the database and keyring.
type Services struct {
	Settings   SettingsService
	History    HistoryService
	Catalog    ModelCatalogService
	Keys       *KeyringService
	Generation *GenerationService
}

// NewServices constructs the service container using repositories backed by db.
func NewServices(db *gorm.DB, keys *KeyringService, endpoints client.Endpoints) (*Services, error) {
	catalog, err := NewModelCatalogService()
	if err != nil {
		return nil, err
	}
	builder, err := prompts.NewBuilder()
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	return &Services{
		Settings:   NewSettingsService(repositories.NewSettingsRepository(db), keys, catalog),
		History:    NewHistoryService(repositories.NewHistoryRepository(db)),
		Catalog:    catalog,
		Keys:       keys,
		Generation: NewGenerationService(builder, endpoints),
	}, nil
}
