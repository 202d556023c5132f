package mocks

import (
	"context"

	"discussdraft/internal/models"
)

type SettingsRepositoryMock struct {
	GetFunc    func(ctx context.Context) (*models.Settings, error)
	UpdateFunc func(ctx context.Context, settings *models.Settings) error
}

func (m *SettingsRepositoryMock) Get(ctx context.Context) (*models.Settings, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx)
	}
	return models.DefaultSettings(), nil
}

func (m *SettingsRepositoryMock) Update(ctx context.Context, settings *models.Settings) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, settings)
	}
	return nil
}
