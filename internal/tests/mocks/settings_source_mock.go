package mocks

import (
	"context"

	"discussdraft/internal/models"
)

type SettingsSourceMock struct {
	GetFunc func(ctx context.Context) (*models.Settings, error)
}

func (m *SettingsSourceMock) Get(ctx context.Context) (*models.Settings, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx)
	}
	s := models.DefaultSettings()
	s.ClaudeAPIKey = "sk-ant-test-0123456789"
	return s, nil
}
