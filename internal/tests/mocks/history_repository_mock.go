package mocks

import (
	"context"

	"discussdraft/internal/models"
)

type HistoryRepositoryMock struct {
	PrependFunc  func(ctx context.Context, rec *models.HistoryRecord, limit int) error
	ListFunc     func(ctx context.Context, limit int) ([]models.HistoryRecord, error)
	DeleteAtFunc func(ctx context.Context, index int) error
	ClearFunc    func(ctx context.Context) error
}

func (m *HistoryRepositoryMock) Prepend(ctx context.Context, rec *models.HistoryRecord, limit int) error {
	if m.PrependFunc != nil {
		return m.PrependFunc(ctx, rec, limit)
	}
	return nil
}

func (m *HistoryRepositoryMock) List(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit)
	}
	return nil, nil
}

func (m *HistoryRepositoryMock) DeleteAt(ctx context.Context, index int) error {
	if m.DeleteAtFunc != nil {
		return m.DeleteAtFunc(ctx, index)
	}
	return nil
}

func (m *HistoryRepositoryMock) Clear(ctx context.Context) error {
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx)
	}
	return nil
}
