package mocks

import (
	"context"
	"sync"

	"discussdraft/internal/models"
)

// GeneratorMock records every request it receives.
type GeneratorMock struct {
	GenerateFunc func(ctx context.Context, req models.GenerationRequest) (models.GenerationOutcome, error)

	mu    sync.Mutex
	calls []models.GenerationRequest
}

func (m *GeneratorMock) Generate(ctx context.Context, req models.GenerationRequest) (models.GenerationOutcome, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return models.Succeeded("generated text", "", nil), nil
}

func (m *GeneratorMock) Calls() []models.GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.GenerationRequest(nil), m.calls...)
}
