package mocks

import (
	"context"

	"discussdraft/internal/page"
)

type PageSourceMock struct {
	LoadFunc func(ctx context.Context) (*page.Extractor, error)
	HTML     string
}

func (m *PageSourceMock) Load(ctx context.Context) (*page.Extractor, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx)
	}
	return page.ParseHTML(m.HTML)
}
