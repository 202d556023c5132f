package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloudwego/eino/components/model"

	"discussdraft/internal/models"
)

// Endpoints overrides where provider requests go. Zero values mean the
// public APIs and http.DefaultClient.
type Endpoints struct {
	ClaudeURL  string
	GeminiURL  string
	HTTPClient *http.Client
}

// NewChatModel returns the chat model for provider.
func NewChatModel(ctx context.Context, provider models.Provider, apiKey, modelName string, ep Endpoints) (model.BaseChatModel, error) {
	switch provider {
	case models.ProviderClaude:
		return NewClaudeChatModel(ClaudeConfig{
			APIKey:     apiKey,
			Model:      modelName,
			BaseURL:    ep.ClaudeURL,
			HTTPClient: ep.HTTPClient,
		})
	case models.ProviderGemini:
		return NewGeminiChatModel(GeminiConfig{
			APIKey:     apiKey,
			Model:      modelName,
			BaseURL:    ep.GeminiURL,
			HTTPClient: ep.HTTPClient,
		})
	}
	return nil, fmt.Errorf("unsupported provider %q", provider)
}
