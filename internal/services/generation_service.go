package services

import (
	"context"
	"log/slog"

	"github.com/cloudwego/eino/components/model"

	"discussdraft/internal/llm/client"
	"discussdraft/internal/llm/prompts"
	"discussdraft/internal/models"
)

// ChatModelFactory builds the chat model for one request.
type ChatModelFactory func(ctx context.Context, provider models.Provider, apiKey, modelName string) (model.BaseChatModel, error)

// GenerationService turns a GenerationRequest into a GenerationOutcome. Every
// failure, including invalid input and transport errors, is reported in the
// outcome; the returned error is always nil.
type GenerationService struct {
	prompts  *prompts.Builder
	newModel ChatModelFactory
}

func NewGenerationService(builder *prompts.Builder, endpoints client.Endpoints) *GenerationService {
	return NewGenerationServiceWith(builder, func(ctx context.Context, provider models.Provider, apiKey, modelName string) (model.BaseChatModel, error) {
		return client.NewChatModel(ctx, provider, apiKey, modelName, endpoints)
	})
}

func NewGenerationServiceWith(builder *prompts.Builder, factory ChatModelFactory) *GenerationService {
	return &GenerationService{prompts: builder, newModel: factory}
}

func (s *GenerationService) Generate(ctx context.Context, req models.GenerationRequest) (models.GenerationOutcome, error) {
	logger := slog.With(
		slog.String("provider", string(req.Provider)),
		slog.String("kind", string(req.Kind)),
		slog.String("model", req.Model),
	)

	if err := req.Validate(); err != nil {
		return models.Failed(err.Error()), nil
	}

	messages, err := s.prompts.Build(ctx, req)
	if err != nil {
		logger.Error("build prompt", slog.Any("error", err))
		return models.Failed(err.Error()), nil
	}

	chat, err := s.newModel(ctx, req.Provider, req.APIKey, req.Model)
	if err != nil {
		return models.Failed(err.Error()), nil
	}

	answer, err := chat.Generate(ctx, messages, callOptions(req)...)
	if err != nil {
		logger.Warn("generation failed", slog.Any("error", err))
		return models.Failed(err.Error()), nil
	}

	var (
		finishReason string
		usage        *models.TokenUsage
	)
	if meta := answer.ResponseMeta; meta != nil {
		finishReason = meta.FinishReason
		if meta.Usage != nil {
			usage = &models.TokenUsage{
				PromptTokens:     meta.Usage.PromptTokens,
				CompletionTokens: meta.Usage.CompletionTokens,
				TotalTokens:      meta.Usage.TotalTokens,
			}
		}
	}
	logger.Debug("generation finished", slog.String("finish_reason", finishReason), slog.Int("chars", len(answer.Content)))
	return models.Succeeded(answer.Content, finishReason, usage), nil
}

func callOptions(req models.GenerationRequest) []model.Option {
	var opts []model.Option
	if req.Temperature != nil {
		opts = append(opts, model.WithTemperature(float32(*req.Temperature)))
	}
	if req.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*req.MaxTokens))
	}
	if req.ThinkingBudget != nil {
		opts = append(opts, client.WithThinkingBudget(*req.ThinkingBudget))
	}
	return opts
}
