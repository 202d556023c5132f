package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discussdraft/internal/llm/client"
	"discussdraft/internal/llm/prompts"
	"discussdraft/internal/models"
)

type fakeChatModel struct {
	answer   *schema.Message
	err      error
	messages []*schema.Message
	options  *model.Options
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.messages = input
	f.options = model.GetCommonOptions(&model.Options{}, opts...)
	return f.answer, f.err
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func newTestBuilder(t *testing.T) *prompts.Builder {
	t.Helper()
	b, err := prompts.NewBuilder()
	require.NoError(t, err)
	return b
}

func claudeRequest() models.GenerationRequest {
	temperature := 0.3
	maxTokens := 1500
	return models.GenerationRequest{
		Kind:        models.KindMainPost,
		Provider:    models.ProviderClaude,
		APIKey:      "sk-ant-0123456789",
		Model:       models.DefaultClaudeModel,
		Topic:       "Climate Policy",
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}
}

func TestGenerationService_Success(t *testing.T) {
	fake := &fakeChatModel{answer: &schema.Message{
		Role:    schema.Assistant,
		Content: "draft",
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: models.FinishReasonMaxLength,
			Usage:        &schema.TokenUsage{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10},
		},
	}}
	var gotProvider models.Provider
	var gotKey string
	svc := NewGenerationServiceWith(newTestBuilder(t), func(ctx context.Context, p models.Provider, apiKey, modelName string) (model.BaseChatModel, error) {
		gotProvider, gotKey = p, apiKey
		return fake, nil
	})

	out, err := svc.Generate(context.Background(), claudeRequest())
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.Equal(t, "draft", out.Text)
	assert.True(t, out.Truncated())
	assert.Equal(t, &models.TokenUsage{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10}, out.Usage)
	assert.Equal(t, models.ProviderClaude, gotProvider)
	assert.Equal(t, "sk-ant-0123456789", gotKey)

	require.NotEmpty(t, fake.messages)
	assert.Contains(t, fake.messages[len(fake.messages)-1].Content, "Climate Policy")
	require.NotNil(t, fake.options.Temperature)
	assert.InDelta(t, 0.3, *fake.options.Temperature, 1e-6)
	require.NotNil(t, fake.options.MaxTokens)
	assert.Equal(t, 1500, *fake.options.MaxTokens)
}

func TestGenerationService_InvalidRequestIsOutcome(t *testing.T) {
	svc := NewGenerationServiceWith(newTestBuilder(t), func(context.Context, models.Provider, string, string) (model.BaseChatModel, error) {
		t.Fatal("model must not be built for invalid input")
		return nil, nil
	})
	req := claudeRequest()
	req.APIKey = ""

	out, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "claude API key is required", out.Error)
}

func TestGenerationService_ModelErrorIsOutcome(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("overloaded")}
	svc := NewGenerationServiceWith(newTestBuilder(t), func(context.Context, models.Provider, string, string) (model.BaseChatModel, error) {
		return fake, nil
	})

	out, err := svc.Generate(context.Background(), claudeRequest())
	require.NoError(t, err)
	assert.Equal(t, models.Failed("overloaded"), out)
}

func TestGenerationService_ClaudeRateLimitedOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"rate limited"}}`))
	}))
	t.Cleanup(srv.Close)

	svc := NewGenerationService(newTestBuilder(t), client.Endpoints{ClaudeURL: srv.URL})

	out, err := svc.Generate(context.Background(), claudeRequest())
	require.NoError(t, err)
	assert.Equal(t, models.Failed("rate limited"), out)
}

func TestGenerationService_GeminiOverHTTP(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hello"}]},"finishReason":"STOP"}]}`))
	}))
	t.Cleanup(srv.Close)

	svc := NewGenerationService(newTestBuilder(t), client.Endpoints{GeminiURL: srv.URL})
	req := claudeRequest()
	req.Provider = models.ProviderGemini
	req.APIKey = "AIza0123456789"
	req.Model = models.DefaultGeminiModel

	out, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "hello", out.Text)
	assert.Equal(t, "AIza0123456789", gotKey)
}
