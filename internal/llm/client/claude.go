package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"discussdraft/internal/models"
)

const (
	DefaultClaudeURL   = "https://api.anthropic.com/v1/messages"
	claudeAPIVersion   = "2023-06-01"
	defaultTemperature = float32(0.7)
	defaultMaxTokens   = 1000
)

type ClaudeConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// ClaudeChatModel talks to the Anthropic messages endpoint.
type ClaudeChatModel struct {
	cfg ClaudeConfig
}

var _ model.BaseChatModel = (*ClaudeChatModel)(nil)

func NewClaudeChatModel(cfg ClaudeConfig) (*ClaudeChatModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("claude API key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("claude model is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultClaudeURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &ClaudeChatModel{cfg: cfg}, nil
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float32         `json:"temperature"`
	System      string          `json:"system,omitempty"`
	Messages    []claudeMessage `json:"messages"`
}

func (m *ClaudeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	temperature := defaultTemperature
	maxTokens := defaultMaxTokens
	modelName := m.cfg.Model
	options := model.GetCommonOptions(&model.Options{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		Model:       &modelName,
	}, opts...)

	req := claudeRequest{
		Model:       *options.Model,
		MaxTokens:   *options.MaxTokens,
		Temperature: *options.Temperature,
	}
	var system []string
	for _, msg := range input {
		switch msg.Role {
		case schema.System:
			system = append(system, msg.Content)
		case schema.Assistant:
			req.Messages = append(req.Messages, claudeMessage{Role: "assistant", Content: msg.Content})
		default:
			req.Messages = append(req.Messages, claudeMessage{Role: "user", Content: msg.Content})
		}
	}
	req.System = strings.Join(system, "\n\n")
	if len(req.Messages) == 0 {
		return nil, errors.New("at least one user message is required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode claude request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build claude request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", m.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", claudeAPIVersion)

	slog.Debug("claude request", slog.String("model", req.Model), slog.Int("max_tokens", req.MaxTokens))

	resp, err := m.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, transportError("claude", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read claude response: %w", err)
	}
	if !isSuccess(resp.StatusCode) {
		return nil, &APIError{Provider: "claude", StatusCode: resp.StatusCode, Message: errorMessage(body, resp.StatusCode)}
	}

	var msg anthropic.Message
	if err := json.Unmarshal(body, &msg); err != nil || len(msg.Content) == 0 || msg.Content[0].Text == "" {
		return nil, &APIError{Provider: "claude", StatusCode: resp.StatusCode, Message: "No content in API response"}
	}

	out := schema.AssistantMessage(msg.Content[0].Text, nil)
	out.ResponseMeta = &schema.ResponseMeta{FinishReason: claudeFinishReason(msg.StopReason)}
	if in, outTokens := int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens); in > 0 || outTokens > 0 {
		out.ResponseMeta.Usage = &schema.TokenUsage{
			PromptTokens:     in,
			CompletionTokens: outTokens,
			TotalTokens:      in + outTokens,
		}
	}
	return out, nil
}

func (m *ClaudeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("claude: streaming is not supported")
}

func claudeFinishReason(stop anthropic.StopReason) string {
	if stop == anthropic.StopReasonMaxTokens {
		return models.FinishReasonMaxLength
	}
	return string(stop)
}
