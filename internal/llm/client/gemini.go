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
	"net/url"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tidwall/gjson"
	"google.golang.org/genai"

	"discussdraft/internal/models"
)

const (
	DefaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta/models"

	// GeminiNoContent is returned as a successful answer when Gemini replies
	// without an error and without any candidate text.
	GeminiNoContent = "No content in Gemini response"
)

type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiChatModel talks to the generateContent endpoint of the Gemini API.
// Sampling parameters are sent only when the caller sets them.
type GeminiChatModel struct {
	cfg GeminiConfig
}

var _ model.BaseChatModel = (*GeminiChatModel)(nil)

func NewGeminiChatModel(cfg GeminiConfig) (*GeminiChatModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini API key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("gemini model is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &GeminiChatModel{cfg: cfg}, nil
}

// geminiRequest is the generateContent body. The genai types carry the REST
// field names; generationConfig and systemInstruction are left out when unset.
type geminiRequest struct {
	Contents          []*genai.Content         `json:"contents"`
	GenerationConfig  *genai.GenerationConfig `json:"generationConfig,omitempty"`
	SystemInstruction *genai.Content           `json:"systemInstruction,omitempty"`
}

func (m *GeminiChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	modelName := m.cfg.Model
	options := model.GetCommonOptions(&model.Options{Model: &modelName}, opts...)
	implOpts := model.GetImplSpecificOptions(&geminiOptions{}, opts...)

	req := geminiRequest{}
	var system []string
	for _, msg := range input {
		switch msg.Role {
		case schema.System:
			system = append(system, msg.Content)
		case schema.Assistant:
			req.Contents = append(req.Contents, &genai.Content{Role: string(genai.RoleModel), Parts: []*genai.Part{{Text: msg.Content}}})
		default:
			req.Contents = append(req.Contents, &genai.Content{Parts: []*genai.Part{{Text: msg.Content}}})
		}
	}
	if len(req.Contents) == 0 {
		return nil, errors.New("at least one user message is required")
	}
	if joined := strings.Join(system, "\n\n"); joined != "" {
		req.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: joined}}}
	}
	req.GenerationConfig = generationConfig(options, implOpts)

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode gemini request: %w", err)
	}
	endpoint, err := m.endpoint(*options.Model)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	slog.Debug("gemini request", slog.String("model", *options.Model), slog.Bool("generation_config", req.GenerationConfig != nil))

	resp, err := m.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, transportError("gemini", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gemini response: %w", err)
	}

	if gjson.GetBytes(body, "error").Exists() || !isSuccess(resp.StatusCode) {
		return nil, &APIError{Provider: "gemini", StatusCode: resp.StatusCode, Message: errorMessage(body, resp.StatusCode)}
	}

	var parsed genai.GenerateContentResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		slog.Warn("gemini response is not a generateContent body", slog.Any("error", err))
	}

	content, finishReason := firstCandidate(&parsed)
	if content == "" {
		content = GeminiNoContent
	}

	out := schema.AssistantMessage(content, nil)
	out.ResponseMeta = &schema.ResponseMeta{FinishReason: geminiFinishReason(finishReason)}
	if usage := parsed.UsageMetadata; usage != nil {
		out.ResponseMeta.Usage = &schema.TokenUsage{
			PromptTokens:     int(usage.PromptTokenCount),
			CompletionTokens: int(usage.CandidatesTokenCount),
			TotalTokens:      int(usage.TotalTokenCount),
		}
	}
	return out, nil
}

func (m *GeminiChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("gemini: streaming is not supported")
}

func (m *GeminiChatModel) endpoint(modelName string) (string, error) {
	u, err := url.Parse(strings.TrimRight(m.cfg.BaseURL, "/") + "/" + url.PathEscape(modelName) + ":generateContent")
	if err != nil {
		return "", fmt.Errorf("build gemini endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", m.cfg.APIKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// generationConfig returns nil when the caller set no sampling parameter, so
// the field is omitted from the request.
func generationConfig(options *model.Options, implOpts *geminiOptions) *genai.GenerationConfig {
	if options.Temperature == nil && options.MaxTokens == nil && implOpts.ThinkingBudget == nil {
		return nil
	}
	cfg := &genai.GenerationConfig{Temperature: options.Temperature}
	if options.MaxTokens != nil {
		cfg.MaxOutputTokens = int32(*options.MaxTokens)
	}
	if implOpts.ThinkingBudget != nil {
		cfg.ThinkingConfig = &genai.GenerationConfigThinkingConfig{ThinkingBudget: genai.Ptr(int32(*implOpts.ThinkingBudget))}
	}
	return cfg
}

// firstCandidate returns the first part of the first candidate, where the
// answer text lives, and that candidate's finish reason.
func firstCandidate(resp *genai.GenerateContentResponse) (string, genai.FinishReason) {
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", ""
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 || cand.Content.Parts[0] == nil {
		return "", cand.FinishReason
	}
	return cand.Content.Parts[0].Text, cand.FinishReason
}

func geminiFinishReason(reason genai.FinishReason) string {
	if reason == genai.FinishReasonMaxTokens {
		return models.FinishReasonMaxLength
	}
	return string(reason)
}
