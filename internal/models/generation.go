package models

import (
	"errors"
	"fmt"
	"strings"
)

type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderGemini Provider = "gemini"
)

func (p Provider) Valid() bool {
	return p == ProviderClaude || p == ProviderGemini
}

// DisplayName is the lower-case label used in user-facing notices.
func (p Provider) DisplayName() string {
	if p == ProviderGemini {
		return "gemini"
	}
	return "claude"
}

type GenerationKind string

const (
	KindMainPost GenerationKind = "main-post"
	KindReply    GenerationKind = "reply"
)

func (k GenerationKind) Valid() bool {
	return k == KindMainPost || k == KindReply
}

const (
	MinTemperature = 0.0
	MaxTemperature = 2.0

	// FinishReasonMaxLength is the normalized finish reason reported when a
	// backend stopped because it ran out of output tokens.
	FinishReasonMaxLength = "max length reached"
)

// GenerationRequest carries everything a provider needs to draft one post or
// reply. Temperature, MaxTokens and ThinkingBudget are optional; nil means the
// backend default.
type GenerationRequest struct {
	Kind     GenerationKind `json:"kind"`
	Provider Provider       `json:"aiProvider"`
	APIKey   string         `json:"apiKey,omitempty"`
	Model    string         `json:"model"`

	Topic        string `json:"topic"`
	Instructions string `json:"teacherInstructions,omitempty"`
	Requirements string `json:"requirements,omitempty"`
	CourseName   string `json:"courseName,omitempty"`
	OriginalPost string `json:"originalPost,omitempty"`
	AuthorName   string `json:"authorName,omitempty"`

	Temperature      *float64 `json:"temperature,omitempty"`
	MaxTokens        *int     `json:"maxTokens,omitempty"`
	ThinkingBudget   *int     `json:"thinkingBudget,omitempty"`
	SideInstructions string   `json:"sideInstructions,omitempty"`
}

func (r GenerationRequest) Validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("unsupported generation kind %q", r.Kind)
	}
	if !r.Provider.Valid() {
		return fmt.Errorf("unsupported provider %q", r.Provider)
	}
	if strings.TrimSpace(r.APIKey) == "" {
		return fmt.Errorf("%s API key is required", r.Provider.DisplayName())
	}
	if strings.TrimSpace(r.Model) == "" {
		return errors.New("model is required")
	}
	if r.Temperature != nil && (*r.Temperature < MinTemperature || *r.Temperature > MaxTemperature) {
		return fmt.Errorf("temperature must be between %.0f and %.0f", MinTemperature, MaxTemperature)
	}
	if r.MaxTokens != nil && *r.MaxTokens <= 0 {
		return errors.New("maxTokens must be a positive integer")
	}
	if r.ThinkingBudget != nil && *r.ThinkingBudget < 0 {
		return errors.New("thinkingBudget must not be negative")
	}
	return nil
}

// WithMaxTokens returns a copy of r with only the max token limit changed.
func (r GenerationRequest) WithMaxTokens(n int) GenerationRequest {
	r.MaxTokens = &n
	return r
}

// MaxTokensOr returns the requested token limit or fallback when unset.
func (r GenerationRequest) MaxTokensOr(fallback int) int {
	if r.MaxTokens == nil {
		return fallback
	}
	return *r.MaxTokens
}

type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// GenerationOutcome is the single result of a generation call: either
// Success with Text, or a failure carrying Error.
type GenerationOutcome struct {
	Success      bool        `json:"success"`
	Text         string      `json:"text,omitempty"`
	FinishReason string      `json:"finishReason,omitempty"`
	Usage        *TokenUsage `json:"usage,omitempty"`
	Error        string      `json:"error,omitempty"`
}

func Succeeded(text, finishReason string, usage *TokenUsage) GenerationOutcome {
	return GenerationOutcome{Success: true, Text: text, FinishReason: finishReason, Usage: usage}
}

func Failed(message string) GenerationOutcome {
	return GenerationOutcome{Success: false, Error: message}
}

// Truncated reports whether the backend stopped at its output limit.
func (o GenerationOutcome) Truncated() bool {
	return o.Success && o.FinishReason == FinishReasonMaxLength
}

// Title is the capitalized provider name.
func (p Provider) Title() string {
	if p == ProviderGemini {
		return "Gemini"
	}
	return "Claude"
}
