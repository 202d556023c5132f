package models

import (
	"log/slog"
	"time"
)

const (
	DefaultClaudeModel    = "claude-sonnet-4-5-20250929"
	DefaultGeminiModel    = "gemini-2.5-pro"
	DefaultTemperature    = 0.7
	DefaultMaxTokens      = 1000
	DefaultReplyCount     = 3
	DefaultCourseName     = "your course"
	DefaultReplyAuthor    = "your classmate"
	MinUsableAPIKeyLength = 11

	claudeKeyPrefix = "sk-ant-"
	geminiKeyPrefix = "AIza"
)

// Settings is a single-row table (ID=1). API keys are never written to the
// database; they live in the keyring and are attached by the settings service.
type Settings struct {
	ID               uint      `gorm:"primaryKey" json:"-"`
	Provider         Provider  `gorm:"size:20;not null" json:"aiProvider"`
	ClaudeModel      string    `gorm:"size:120;not null" json:"claudeModel"`
	GeminiModel      string    `gorm:"size:120;not null" json:"geminiModel"`
	Temperature      float64   `gorm:"not null" json:"temperature"`
	MaxTokens        int       `gorm:"not null" json:"maxTokens"`
	SideInstructions string    `gorm:"type:text" json:"sideInstructions"`
	ReplyCount       int       `gorm:"not null" json:"replyCount"`
	UpdatedAt        time.Time `json:"updatedAt"`

	ClaudeAPIKey string `gorm:"-" json:"claudeApiKey,omitempty"`
	GeminiAPIKey string `gorm:"-" json:"geminiApiKey,omitempty"`
}

func DefaultSettings() *Settings {
	return &Settings{
		ID:          1,
		Provider:    ProviderClaude,
		ClaudeModel: DefaultClaudeModel,
		GeminiModel: DefaultGeminiModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		ReplyCount:  DefaultReplyCount,
	}
}

func (s *Settings) APIKeyFor(p Provider) string {
	if p == ProviderGemini {
		return s.GeminiAPIKey
	}
	return s.ClaudeAPIKey
}

func (s *Settings) ModelFor(p Provider) string {
	if p == ProviderGemini {
		return s.GeminiModel
	}
	return s.ClaudeModel
}

// HasUsableKey reports whether the selected provider has a key long enough to
// be worth sending.
func (s *Settings) HasUsableKey() bool {
	return len(s.APIKeyFor(s.Provider)) >= MinUsableAPIKeyLength
}

// KeyPrefix returns the prefix every key for p must start with.
func KeyPrefix(p Provider) string {
	if p == ProviderGemini {
		return geminiKeyPrefix
	}
	return claudeKeyPrefix
}

// Masked returns a copy safe to hand to UI surfaces.
func (s Settings) Masked() Settings {
	s.ClaudeAPIKey = maskKey(s.ClaudeAPIKey)
	s.GeminiAPIKey = maskKey(s.GeminiAPIKey)
	return s
}

func (s Settings) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("provider", string(s.Provider)),
		slog.String("claude_model", s.ClaudeModel),
		slog.String("gemini_model", s.GeminiModel),
		slog.Float64("temperature", s.Temperature),
		slog.Int("max_tokens", s.MaxTokens),
		slog.String("claude_api_key", "<hidden>"),
		slog.String("gemini_api_key", "<hidden>"),
	)
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
