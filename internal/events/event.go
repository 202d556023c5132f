package events

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventInfo    EventType = "info"
	EventWarn    EventType = "warn"
	EventSuccess EventType = "success"
	EventError   EventType = "error"
)

const (
	DraftStarted   = "events:draft:started"
	DraftCompleted = "events:draft:completed"
	DraftDiscarded = "events:draft:discarded"
	DraftClosed    = "events:draft:closed"
	PageRescanned  = "events:page:rescanned"
	SettingsSaved  = "events:settings:saved"
)

// DraftEvent describes a state change in the drafting workflow.
type DraftEvent struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	Message    string            `json:"message"`
	Timestamp  time.Time         `json:"timestamp"`
	SessionKey string            `json:"sessionKey,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type contextKey string

const sessionContextKey contextKey = "discussdraft/events/session"

// WithSession returns a derived context annotated with the given session key
// so emitters can scope payloads to one drafting cycle.
func WithSession(ctx context.Context, sessionKey string) context.Context {
	if strings.TrimSpace(sessionKey) == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionContextKey, sessionKey)
}

func SessionFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(sessionContextKey).(string); ok {
		return v
	}
	return ""
}

func CreateDraftEvent(eventType EventType, message string) DraftEvent {
	return DraftEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func NewInfo(message string) DraftEvent {
	return CreateDraftEvent(EventInfo, message)
}

func NewWarn(message string) DraftEvent {
	return CreateDraftEvent(EventWarn, message)
}

func NewError(message string) DraftEvent {
	return CreateDraftEvent(EventError, message)
}

func NewSuccess(message string) DraftEvent {
	return CreateDraftEvent(EventSuccess, message)
}

// With returns a copy of e with key set in its metadata.
func (e DraftEvent) With(key, value string) DraftEvent {
	md := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		md[k] = v
	}
	md[key] = value
	e.Metadata = md
	return e
}
