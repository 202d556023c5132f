package orchestrator

import (
	"errors"
	"time"

	"discussdraft/internal/models"
)

type State int

const (
	Idle State = iota
	Loading
	Displaying
	ErrorShown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Displaying:
		return "displaying"
	case ErrorShown:
		return "error"
	}
	return "unknown"
}

const (
	TokenIncrement      = 500
	MaxTokenCeiling     = 10000
	NotificationTimeout = 5 * time.Second
)

// Messages shown to the user.
const (
	MsgTopicNotFound    = "could not find discussion topic on this page."
	MsgPostNotFound     = "could not find the post to reply to."
	MsgAlreadyAtMaximum = "Already at maximum allowed tokens."
	MsgRuntimeLost      = "Draft service unavailable. Please refresh the page or restart the draft service."
	TruncationWarning   = "Note: the model stopped early due to max token limit. The result may be truncated. Try regenerating with more tokens."

	loadingMessage      = "analyzing discussion and generating content..."
	regeneratingMessage = "regenerating content..."
	moreTokensMessage   = "regenerating with more tokens..."
)

var (
	ErrCycleOpen           = errors.New("a draft is already open")
	ErrNothingToRegenerate = errors.New("no previous generation to replay")
	ErrTopicNotFound       = errors.New("discussion topic not found")
	ErrPostNotFound        = errors.New("post not found")
	ErrAlreadyAtMaximum    = errors.New("already at maximum allowed tokens")
	ErrMissingAPIKey       = errors.New("api key required")
	ErrRuntimeLost         = errors.New("draft runtime lost")
	ErrGenerationFailed    = errors.New("generation failed")
)

// Result is a successful draft ready to display.
type Result struct {
	Kind         models.GenerationKind `json:"kind"`
	Text         string                `json:"text"`
	Topic        string                `json:"topic"`
	ReplyTo      string                `json:"replyTo,omitempty"`
	EntryID      string                `json:"entryId,omitempty"`
	FinishReason string                `json:"finishReason,omitempty"`
	Usage        *models.TokenUsage    `json:"usage,omitempty"`
	MaxTokens    int                   `json:"maxTokens"`
	Warning      string                `json:"warning,omitempty"`
}

// Notification is a transient message shown outside the draft panel.
type Notification struct {
	Title   string        `json:"title"`
	Message string        `json:"message"`
	Action  string        `json:"action,omitempty"`
	Timeout time.Duration `json:"timeout"`
}

// Presenter renders the orchestrator's state. Calls are made while the
// orchestrator holds its lock, so implementations must not call back into it.
type Presenter interface {
	ShowLoading(message string)
	ShowResult(Result)
	ShowError(message string)
	ShowNotification(Notification)
	Close()
}
