package prompts

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"discussdraft/internal/models"
)

//go:embed templates/*.txt
var embeddedTemplates embed.FS

const dateLayout = "January 2, 2006"

// Builder renders the system and user turns for a generation request.
type Builder struct {
	now       func() time.Time
	templates map[string]string
}

func NewBuilder() (*Builder, error) {
	templates := make(map[string]string)
	entries, err := embeddedTemplates.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("read prompt templates: %w", err)
	}
	for _, entry := range entries {
		data, err := embeddedTemplates.ReadFile("templates/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read prompt template %s: %w", entry.Name(), err)
		}
		templates[strings.TrimSuffix(entry.Name(), ".txt")] = string(data)
	}
	return &Builder{now: time.Now, templates: templates}, nil
}

// WithClock replaces the clock used for the date line of Gemini prompts.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build returns the messages to send for req. The system message is omitted
// when it would be empty.
func (b *Builder) Build(ctx context.Context, req models.GenerationRequest) ([]*schema.Message, error) {
	systemName, userName, err := templateNames(req)
	if err != nil {
		return nil, err
	}

	vars := b.variables(req)
	tpl := prompt.FromMessages(schema.GoTemplate,
		schema.SystemMessage(b.templates[systemName]),
		schema.UserMessage(b.templates[userName]),
	)
	rendered, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("render %s prompt: %w", req.Kind, err)
	}

	messages := make([]*schema.Message, 0, len(rendered))
	for _, msg := range rendered {
		if msg.Role == schema.System && strings.TrimSpace(msg.Content) == "" {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func templateNames(req models.GenerationRequest) (string, string, error) {
	switch req.Kind {
	case models.KindMainPost:
		if req.Provider == models.ProviderGemini {
			return "side_instructions", "main_post_user", nil
		}
		return "main_post_system", "main_post_user", nil
	case models.KindReply:
		if req.Provider == models.ProviderGemini {
			return "side_instructions", "reply_user", nil
		}
		return "reply_system", "reply_user", nil
	}
	return "", "", fmt.Errorf("unsupported generation kind %q", req.Kind)
}

func (b *Builder) variables(req models.GenerationRequest) map[string]any {
	gemini := req.Provider == models.ProviderGemini

	date := ""
	if gemini {
		date = b.now().Format(dateLayout)
	}
	course := req.CourseName
	if strings.TrimSpace(course) == "" {
		course = models.DefaultCourseName
	}
	author := req.AuthorName
	if strings.TrimSpace(author) == "" {
		author = models.DefaultReplyAuthor
	}

	return map[string]any{
		"Date":               date,
		"Topic":              req.Topic,
		"Instructions":       req.Instructions,
		"Requirements":       req.Requirements,
		"CourseName":         course,
		"OriginalPost":       req.OriginalPost,
		"AuthorName":         author,
		"SideInstructions":   req.SideInstructions,
		"FollowInstructions": !gemini,
	}
}
