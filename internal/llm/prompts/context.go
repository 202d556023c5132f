package prompts

import (
	"fmt"
	"strings"

	"discussdraft/internal/models"
	"discussdraft/internal/utils"
)

const summaryExcerptLength = 200

// SummarizePosts lists the existing top-level posts so a new main post does
// not repeat them. It returns "" when there are none.
func SummarizePosts(posts []models.Post) string {
	if len(posts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(posts))
	for i, p := range posts {
		lines = append(lines, fmt.Sprintf("%d. %s: %s...", i+1, p.Author, utils.Truncate(p.Content, summaryExcerptLength)))
	}
	return "\n\nExisting posts in this discussion:\n" + strings.Join(lines, "\n")
}

// ReplyContext is the post being answered followed by the replies already
// nested under it, in page order.
func ReplyContext(pc models.PostContext) string {
	if len(pc.NestedReplies) == 0 {
		return pc.Post.Content
	}
	lines := make([]string, 0, len(pc.NestedReplies))
	for _, r := range pc.NestedReplies {
		lines = append(lines, fmt.Sprintf("- %s: %s", r.Author, r.Content))
	}
	return pc.Post.Content + "\n\nExisting replies to this post:\n" + strings.Join(lines, "\n")
}
