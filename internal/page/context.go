package page

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"discussdraft/internal/models"
)

const discussionPathMarker = "/discussion_topics/"

// IsDiscussionPage reports whether url points at a discussion topic.
func IsDiscussionPage(url string) bool {
	return strings.Contains(url, discussionPathMarker)
}

// TopLevelPosts returns the posts that are not nested under another entry.
func (e *Extractor) TopLevelPosts() []models.Post {
	var out []models.Post
	for _, en := range e.entries() {
		if isTopLevel(en.sel) {
			out = append(out, en.post)
		}
	}
	return out
}

// PostContext returns the post with the given entry id and the posts nested
// beneath it in document order. ok is false when the post is gone or was
// filtered out.
func (e *Extractor) PostContext(entryID string) (models.PostContext, bool) {
	entries := e.entries()
	var target *entry
	for i := range entries {
		if entries[i].post.ID == entryID {
			target = &entries[i]
			break
		}
	}
	if target == nil {
		return models.PostContext{}, false
	}

	inside := make(map[*html.Node]bool)
	for _, n := range target.sel.Find(entrySelector).Nodes {
		inside[n] = true
	}
	pc := models.PostContext{Post: target.post, NestedReplies: []models.Post{}}
	for _, en := range entries {
		if inside[en.sel.Nodes[0]] {
			pc.NestedReplies = append(pc.NestedReplies, en.post)
		}
	}
	return pc, true
}

// MainContext collects everything needed to draft a main post.
func (e *Extractor) MainContext() models.DiscussionContext {
	topic, _ := e.ExtractTopic()
	instructions, _ := e.ExtractInstructions()
	posts := e.ExtractPosts()
	top := e.TopLevelPosts()
	if top == nil {
		top = []models.Post{}
	}
	return models.DiscussionContext{
		Topic:         topic,
		Instructions:  instructions,
		Requirements:  e.ExtractRequirements(),
		CourseName:    e.ExtractCourseName(),
		Posts:         posts,
		TopLevelPosts: top,
	}
}

func isTopLevel(s *goquery.Selection) bool {
	return s.ParentsFiltered(entrySelector).Length() == 0
}
