package page

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"discussdraft/internal/models"
	"discussdraft/internal/utils"
)

const (
	minInstructionsLength         = 50
	minFallbackInstructionsLength = 10
	minPostLength                 = 10

	entrySelector     = "[data-entry-id]"
	topicBodySelector = `[data-resource-type="discussion_topic.body"]`
)

var (
	topicSelectors = []string{
		"h1.discussion-title",
		`h1[data-testid="discussion-topic-title"]`,
		".discussion-title",
		".discussion_topic h1",
		"h1",
		`[role="heading"][aria-level="1"]`,
	}

	primaryInstructionsSelector = `span.user_content.enhanced[data-resource-type="discussion_topic.body"]`

	legacyInstructionsSelectors = []string{
		".userMessage .user_content.enhanced",
		".discussion-topic .user_content",
		"span.user_content.enhanced",
		".user_content",
		".message.user_content",
		`[data-testid="topic-message"]`,
	}

	fallbackInstructionsSelector = `[data-testid="discussion-topic-container"] ` + topicBodySelector

	courseLinkSelector = `#breadcrumbs a[href*="/courses/"]`

	authorSelector      = `[data-testid="author_name"]`
	authorSpanSelector  = "span.user_content.enhanced, a span.user_content.enhanced"
	replyBodySelector   = `.userMessage .user_content.enhanced[data-resource-type="discussion_topic.reply"]`
	anyContentSelector  = ".user_content.enhanced"
	wordCountPattern    = regexp.MustCompile(`(?i)(\d+)\s*words?`)
	citationPattern     = regexp.MustCompile(`(?i)citation|reference|source`)
	citationRequirement = "Include citations/sources"
)

// Extractor reads discussion data out of a parsed page. Every method degrades
// to an empty result when the markup it looks for is missing.
type Extractor struct {
	doc *goquery.Document
}

func NewExtractor(doc *goquery.Document) *Extractor {
	return &Extractor{doc: doc}
}

// Parse builds an Extractor from raw HTML.
func Parse(r io.Reader) (*Extractor, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return NewExtractor(doc), nil
}

func ParseHTML(html string) (*Extractor, error) {
	return Parse(strings.NewReader(html))
}

// ExtractTopic returns the first non-empty heading matched by the topic
// selectors, tried in order.
func (e *Extractor) ExtractTopic() (string, bool) {
	for _, sel := range topicSelectors {
		if text := firstText(e.doc.Selection, sel); text != "" {
			return text, true
		}
	}
	return "", false
}

// ExtractInstructions returns the topic body. The current markup and the
// legacy selectors must yield at least 50 characters; the container fallback
// accepts 10.
func (e *Extractor) ExtractInstructions() (string, bool) {
	if text := firstText(e.doc.Selection, primaryInstructionsSelector); runeLen(text) >= minInstructionsLength {
		return text, true
	}
	for _, sel := range legacyInstructionsSelectors {
		if text := firstText(e.doc.Selection, sel); runeLen(text) >= minInstructionsLength {
			return text, true
		}
	}
	if text := firstText(e.doc.Selection, fallbackInstructionsSelector); runeLen(text) >= minFallbackInstructionsLength {
		return text, true
	}
	return "", false
}

// ExtractRequirements summarizes word count and citation hints found
// anywhere on the page.
func (e *Extractor) ExtractRequirements() string {
	text := e.doc.Find("body").Text()
	var reqs []string
	if m := wordCountPattern.FindStringSubmatch(text); m != nil {
		reqs = append(reqs, m[1]+" words")
	}
	if citationPattern.MatchString(text) {
		reqs = append(reqs, citationRequirement)
	}
	return strings.Join(reqs, ", ")
}

func (e *Extractor) ExtractCourseName() string {
	if name := utils.CollapseSpace(e.doc.Find(courseLinkSelector).First().Text()); name != "" {
		return name
	}
	return models.DefaultCourseName
}

// ExtractPosts returns the student posts on the page in document order.
func (e *Extractor) ExtractPosts() []models.Post {
	entries := e.entries()
	posts := make([]models.Post, 0, len(entries))
	for _, en := range entries {
		posts = append(posts, en.post)
	}
	return posts
}

type entry struct {
	post models.Post
	sel  *goquery.Selection
}

func (e *Extractor) entries() []entry {
	var out []entry
	e.doc.Find(entrySelector).Each(func(i int, s *goquery.Selection) {
		if s.Find(topicBodySelector).Length() > 0 {
			return
		}
		content := postContent(s)
		if runeLen(content) < minPostLength {
			return
		}
		id, _ := s.Attr("data-entry-id")
		out = append(out, entry{
			post: models.Post{
				ID:      id,
				Author:  postAuthor(s, i),
				Content: content,
				Index:   i,
			},
			sel: s,
		})
	})
	return out
}

func postAuthor(s *goquery.Selection, index int) string {
	authorEl := s.Find(authorSelector).First()
	if authorEl.Length() == 0 {
		return fmt.Sprintf("student %d", index+1)
	}
	if span := authorEl.Find(authorSpanSelector).First(); span.Length() > 0 {
		return utils.CollapseSpace(span.Text())
	}
	return utils.CollapseSpace(authorEl.Text())
}

func postContent(s *goquery.Selection) string {
	if body := s.Find(replyBodySelector).First(); body.Length() > 0 {
		return strings.TrimSpace(body.Text())
	}
	return strings.TrimSpace(s.Find(anyContentSelector).First().Text())
}

func firstText(root *goquery.Selection, selector string) string {
	return strings.TrimSpace(root.Find(selector).First().Text())
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
