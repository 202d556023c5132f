package models

// Post is a single discussion entry scraped from the page. ID is the value of
// the entry's data-entry-id attribute and is only meaningful for the page it
// was read from.
type Post struct {
	ID      string `json:"id"`
	Author  string `json:"author"`
	Content string `json:"content"`
	Index   int    `json:"index"`
}

// DiscussionContext is a snapshot of the discussion page. Topic and
// Instructions are empty when the page did not expose them.
type DiscussionContext struct {
	Topic         string `json:"topic,omitempty"`
	Instructions  string `json:"teacherInstructions,omitempty"`
	Requirements  string `json:"requirements"`
	CourseName    string `json:"courseName"`
	Posts         []Post `json:"posts"`
	TopLevelPosts []Post `json:"topLevelPosts"`
}

// PostContext is a post together with the replies already nested under it.
type PostContext struct {
	Post          Post   `json:"post"`
	NestedReplies []Post `json:"nestedReplies"`
}
