package models

import (
	"fmt"
	"time"
	"unicode/utf8"
)

const HistoryLimit = 20

type HistoryReply struct {
	Content string `json:"content"`
	ReplyTo string `json:"replyTo"`
}

// HistoryRecord is one saved generation. Records are ordered by ID, newest
// first.
type HistoryRecord struct {
	ID        uint           `gorm:"primaryKey" json:"-"`
	UID       string         `gorm:"size:36;uniqueIndex;not null" json:"id"`
	MainPost  string         `gorm:"type:text" json:"mainPost"`
	Replies   []HistoryReply `gorm:"serializer:json;type:text" json:"replies"`
	Topic     string         `gorm:"type:text" json:"topic"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
}

func (h HistoryRecord) IsMainPost() bool {
	return h.MainPost != ""
}

// Content is the text a user copies out of the record.
func (h HistoryRecord) Content() string {
	if h.IsMainPost() {
		return h.MainPost
	}
	if len(h.Replies) > 0 {
		return h.Replies[0].Content
	}
	return ""
}

func (h HistoryRecord) Label() string {
	if h.IsMainPost() {
		return "main post"
	}
	if len(h.Replies) > 0 && h.Replies[0].ReplyTo != "" {
		return "reply to " + h.Replies[0].ReplyTo
	}
	return "reply"
}

// TopicPreview truncates the topic to 40 characters.
func (h HistoryRecord) TopicPreview() string {
	topic := h.Topic
	if topic == "" {
		topic = "untitled"
	}
	if utf8.RuneCountInString(topic) <= 40 {
		return topic
	}
	return string([]rune(topic)[:40]) + "..."
}

// Age renders the record timestamp relative to now.
func (h HistoryRecord) Age(now time.Time) string {
	diff := now.Sub(h.Timestamp)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff/time.Hour))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff/(24*time.Hour)))
	}
	return h.Timestamp.Format("1/2/2006")
}
