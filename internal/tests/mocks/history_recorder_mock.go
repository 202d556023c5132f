package mocks

import (
	"context"
	"sync"

	"discussdraft/internal/models"
)

// HistoryRecorderMock keeps saved records in memory, newest first.
type HistoryRecorderMock struct {
	Err error

	mu      sync.Mutex
	records []models.HistoryRecord
}

func (m *HistoryRecorderMock) SaveMainPost(ctx context.Context, topic, text string) (*models.HistoryRecord, error) {
	return m.save(models.HistoryRecord{MainPost: text, Replies: []models.HistoryReply{}, Topic: topic})
}

func (m *HistoryRecorderMock) SaveReply(ctx context.Context, topic, text, replyTo string) (*models.HistoryRecord, error) {
	return m.save(models.HistoryRecord{Replies: []models.HistoryReply{{Content: text, ReplyTo: replyTo}}, Topic: topic})
}

func (m *HistoryRecorderMock) save(rec models.HistoryRecord) (*models.HistoryRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append([]models.HistoryRecord{rec}, m.records...)
	return &rec, nil
}

func (m *HistoryRecorderMock) Records() []models.HistoryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.HistoryRecord(nil), m.records...)
}
