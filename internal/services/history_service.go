package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"discussdraft/internal/models"
	"discussdraft/internal/repositories"
)

type HistoryService interface {
	// SaveMainPost records a generated main post.
	SaveMainPost(ctx context.Context, topic, text string) (*models.HistoryRecord, error)
	// SaveReply records a generated reply addressed to replyTo.
	SaveReply(ctx context.Context, topic, text, replyTo string) (*models.HistoryRecord, error)
	List(ctx context.Context) ([]models.HistoryRecord, error)
	Delete(ctx context.Context, index int) error
	Clear(ctx context.Context) error
}

type historyService struct {
	repo  repositories.HistoryRepository
	limit int
	now   func() time.Time
}

func NewHistoryService(repo repositories.HistoryRepository) HistoryService {
	return &historyService{repo: repo, limit: models.HistoryLimit, now: time.Now}
}

func (s *historyService) SaveMainPost(ctx context.Context, topic, text string) (*models.HistoryRecord, error) {
	return s.save(ctx, &models.HistoryRecord{
		MainPost: text,
		Replies:  []models.HistoryReply{},
		Topic:    topic,
	})
}

func (s *historyService) SaveReply(ctx context.Context, topic, text, replyTo string) (*models.HistoryRecord, error) {
	return s.save(ctx, &models.HistoryRecord{
		Replies: []models.HistoryReply{{Content: text, ReplyTo: replyTo}},
		Topic:   topic,
	})
}

func (s *historyService) save(ctx context.Context, rec *models.HistoryRecord) (*models.HistoryRecord, error) {
	rec.UID = uuid.NewString()
	rec.Timestamp = s.now()
	if err := s.repo.Prepend(ctx, rec, s.limit); err != nil {
		return nil, fmt.Errorf("save history: %w", err)
	}
	return rec, nil
}

func (s *historyService) List(ctx context.Context) ([]models.HistoryRecord, error) {
	return s.repo.List(ctx, s.limit)
}

func (s *historyService) Delete(ctx context.Context, index int) error {
	return s.repo.DeleteAt(ctx, index)
}

func (s *historyService) Clear(ctx context.Context) error {
	return s.repo.Clear(ctx)
}
