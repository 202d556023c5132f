package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"discussdraft/internal/models"
)

var ErrHistoryIndexOutOfRange = errors.New("history index out of range")

type HistoryRepository interface {
	// Prepend stores rec as the newest record and drops everything past limit.
	Prepend(ctx context.Context, rec *models.HistoryRecord, limit int) error
	List(ctx context.Context, limit int) ([]models.HistoryRecord, error)
	DeleteAt(ctx context.Context, index int) error
	Clear(ctx context.Context) error
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Prepend(ctx context.Context, rec *models.HistoryRecord, limit int) error {
	if rec == nil {
		return fmt.Errorf("history record is required")
	}
	if limit <= 0 {
		return fmt.Errorf("history limit must be positive")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		var keep []uint
		if err := tx.Model(&models.HistoryRecord{}).Order("id desc").Limit(limit).Pluck("id", &keep).Error; err != nil {
			return err
		}
		return tx.Where("id NOT IN ?", keep).Delete(&models.HistoryRecord{}).Error
	})
}

func (r *historyRepository) List(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	var records []models.HistoryRecord
	q := r.db.WithContext(ctx).Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *historyRepository) DeleteAt(ctx context.Context, index int) error {
	if index < 0 {
		return ErrHistoryIndexOutOfRange
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.HistoryRecord
		if err := tx.Order("id desc").Offset(index).Limit(1).Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrHistoryIndexOutOfRange
			}
			return err
		}
		return tx.Delete(&models.HistoryRecord{}, rec.ID).Error
	})
}

func (r *historyRepository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&models.HistoryRecord{}).Error
}
