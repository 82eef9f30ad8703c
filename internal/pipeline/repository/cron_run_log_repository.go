package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/replyline/replyline/internal/pipeline/domain"
)

// CronRunLogRepository appends and lists pipeline run records.
type CronRunLogRepository interface {
	Append(entry *domain.CronRunLog) error

	// Recent returns the newest run records, newest first.
	Recent(limit int) ([]*domain.CronRunLog, error)
}

type gormCronRunLogRepository struct {
	db *gorm.DB
}

func NewGormCronRunLogRepository(db *gorm.DB) CronRunLogRepository {
	return &gormCronRunLogRepository{db: db}
}

func (r *gormCronRunLogRepository) Append(entry *domain.CronRunLog) error {
	entry.CreatedAt = time.Now()
	return r.db.Create(entry).Error
}

func (r *gormCronRunLogRepository) Recent(limit int) ([]*domain.CronRunLog, error) {
	var entries []*domain.CronRunLog
	err := r.db.Order("started_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
