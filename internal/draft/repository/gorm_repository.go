package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/replyline/replyline/internal/draft/domain"
)

// gormDraftRepository implements DraftRepository using GORM
type gormDraftRepository struct {
	db *gorm.DB
}

func NewGormDraftRepository(db *gorm.DB) DraftRepository {
	return &gormDraftRepository{db: db}
}

func (r *gormDraftRepository) Create(draft *domain.Draft) error {
	if draft.ID == "" {
		draft.ID = uuid.New().String()
	}
	draft.CreatedAt = time.Now()
	draft.UpdatedAt = time.Now()
	return r.db.Create(draft).Error
}

func (r *gormDraftRepository) FindByID(id string) (*domain.Draft, error) {
	var draft domain.Draft
	err := r.db.Preload("Trigger").Where("id = ?", id).First(&draft).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &draft, nil
}

func (r *gormDraftRepository) FindByStatus(status domain.DraftStatus, limit int) ([]*domain.Draft, error) {
	var drafts []*domain.Draft
	err := r.db.Preload("Trigger").
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&drafts).Error
	return drafts, err
}

func (r *gormDraftRepository) FindDue(now time.Time, limit int) ([]*domain.Draft, error) {
	var drafts []*domain.Draft
	err := r.db.Preload("Trigger").
		Where("status IN ?", []domain.DraftStatus{domain.StatusApproved, domain.StatusAutoApproved}).
		Where("scheduled_send_at IS NOT NULL AND scheduled_send_at <= ?", now).
		Where("sent_at IS NULL").
		Order("scheduled_send_at ASC").
		Limit(limit).
		Find(&drafts).Error
	return drafts, err
}

func (r *gormDraftRepository) ScheduledSendTimes() ([]time.Time, error) {
	var drafts []*domain.Draft
	err := r.db.Select("scheduled_send_at").
		Where("status IN ?", []domain.DraftStatus{
			domain.StatusApproved,
			domain.StatusAutoApproved,
			domain.StatusPendingReview,
		}).
		Where("scheduled_send_at IS NOT NULL").
		Find(&drafts).Error
	if err != nil {
		return nil, err
	}

	times := make([]time.Time, 0, len(drafts))
	for _, d := range drafts {
		if d.ScheduledSendAt != nil {
			times = append(times, *d.ScheduledSendAt)
		}
	}
	return times, nil
}

func (r *gormDraftRepository) List(status domain.DraftStatus, limit, offset int) ([]*domain.Draft, int64, error) {
	var drafts []*domain.Draft
	var total int64

	query := r.db.Model(&domain.Draft{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Trigger").
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&drafts).Error
	return drafts, total, err
}

func (r *gormDraftRepository) Update(draft *domain.Draft) error {
	draft.UpdatedAt = time.Now()
	return r.db.Save(draft).Error
}

// gormProcessedEmailRepository implements ProcessedEmailRepository using GORM
type gormProcessedEmailRepository struct {
	db *gorm.DB
}

func NewGormProcessedEmailRepository(db *gorm.DB) ProcessedEmailRepository {
	return &gormProcessedEmailRepository{db: db}
}

func (r *gormProcessedEmailRepository) HasProcessed(messageID string) (bool, error) {
	var count int64
	err := r.db.Model(&domain.ProcessedEmail{}).
		Where("gmail_message_id = ?", messageID).
		Count(&count).Error
	return count > 0, err
}

func (r *gormProcessedEmailRepository) MarkProcessed(messageID string, matched bool) (bool, error) {
	row := &domain.ProcessedEmail{
		GmailMessageID: messageID,
		Matched:        matched,
		ProcessedAt:    time.Now(),
	}
	// The unique index on gmail_message_id makes this insert the race
	// arbiter: the losing writer gets zero rows affected and must not
	// create a draft.
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "gmail_message_id"}},
		DoNothing: true,
	}).Create(row)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
