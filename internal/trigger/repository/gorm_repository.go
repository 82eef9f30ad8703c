package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/replyline/replyline/internal/trigger/domain"
)

// gormTriggerRepository implements TriggerRepository using GORM
type gormTriggerRepository struct {
	db *gorm.DB
}

func NewGormTriggerRepository(db *gorm.DB) TriggerRepository {
	return &gormTriggerRepository{db: db}
}

func (r *gormTriggerRepository) Create(trigger *domain.Trigger) error {
	if trigger.ID == "" {
		trigger.ID = uuid.New().String()
	}
	trigger.CreatedAt = time.Now()
	trigger.UpdatedAt = time.Now()
	return r.db.Create(trigger).Error
}

func (r *gormTriggerRepository) FindByID(id string) (*domain.Trigger, error) {
	var trigger domain.Trigger
	err := r.db.Where("id = ?", id).First(&trigger).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &trigger, nil
}

func (r *gormTriggerRepository) FindAll() ([]*domain.Trigger, error) {
	var triggers []*domain.Trigger
	err := r.db.Order("sort_order ASC, created_at ASC").Find(&triggers).Error
	return triggers, err
}

func (r *gormTriggerRepository) FindEnabled() ([]*domain.Trigger, error) {
	var triggers []*domain.Trigger
	err := r.db.Where("enabled = ?", true).
		Order("sort_order ASC, created_at ASC").
		Find(&triggers).Error
	return triggers, err
}

func (r *gormTriggerRepository) Update(trigger *domain.Trigger) error {
	trigger.UpdatedAt = time.Now()
	return r.db.Save(trigger).Error
}

func (r *gormTriggerRepository) Delete(id string) error {
	return r.db.Delete(&domain.Trigger{}, "id = ?", id).Error
}

// gormStyleExampleRepository implements StyleExampleRepository using GORM
type gormStyleExampleRepository struct {
	db *gorm.DB
}

func NewGormStyleExampleRepository(db *gorm.DB) StyleExampleRepository {
	return &gormStyleExampleRepository{db: db}
}

func (r *gormStyleExampleRepository) Create(example *domain.StyleExample) error {
	if example.ID == "" {
		example.ID = uuid.New().String()
	}
	example.CreatedAt = time.Now()
	return r.db.Create(example).Error
}

func (r *gormStyleExampleRepository) FindRecentByTrigger(triggerID string, limit int) ([]*domain.StyleExample, error) {
	var examples []*domain.StyleExample
	err := r.db.Where("trigger_id = ?", triggerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&examples).Error
	return examples, err
}
