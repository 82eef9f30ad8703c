package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/replyline/replyline/internal/settings/domain"
)

// SettingsRepository reads and updates the singleton settings row.
type SettingsRepository interface {
	// Get returns the settings row, or nil when not configured yet.
	Get() (*domain.Settings, error)

	// Save upserts the singleton row (id is forced to 1).
	Save(settings *domain.Settings) error
}

type gormSettingsRepository struct {
	db *gorm.DB
}

func NewGormSettingsRepository(db *gorm.DB) SettingsRepository {
	return &gormSettingsRepository{db: db}
}

func (r *gormSettingsRepository) Get() (*domain.Settings, error) {
	var settings domain.Settings
	err := r.db.Where("id = ?", 1).First(&settings).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

func (r *gormSettingsRepository) Save(settings *domain.Settings) error {
	settings.ID = 1
	settings.UpdatedAt = time.Now()
	return r.db.Save(settings).Error
}
