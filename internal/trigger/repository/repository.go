package repository

import (
	"github.com/replyline/replyline/internal/trigger/domain"
)

// TriggerRepository defines data access for trigger rules.
type TriggerRepository interface {
	Create(trigger *domain.Trigger) error

	FindByID(id string) (*domain.Trigger, error)

	// FindAll returns all non-deleted triggers ordered by sort_order.
	FindAll() ([]*domain.Trigger, error)

	// FindEnabled returns enabled, non-deleted triggers ordered by
	// sort_order. This ordering is the tie-break for filter-mode matching:
	// the first enabled trigger whose filter hits a message wins.
	FindEnabled() ([]*domain.Trigger, error)

	Update(trigger *domain.Trigger) error

	// Delete soft-deletes a trigger; the pipeline stops seeing it but
	// existing drafts keep their reference.
	Delete(id string) error
}

// StyleExampleRepository defines data access for style examples.
type StyleExampleRepository interface {
	Create(example *domain.StyleExample) error

	// FindRecentByTrigger returns the newest examples for a trigger,
	// newest first, capped at limit.
	FindRecentByTrigger(triggerID string, limit int) ([]*domain.StyleExample, error)
}
