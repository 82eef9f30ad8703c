package repository

import (
	"time"

	"github.com/replyline/replyline/internal/draft/domain"
)

// DraftRepository defines data access for drafts.
type DraftRepository interface {
	Create(draft *domain.Draft) error

	FindByID(id string) (*domain.Draft, error)

	// FindByStatus returns drafts in the given status, oldest first,
	// capped at limit. Used by the generate stage.
	FindByStatus(status domain.DraftStatus, limit int) ([]*domain.Draft, error)

	// FindDue returns approved/auto_approved drafts whose scheduled send
	// time is at or before now and that have not been sent, capped at limit.
	FindDue(now time.Time, limit int) ([]*domain.Draft, error)

	// ScheduledSendTimes returns the send times of every draft currently
	// holding a schedule slot (approved, auto_approved or pending_review).
	// The scheduler spaces new slots against this set.
	ScheduledSendTimes() ([]time.Time, error)

	// List returns drafts for the dashboard, newest first. An empty status
	// means all statuses.
	List(status domain.DraftStatus, limit, offset int) ([]*domain.Draft, int64, error)

	Update(draft *domain.Draft) error
}

// ProcessedEmailRepository is the dedup ledger.
type ProcessedEmailRepository interface {
	// HasProcessed reports whether the message id was already evaluated.
	// A cheap pre-check; MarkProcessed is the authoritative guard.
	HasProcessed(messageID string) (bool, error)

	// MarkProcessed inserts the ledger row. Returns false when another
	// writer inserted the same message id first; the caller must then skip
	// draft creation.
	MarkProcessed(messageID string, matched bool) (bool, error)
}
