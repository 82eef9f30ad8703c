package domain

import "time"

// StyleSource records how a style example entered the system.
type StyleSource string

const (
	// StyleSourceSeed is an example seeded by an administrator.
	StyleSourceSeed StyleSource = "seed"
	// StyleSourceApproved is a generated body approved unchanged.
	StyleSourceApproved StyleSource = "approved"
	// StyleSourceEdited is archived when a human edits a draft before approval.
	StyleSourceEdited StyleSource = "edited"
)

// StyleExample is a past email body associated with a trigger, used to bias
// the drafting capability toward the CEO's voice. Never deleted by the pipeline.
type StyleExample struct {
	ID        string      `json:"id" gorm:"primaryKey"`
	TriggerID string      `json:"trigger_id" gorm:"index;not null"`
	Subject   string      `json:"subject"`
	Body      string      `json:"body" gorm:"type:text;not null"`
	Source    StyleSource `json:"source" gorm:"not null;default:seed"`
	CreatedAt time.Time   `json:"created_at"`
}

func (StyleExample) TableName() string {
	return "style_examples"
}
