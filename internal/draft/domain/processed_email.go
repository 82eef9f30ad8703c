package domain

import "time"

// ProcessedEmail is the dedup ledger: one row per inbound message id ever
// evaluated. The unique index on GmailMessageID is the authoritative guard
// against double-processing across overlapping pipeline runs.
type ProcessedEmail struct {
	ID             uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	GmailMessageID string    `json:"gmail_message_id" gorm:"uniqueIndex;not null"`
	Matched        bool      `json:"matched"`
	ProcessedAt    time.Time `json:"processed_at"`
}

func (ProcessedEmail) TableName() string {
	return "processed_emails"
}
