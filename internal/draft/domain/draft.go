package domain

import (
	"errors"
	"time"

	triggerdomain "github.com/replyline/replyline/internal/trigger/domain"
)

// DraftStatus is the state machine governing a response email from creation
// to terminal state.
type DraftStatus string

const (
	// StatusNeedsDrafting is the initial state set by intake on a match.
	StatusNeedsDrafting DraftStatus = "needs_drafting"
	// StatusPendingReview awaits a human approve/reject decision.
	StatusPendingReview DraftStatus = "pending_review"
	// StatusApproved was approved by a human.
	StatusApproved DraftStatus = "approved"
	// StatusAutoApproved cleared the confidence policy without human review.
	StatusAutoApproved DraftStatus = "auto_approved"
	// StatusSent is terminal: the reply went out.
	StatusSent DraftStatus = "sent"
	// StatusFailed is terminal: sending failed MaxSendAttempts times.
	StatusFailed DraftStatus = "failed"
	// StatusRejected is terminal: a human declined the reply.
	StatusRejected DraftStatus = "rejected"
)

// MaxSendAttempts is the fixed retry budget for the send stage.
const MaxSendAttempts = 3

// AutoApproveBuffer is the margin above the configured threshold required
// before a draft skips human review; it absorbs noise right at the boundary.
const AutoApproveBuffer = 5

var (
	ErrNotFound           = errors.New("draft not found")
	ErrInvalidTransition  = errors.New("draft cannot change state from its current status")
	ErrMissingSendFields  = errors.New("draft is missing recipient, subject or body")
)

// Draft tracks one candidate reply end to end: the inbound message that
// triggered it, the classification verdict, the generated text, the approval
// decision and the send outcome.
type Draft struct {
	ID                      string      `json:"id" gorm:"primaryKey"`
	TriggerID               string      `json:"trigger_id" gorm:"index;not null"`
	GmailMessageID          string      `json:"gmail_message_id" gorm:"uniqueIndex;not null"`
	GmailThreadID           string      `json:"gmail_thread_id"`
	TriggerEmailFrom        string      `json:"trigger_email_from"`
	TriggerEmailSubject     string      `json:"trigger_email_subject"`
	TriggerEmailBodySnippet string      `json:"trigger_email_body_snippet" gorm:"type:text"`
	TriggerEmailCC          string      `json:"trigger_email_cc"`
	RecipientEmail          string      `json:"recipient_email"`
	RecipientName           string      `json:"recipient_name"`
	Subject                 string      `json:"subject"`
	Body                    string      `json:"body" gorm:"type:text"`
	OriginalBody            string      `json:"original_body" gorm:"type:text"`
	ConfidenceScore         int         `json:"confidence_score"`
	Status                  DraftStatus `json:"status" gorm:"index;not null;default:needs_drafting"`
	SendAttempts            int         `json:"send_attempts" gorm:"default:0"`
	ScheduledSendAt         *time.Time  `json:"scheduled_send_at"`
	SentAt                  *time.Time  `json:"sent_at"`
	SendError               string      `json:"send_error"`
	ApprovedByEmail         string      `json:"approved_by_email"`
	CreatedAt               time.Time   `json:"created_at"`
	UpdatedAt               time.Time   `json:"updated_at"`

	Trigger *triggerdomain.Trigger `json:"trigger,omitempty" gorm:"foreignKey:TriggerID"`
}

func (Draft) TableName() string {
	return "drafts"
}

// Reviewable reports whether a human approve/reject action is valid from the
// draft's current status. needs_drafting is included so a human can override
// before generation ran.
func (d *Draft) Reviewable() bool {
	return d.Status == StatusPendingReview || d.Status == StatusNeedsDrafting
}

// Sendable reports whether the send stage may pick this draft up.
func (d *Draft) Sendable() bool {
	return (d.Status == StatusApproved || d.Status == StatusAutoApproved) && d.SentAt == nil
}

// AutoApproved applies the confidence policy: a draft skips review only when
// its confidence clears the threshold plus the borderline buffer and a
// recipient was extracted. A missing recipient is unsendable and always goes
// to a human, regardless of confidence.
func AutoApproved(confidence, threshold int, recipientEmail string) bool {
	return confidence >= threshold+AutoApproveBuffer && recipientEmail != ""
}
