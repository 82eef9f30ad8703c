package domain

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// EmailType categorizes the kind of inbound email a trigger reacts to.
type EmailType string

const (
	EmailTypeCongratulatory EmailType = "congratulatory"
	EmailTypePromotional    EmailType = "promotional"
	EmailTypeWelcome        EmailType = "welcome"
)

// MatchMode selects the strategy used to detect a trigger match.
type MatchMode string

const (
	// MatchModeLLM classifies emails with the language-model capability.
	MatchModeLLM MatchMode = "llm"
	// MatchModeGmailFilter matches emails with a Gmail search query.
	MatchModeGmailFilter MatchMode = "gmail_filter"
)

var (
	ErrFilterQueryRequired = errors.New("gmail_filter triggers require a non-empty filter query")
	ErrDescriptionRequired = errors.New("llm triggers require a non-empty description")
	ErrInvalidReplyWindow  = errors.New("reply window must satisfy 0 < min < max")
	ErrInvalidEmailType    = errors.New("unknown email type")
	ErrInvalidMatchMode    = errors.New("unknown match mode")
)

// Trigger is an administrator-defined rule describing which inbound emails
// deserve an automated reply, and how that reply should be produced. The
// pipeline treats triggers as read-only.
type Trigger struct {
	ID                  string         `json:"id" gorm:"primaryKey"`
	Name                string         `json:"name" gorm:"not null"`
	Description         string         `json:"description"`
	EmailType           EmailType      `json:"email_type" gorm:"not null"`
	ReplyInThread       bool           `json:"reply_in_thread" gorm:"default:false"`
	Enabled             bool           `json:"enabled" gorm:"default:true;index"`
	MatchMode           MatchMode      `json:"match_mode" gorm:"not null;default:llm"`
	GmailFilterQuery    string         `json:"gmail_filter_query"`
	ReplyWindowMinHours float64        `json:"reply_window_min_hours" gorm:"default:4"`
	ReplyWindowMaxHours float64        `json:"reply_window_max_hours" gorm:"default:6"`
	SystemPrompt        string         `json:"system_prompt" gorm:"type:text"`
	SortOrder           int            `json:"sort_order" gorm:"default:0;index"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (Trigger) TableName() string {
	return "triggers"
}

// Validate enforces the per-mode field requirements.
func (t *Trigger) Validate() error {
	switch t.EmailType {
	case EmailTypeCongratulatory, EmailTypePromotional, EmailTypeWelcome:
	default:
		return ErrInvalidEmailType
	}

	switch t.MatchMode {
	case MatchModeGmailFilter:
		if strings.TrimSpace(t.GmailFilterQuery) == "" {
			return ErrFilterQueryRequired
		}
	case MatchModeLLM:
		if strings.TrimSpace(t.Description) == "" {
			return ErrDescriptionRequired
		}
	default:
		return ErrInvalidMatchMode
	}

	if t.ReplyWindowMinHours <= 0 || t.ReplyWindowMinHours >= t.ReplyWindowMaxHours {
		return ErrInvalidReplyWindow
	}
	return nil
}

// ReplyWindow returns the configured window, falling back to the 4-6h default.
func (t *Trigger) ReplyWindow() (minHours, maxHours float64) {
	if t.ReplyWindowMinHours > 0 && t.ReplyWindowMaxHours > t.ReplyWindowMinHours {
		return t.ReplyWindowMinHours, t.ReplyWindowMaxHours
	}
	return 4, 6
}
