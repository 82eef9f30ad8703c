package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrNotConfigured is returned when the singleton settings row has never
// been written. The pipeline cannot run without it.
var ErrNotConfigured = errors.New("settings not configured")

// Settings is the singleton runtime configuration for the reply pipeline.
// Managed externally through the settings endpoint; the pipeline only reads it.
type Settings struct {
	ID                  int       `json:"id" gorm:"primaryKey"`
	ConfidenceThreshold int       `json:"confidence_threshold" gorm:"default:80"`
	CEOEmail            string    `json:"ceo_email" gorm:"not null"`
	CEOTimezone         string    `json:"ceo_timezone" gorm:"default:America/New_York"`
	CompanyDomains      string    `json:"company_domains"`
	BusinessHoursStart  string    `json:"business_hours_start" gorm:"default:09:00"`
	BusinessHoursEnd    string    `json:"business_hours_end" gorm:"default:17:00"`
	Holidays            string    `json:"holidays"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (Settings) TableName() string {
	return "settings"
}

// DomainList splits the comma-separated company domain allow-list.
func (s *Settings) DomainList() []string {
	return splitCSV(s.CompanyDomains)
}

// HolidayList splits the comma-separated ISO holiday dates.
func (s *Settings) HolidayList() []string {
	return splitCSV(s.Holidays)
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
