package domain

import "time"

// RunStatus is the outcome of one pipeline-stage invocation.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
)

// CronRunLog is the append-only audit trail: one row per stage invocation
// with a stage-specific stats payload. Observability only, never read by the
// pipeline itself.
type CronRunLog struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	JobName      string    `json:"job_name" gorm:"index;not null"`
	Status       RunStatus `json:"status" gorm:"not null"`
	StartedAt    time.Time `json:"started_at"`
	DurationMs   int64     `json:"duration_ms"`
	Stats        string    `json:"stats" gorm:"type:jsonb"`
	ErrorMessage string    `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
}

func (CronRunLog) TableName() string {
	return "cron_run_logs"
}
