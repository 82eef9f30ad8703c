package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StageDuration observes how long each pipeline stage invocation takes.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Pipeline stage invocation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"stage", "status"},
	)

	// EmailsScanned counts inbound messages seen by the intake stage.
	EmailsScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_emails_scanned_total",
			Help: "Total number of inbound emails scanned",
		},
	)

	// EmailsMatched counts messages that matched a trigger.
	EmailsMatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_emails_matched_total",
			Help: "Total number of inbound emails matched to a trigger",
		},
		[]string{"match_mode"},
	)

	// DraftsGenerated counts drafting outcomes by resulting status.
	DraftsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_drafts_generated_total",
			Help: "Total number of drafts generated",
		},
		[]string{"status"},
	)

	// EmailsSent counts send outcomes.
	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_emails_sent_total",
			Help: "Total number of reply emails dispatched",
		},
		[]string{"status"},
	)

	// ItemErrors counts per-item failures by stage.
	ItemErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_item_errors_total",
			Help: "Total number of per-item processing errors",
		},
		[]string{"stage"},
	)
)

// ObserveStage records one stage invocation.
func ObserveStage(stage, status string, duration time.Duration) {
	StageDuration.WithLabelValues(stage, status).Observe(duration.Seconds())
}
