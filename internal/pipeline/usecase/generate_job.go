package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	draftdomain "github.com/replyline/replyline/internal/draft/domain"
	draftrepo "github.com/replyline/replyline/internal/draft/repository"
	"github.com/replyline/replyline/internal/pipeline/scheduler"
	settingsdomain "github.com/replyline/replyline/internal/settings/domain"
	settingsrepo "github.com/replyline/replyline/internal/settings/repository"
	triggerrepo "github.com/replyline/replyline/internal/trigger/repository"
	"github.com/replyline/replyline/pkg/ai"
	"github.com/replyline/replyline/pkg/metrics"
)

const (
	// generateBatchCap bounds one generate run; drafting is the most
	// expensive model call in the pipeline.
	generateBatchCap = 5

	// styleExampleCount is how many recent examples season each draft.
	styleExampleCount = 5
)

// GenerateJob is the second pipeline stage: write reply text for every
// needs_drafting draft, pick a send slot, and route the result to human
// review or auto-approval. Drafts are processed serially so each scheduling
// decision sees the slots taken by the ones before it.
type GenerateJob struct {
	settings settingsrepo.SettingsRepository
	triggers triggerrepo.TriggerRepository
	examples triggerrepo.StyleExampleRepository
	drafts   draftrepo.DraftRepository
	ai       ai.Responder
	sched    *scheduler.Scheduler
	logger   *zap.Logger
}

// GenerateStats is the run summary recorded in the cron run log.
type GenerateStats struct {
	Generated     int `json:"generated"`
	AutoApproved  int `json:"auto_approved"`
	PendingReview int `json:"pending_review"`
	Errors        int `json:"errors"`
}

func NewGenerateJob(
	settings settingsrepo.SettingsRepository,
	triggers triggerrepo.TriggerRepository,
	examples triggerrepo.StyleExampleRepository,
	drafts draftrepo.DraftRepository,
	responder ai.Responder,
	sched *scheduler.Scheduler,
	logger *zap.Logger,
) *GenerateJob {
	return &GenerateJob{
		settings: settings,
		triggers: triggers,
		examples: examples,
		drafts:   drafts,
		ai:       responder,
		sched:    sched,
		logger:   logger.Named("generate"),
	}
}

func (j *GenerateJob) Run(ctx context.Context) (*GenerateStats, error) {
	settings, err := j.settings.Get()
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, settingsdomain.ErrNotConfigured
	}

	cfg, err := scheduler.ConfigFromSettings(settings)
	if err != nil {
		return nil, err
	}

	pending, err := j.drafts.FindByStatus(draftdomain.StatusNeedsDrafting, generateBatchCap)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return &GenerateStats{}, nil
	}

	existing, err := j.drafts.ScheduledSendTimes()
	if err != nil {
		return nil, err
	}

	stats := &GenerateStats{}
	for _, draft := range pending {
		slot, err := j.generate(ctx, draft, settings.ConfidenceThreshold, cfg, existing)
		if err != nil {
			stats.Errors++
			metrics.ItemErrors.WithLabelValues("generate").Inc()
			j.logger.Error("draft generation failed",
				zap.String("draft_id", draft.ID),
				zap.Error(err))
			continue
		}
		existing = append(existing, slot)

		stats.Generated++
		if draft.Status == draftdomain.StatusAutoApproved {
			stats.AutoApproved++
		} else {
			stats.PendingReview++
		}
		metrics.DraftsGenerated.WithLabelValues(string(draft.Status)).Inc()
	}

	j.logger.Info("generate run complete",
		zap.Int("generated", stats.Generated),
		zap.Int("auto_approved", stats.AutoApproved),
		zap.Int("pending_review", stats.PendingReview),
		zap.Int("errors", stats.Errors))
	return stats, nil
}

// generate drafts one reply and commits its schedule slot. On error the
// draft stays needs_drafting and the next run retries it.
func (j *GenerateJob) generate(ctx context.Context, draft *draftdomain.Draft, threshold int, cfg scheduler.Config, existing []time.Time) (time.Time, error) {
	trigger := draft.Trigger
	if trigger == nil {
		var err error
		trigger, err = j.triggers.FindByID(draft.TriggerID)
		if err != nil {
			return time.Time{}, err
		}
		if trigger == nil {
			return time.Time{}, fmt.Errorf("trigger %s no longer exists", draft.TriggerID)
		}
	}

	recent, err := j.examples.FindRecentByTrigger(trigger.ID, styleExampleCount)
	if err != nil {
		return time.Time{}, err
	}
	styleExamples := make([]ai.StyleExample, 0, len(recent))
	for _, ex := range recent {
		styleExamples = append(styleExamples, ai.StyleExample{
			Subject: ex.Subject,
			Body:    ex.Body,
			Source:  string(ex.Source),
		})
	}

	reply, err := j.ai.Draft(ctx, ai.DraftRequest{
		Trigger: ai.TriggerDescriptor{
			ID:           trigger.ID,
			Name:         trigger.Name,
			Description:  trigger.Description,
			EmailType:    string(trigger.EmailType),
			SystemPrompt: trigger.SystemPrompt,
		},
		Email: ai.Email{
			From:    draft.TriggerEmailFrom,
			Subject: draft.TriggerEmailSubject,
			Body:    draft.TriggerEmailBodySnippet,
		},
		RecipientName:  draft.RecipientName,
		RecipientEmail: draft.RecipientEmail,
		StyleExamples:  styleExamples,
	})
	if err != nil {
		return time.Time{}, err
	}
	if err := reply.Validate(); err != nil {
		return time.Time{}, err
	}

	// The draft's creation time stands in for the trigger email's arrival;
	// intake runs minutes behind the inbox while the reply window spans hours.
	minHours, maxHours := trigger.ReplyWindow()
	slot, err := j.sched.PlanAfterTrigger(draft.CreatedAt, minHours, maxHours, cfg, existing)
	if err != nil {
		return time.Time{}, err
	}

	subject := reply.Subject
	if subject == "" {
		subject = "Re: " + draft.TriggerEmailSubject
	}

	draft.Subject = subject
	draft.Body = reply.Body
	draft.OriginalBody = reply.Body
	draft.ScheduledSendAt = &slot
	if draftdomain.AutoApproved(draft.ConfidenceScore, threshold, draft.RecipientEmail) {
		draft.Status = draftdomain.StatusAutoApproved
	} else {
		draft.Status = draftdomain.StatusPendingReview
	}

	if err := j.drafts.Update(draft); err != nil {
		return time.Time{}, err
	}

	j.logger.Info("draft generated",
		zap.String("draft_id", draft.ID),
		zap.String("status", string(draft.Status)),
		zap.Time("scheduled_send_at", slot))
	return slot, nil
}
