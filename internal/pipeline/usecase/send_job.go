package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	draftdomain "github.com/replyline/replyline/internal/draft/domain"
	draftrepo "github.com/replyline/replyline/internal/draft/repository"
	settingsdomain "github.com/replyline/replyline/internal/settings/domain"
	settingsrepo "github.com/replyline/replyline/internal/settings/repository"
	"github.com/replyline/replyline/pkg/gmail"
	"github.com/replyline/replyline/pkg/metrics"
)

// sendBatchCap bounds one send run.
const sendBatchCap = 10

// SendJob is the third pipeline stage: dispatch approved drafts whose
// scheduled send time has arrived. Each draft gets at most MaxSendAttempts
// tries before it is parked as failed.
type SendJob struct {
	settings settingsrepo.SettingsRepository
	drafts   draftrepo.DraftRepository
	mail     Mailer
	devMode  bool
	logger   *zap.Logger
}

// SendStats is the run summary recorded in the cron run log.
type SendStats struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	Errors int `json:"errors"`
}

func NewSendJob(
	settings settingsrepo.SettingsRepository,
	drafts draftrepo.DraftRepository,
	mail Mailer,
	devMode bool,
	logger *zap.Logger,
) *SendJob {
	return &SendJob{
		settings: settings,
		drafts:   drafts,
		mail:     mail,
		devMode:  devMode,
		logger:   logger.Named("send"),
	}
}

func (j *SendJob) Run(ctx context.Context) (*SendStats, error) {
	settings, err := j.settings.Get()
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, settingsdomain.ErrNotConfigured
	}

	due, err := j.drafts.FindDue(time.Now(), sendBatchCap)
	if err != nil {
		return nil, err
	}

	stats := &SendStats{}
	for _, draft := range due {
		if !draft.Sendable() {
			continue
		}
		switch j.dispatch(ctx, settings.CEOEmail, draft) {
		case draftdomain.StatusSent:
			stats.Sent++
			metrics.EmailsSent.WithLabelValues("sent").Inc()
		case draftdomain.StatusFailed:
			stats.Failed++
			metrics.EmailsSent.WithLabelValues("failed").Inc()
		default:
			stats.Errors++
			metrics.ItemErrors.WithLabelValues("send").Inc()
		}
	}

	j.logger.Info("send run complete",
		zap.Int("sent", stats.Sent),
		zap.Int("failed", stats.Failed),
		zap.Int("errors", stats.Errors))
	return stats, nil
}

// dispatch sends one draft and persists the outcome. The returned status is
// the draft's status after this attempt; a retryable failure leaves it
// approved with the attempt recorded.
func (j *SendJob) dispatch(ctx context.Context, account string, draft *draftdomain.Draft) draftdomain.DraftStatus {
	if draft.RecipientEmail == "" || draft.Subject == "" || draft.Body == "" {
		// Incomplete drafts can never succeed; burn the attempt so they
		// terminate instead of being re-picked forever.
		return j.recordFailure(draft, draftdomain.ErrMissingSendFields.Error())
	}

	if j.devMode {
		j.logger.Info("dev mode, marking sent without dispatch",
			zap.String("draft_id", draft.ID),
			zap.String("to", draft.RecipientEmail))
		return j.recordSent(draft)
	}

	req := gmail.SendRequest{
		To:      draft.RecipientEmail,
		Subject: draft.Subject,
		Body:    draft.Body,
	}
	if draft.Trigger != nil && draft.Trigger.ReplyInThread && draft.GmailThreadID != "" {
		req.ThreadID = draft.GmailThreadID
		req.CC = draft.TriggerEmailCC
		inReplyTo, err := j.mail.GetLatestThreadMessageID(ctx, account, draft.GmailThreadID)
		if err != nil {
			// Threading headers are best effort; send as a plain reply.
			j.logger.Warn("could not resolve thread message id",
				zap.String("draft_id", draft.ID),
				zap.Error(err))
		}
		req.InReplyTo = inReplyTo
	}

	if err := j.mail.Send(ctx, account, req); err != nil {
		j.logger.Error("send attempt failed",
			zap.String("draft_id", draft.ID),
			zap.Int("attempt", draft.SendAttempts+1),
			zap.Error(err))
		return j.recordFailure(draft, err.Error())
	}
	return j.recordSent(draft)
}

func (j *SendJob) recordSent(draft *draftdomain.Draft) draftdomain.DraftStatus {
	now := time.Now()
	draft.Status = draftdomain.StatusSent
	draft.SentAt = &now
	draft.SendError = ""
	if err := j.drafts.Update(draft); err != nil {
		j.logger.Error("could not persist sent draft",
			zap.String("draft_id", draft.ID),
			zap.Error(err))
		return ""
	}
	j.logger.Info("reply sent",
		zap.String("draft_id", draft.ID),
		zap.String("to", draft.RecipientEmail))
	return draftdomain.StatusSent
}

func (j *SendJob) recordFailure(draft *draftdomain.Draft, message string) draftdomain.DraftStatus {
	draft.SendAttempts++
	draft.SendError = message
	if draft.SendAttempts >= draftdomain.MaxSendAttempts {
		draft.Status = draftdomain.StatusFailed
	}
	if err := j.drafts.Update(draft); err != nil {
		j.logger.Error("could not persist failed attempt",
			zap.String("draft_id", draft.ID),
			zap.Error(err))
		return ""
	}
	return draft.Status
}
