package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/replyline/replyline/internal/draft/domain"
	"github.com/replyline/replyline/internal/draft/repository"
	"github.com/replyline/replyline/internal/pipeline/scheduler"
	settingsdomain "github.com/replyline/replyline/internal/settings/domain"
	settingsrepo "github.com/replyline/replyline/internal/settings/repository"
	triggerdomain "github.com/replyline/replyline/internal/trigger/domain"
	triggerrepo "github.com/replyline/replyline/internal/trigger/repository"
	"github.com/replyline/replyline/pkg/gmail"
	"github.com/replyline/replyline/pkg/metrics"
)

// Mailer is the slice of the Gmail service send-now needs.
type Mailer interface {
	GetLatestThreadMessageID(ctx context.Context, account, threadID string) (string, error)
	Send(ctx context.Context, account string, req gmail.SendRequest) error
}

// DraftUsecase covers the human side of the draft lifecycle: browsing the
// queue, approving, rejecting and immediate dispatch.
type DraftUsecase struct {
	drafts   repository.DraftRepository
	examples triggerrepo.StyleExampleRepository
	settings settingsrepo.SettingsRepository
	sched    *scheduler.Scheduler
	mail     Mailer
	devMode  bool
	logger   *zap.Logger
}

func NewDraftUsecase(
	drafts repository.DraftRepository,
	examples triggerrepo.StyleExampleRepository,
	settings settingsrepo.SettingsRepository,
	sched *scheduler.Scheduler,
	mail Mailer,
	devMode bool,
	logger *zap.Logger,
) *DraftUsecase {
	return &DraftUsecase{
		drafts:   drafts,
		examples: examples,
		settings: settings,
		sched:    sched,
		mail:     mail,
		devMode:  devMode,
		logger:   logger.Named("drafts"),
	}
}

func (u *DraftUsecase) List(status domain.DraftStatus, limit, offset int) ([]*domain.Draft, int64, error) {
	return u.drafts.List(status, limit, offset)
}

func (u *DraftUsecase) Get(id string) (*domain.Draft, error) {
	draft, err := u.drafts.FindByID(id)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, domain.ErrNotFound
	}
	return draft, nil
}

// Approve moves a draft to approved, recording who approved it and any edits
// they made. An edited body archives the pre-edit text as a style example so
// future drafts learn from the correction. A lapsed send slot is recomputed
// with the post-approval timing profile.
func (u *DraftUsecase) Approve(id, recipientEmail, subject, body, approverEmail string) (*domain.Draft, error) {
	draft, err := u.Get(id)
	if err != nil {
		return nil, err
	}
	if !draft.Reviewable() {
		return nil, domain.ErrInvalidTransition
	}
	if recipientEmail == "" || subject == "" || body == "" {
		return nil, domain.ErrMissingSendFields
	}

	wasEdited := draft.Body != "" && body != draft.Body
	if wasEdited {
		example := &triggerdomain.StyleExample{
			TriggerID: draft.TriggerID,
			Subject:   draft.Subject,
			Body:      draft.Body,
			Source:    triggerdomain.StyleSourceEdited,
		}
		if err := u.examples.Create(example); err != nil {
			return nil, err
		}
		draft.OriginalBody = draft.Body
	}

	draft.RecipientEmail = recipientEmail
	draft.Subject = subject
	draft.Body = body
	draft.Status = domain.StatusApproved
	draft.ApprovedByEmail = approverEmail

	now := time.Now()
	if draft.ScheduledSendAt == nil || !draft.ScheduledSendAt.After(now) {
		slot, err := u.reschedule(now)
		if err != nil {
			return nil, err
		}
		draft.ScheduledSendAt = &slot
	}

	if err := u.drafts.Update(draft); err != nil {
		return nil, err
	}

	u.logger.Info("draft approved",
		zap.String("draft_id", draft.ID),
		zap.String("approved_by", approverEmail),
		zap.Bool("edited", wasEdited))
	return draft, nil
}

// Reject parks a draft permanently and releases its schedule slot.
func (u *DraftUsecase) Reject(id string) (*domain.Draft, error) {
	draft, err := u.Get(id)
	if err != nil {
		return nil, err
	}
	if !draft.Reviewable() {
		return nil, domain.ErrInvalidTransition
	}

	draft.Status = domain.StatusRejected
	draft.ScheduledSendAt = nil
	if err := u.drafts.Update(draft); err != nil {
		return nil, err
	}

	u.logger.Info("draft rejected", zap.String("draft_id", draft.ID))
	return draft, nil
}

// SendNow dispatches an approved draft immediately, bypassing its schedule.
func (u *DraftUsecase) SendNow(ctx context.Context, id string) (*domain.Draft, error) {
	draft, err := u.Get(id)
	if err != nil {
		return nil, err
	}
	if !draft.Sendable() {
		return nil, domain.ErrInvalidTransition
	}
	if draft.RecipientEmail == "" || draft.Subject == "" || draft.Body == "" {
		return nil, domain.ErrMissingSendFields
	}

	settings, err := u.settings.Get()
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, settingsdomain.ErrNotConfigured
	}

	if !u.devMode {
		req := gmail.SendRequest{
			To:      draft.RecipientEmail,
			Subject: draft.Subject,
			Body:    draft.Body,
		}
		if draft.Trigger != nil && draft.Trigger.ReplyInThread && draft.GmailThreadID != "" {
			req.ThreadID = draft.GmailThreadID
			req.CC = draft.TriggerEmailCC
			inReplyTo, err := u.mail.GetLatestThreadMessageID(ctx, settings.CEOEmail, draft.GmailThreadID)
			if err != nil {
				u.logger.Warn("could not resolve thread message id",
					zap.String("draft_id", draft.ID),
					zap.Error(err))
			}
			req.InReplyTo = inReplyTo
		}

		if err := u.mail.Send(ctx, settings.CEOEmail, req); err != nil {
			draft.SendAttempts++
			draft.SendError = err.Error()
			if draft.SendAttempts >= domain.MaxSendAttempts {
				draft.Status = domain.StatusFailed
			}
			if updateErr := u.drafts.Update(draft); updateErr != nil {
				u.logger.Error("could not persist failed attempt",
					zap.String("draft_id", draft.ID),
					zap.Error(updateErr))
			}
			metrics.EmailsSent.WithLabelValues("failed").Inc()
			return nil, err
		}
	} else {
		u.logger.Info("dev mode, marking sent without dispatch",
			zap.String("draft_id", draft.ID))
	}

	now := time.Now()
	draft.Status = domain.StatusSent
	draft.SentAt = &now
	draft.SendError = ""
	if err := u.drafts.Update(draft); err != nil {
		return nil, err
	}

	metrics.EmailsSent.WithLabelValues("sent").Inc()
	u.logger.Info("reply sent immediately",
		zap.String("draft_id", draft.ID),
		zap.String("to", draft.RecipientEmail))
	return draft, nil
}

func (u *DraftUsecase) reschedule(now time.Time) (time.Time, error) {
	settings, err := u.settings.Get()
	if err != nil {
		return time.Time{}, err
	}
	if settings == nil {
		return time.Time{}, settingsdomain.ErrNotConfigured
	}
	cfg, err := scheduler.ConfigFromSettings(settings)
	if err != nil {
		return time.Time{}, err
	}
	existing, err := u.drafts.ScheduledSendTimes()
	if err != nil {
		return time.Time{}, err
	}
	return u.sched.PlanAfterApproval(now, cfg, existing)
}
