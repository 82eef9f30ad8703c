package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	draftdomain "github.com/replyline/replyline/internal/draft/domain"
	draftrepo "github.com/replyline/replyline/internal/draft/repository"
	settingsdomain "github.com/replyline/replyline/internal/settings/domain"
	settingsrepo "github.com/replyline/replyline/internal/settings/repository"
	triggerdomain "github.com/replyline/replyline/internal/trigger/domain"
	triggerrepo "github.com/replyline/replyline/internal/trigger/repository"
	"github.com/replyline/replyline/pkg/ai"
	"github.com/replyline/replyline/pkg/metrics"
)

const (
	// intakeBatchCap bounds one intake run so a backlog never starves the
	// stage budget. Anything beyond the cap is picked up next run.
	intakeBatchCap = 20

	// intakeConcurrency bounds parallel per-message work.
	intakeConcurrency = 5
)

// IntakeJob is the first pipeline stage: scan the inbox, evaluate each new
// message against the enabled triggers, and create needs_drafting drafts for
// matches. Every message id passes through the dedup ledger exactly once.
type IntakeJob struct {
	settings settingsrepo.SettingsRepository
	triggers triggerrepo.TriggerRepository
	drafts   draftrepo.DraftRepository
	ledger   draftrepo.ProcessedEmailRepository
	mail     Mailer
	ai       ai.Responder
	lookback time.Duration
	logger   *zap.Logger
}

// IntakeStats is the run summary recorded in the cron run log. Processed
// counts the messages this run settled in the ledger; duplicates another run
// already settled land in Skipped.
type IntakeStats struct {
	Scanned   int `json:"scanned"`
	Processed int `json:"processed"`
	Matched   int `json:"matched"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

func NewIntakeJob(
	settings settingsrepo.SettingsRepository,
	triggers triggerrepo.TriggerRepository,
	drafts draftrepo.DraftRepository,
	ledger draftrepo.ProcessedEmailRepository,
	mail Mailer,
	responder ai.Responder,
	lookback time.Duration,
	logger *zap.Logger,
) *IntakeJob {
	return &IntakeJob{
		settings: settings,
		triggers: triggers,
		drafts:   drafts,
		ledger:   ledger,
		mail:     mail,
		ai:       responder,
		lookback: lookback,
		logger:   logger.Named("intake"),
	}
}

// candidate pairs a message id with the filter trigger that surfaced it.
// Trigger is nil for messages that came in through the domain-wide scan and
// still need llm classification.
type candidate struct {
	messageID string
	trigger   *triggerdomain.Trigger
}

func (j *IntakeJob) Run(ctx context.Context) (*IntakeStats, error) {
	settings, err := j.settings.Get()
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, settingsdomain.ErrNotConfigured
	}

	enabled, err := j.triggers.FindEnabled()
	if err != nil {
		return nil, err
	}
	if len(enabled) == 0 {
		j.logger.Info("no enabled triggers, nothing to scan")
		return &IntakeStats{}, nil
	}

	var llmTriggers []*triggerdomain.Trigger
	for _, t := range enabled {
		if t.MatchMode == triggerdomain.MatchModeLLM {
			llmTriggers = append(llmTriggers, t)
		}
	}

	since := time.Now().Add(-j.lookback)
	candidates, err := j.collect(ctx, settings.CEOEmail, since, enabled, llmTriggers, settings.DomainList())
	if err != nil {
		return nil, err
	}

	stats := &IntakeStats{}
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(intakeConcurrency)
	for _, c := range candidates {
		c := c
		group.Go(func() error {
			outcome, err := j.process(groupCtx, settings.CEOEmail, c, llmTriggers)

			mu.Lock()
			defer mu.Unlock()
			stats.Scanned++
			switch {
			case err != nil:
				stats.Errors++
				metrics.ItemErrors.WithLabelValues("intake").Inc()
				j.logger.Error("message processing failed",
					zap.String("message_id", c.messageID),
					zap.Error(err))
			case outcome == skippedDuplicate:
				stats.Skipped++
			case outcome == matchedDraft:
				stats.Processed++
				stats.Matched++
			default:
				stats.Processed++
			}
			// Per-item failures never abort the batch.
			return nil
		})
	}
	_ = group.Wait()

	metrics.EmailsScanned.Add(float64(stats.Scanned))
	j.logger.Info("intake run complete",
		zap.Int("scanned", stats.Scanned),
		zap.Int("processed", stats.Processed),
		zap.Int("matched", stats.Matched),
		zap.Int("skipped", stats.Skipped),
		zap.Int("errors", stats.Errors))
	return stats, nil
}

// collect gathers the candidate message set: filter-mode triggers query Gmail
// directly, and llm-mode triggers share one domain-restricted unread scan.
// Triggers are walked in sort order, so when two filters hit the same message
// the first enabled trigger claims it.
func (j *IntakeJob) collect(ctx context.Context, account string, since time.Time, enabled, llmTriggers []*triggerdomain.Trigger, domains []string) ([]candidate, error) {
	seen := make(map[string]struct{})
	var out []candidate

	for _, t := range enabled {
		if t.MatchMode != triggerdomain.MatchModeGmailFilter {
			continue
		}
		ids, err := j.mail.ListMatchingSince(ctx, account, since, t.GmailFilterQuery)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, candidate{messageID: id, trigger: t})
		}
	}

	if len(llmTriggers) > 0 && len(domains) > 0 {
		ids, err := j.mail.ListUnreadSince(ctx, account, since, domains)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, candidate{messageID: id})
		}
	}

	if len(out) > intakeBatchCap {
		out = out[:intakeBatchCap]
	}
	return out, nil
}

type processOutcome int

const (
	noMatch processOutcome = iota
	matchedDraft
	skippedDuplicate
)

func (j *IntakeJob) process(ctx context.Context, account string, c candidate, llmTriggers []*triggerdomain.Trigger) (processOutcome, error) {
	done, err := j.ledger.HasProcessed(c.messageID)
	if err != nil {
		return noMatch, err
	}
	if done {
		return skippedDuplicate, nil
	}

	msg, err := j.mail.GetMessage(ctx, account, c.messageID)
	if err != nil {
		return noMatch, err
	}

	var verdict *match
	if c.trigger != nil {
		verdict = filterMatch(c.trigger, msg)
	} else {
		verdict, err = classifyMatch(ctx, j.ai, msg, llmTriggers)
		if err != nil {
			// Leave the message unprocessed; a later run retries it.
			return noMatch, err
		}
	}

	// The ledger insert is the race arbiter: whoever wins it owns draft
	// creation for this message.
	won, err := j.ledger.MarkProcessed(c.messageID, verdict != nil)
	if err != nil {
		return noMatch, err
	}
	if !won {
		return skippedDuplicate, nil
	}

	if verdict == nil {
		return noMatch, nil
	}

	draft := &draftdomain.Draft{
		TriggerID:               verdict.Trigger.ID,
		GmailMessageID:          msg.MessageID,
		GmailThreadID:           msg.ThreadID,
		TriggerEmailFrom:        msg.From,
		TriggerEmailSubject:     msg.Subject,
		TriggerEmailBodySnippet: msg.Body,
		TriggerEmailCC:          msg.CC,
		RecipientEmail:          verdict.RecipientEmail,
		RecipientName:           verdict.RecipientName,
		ConfidenceScore:         verdict.Confidence,
		Status:                  draftdomain.StatusNeedsDrafting,
	}
	if err := j.drafts.Create(draft); err != nil {
		return noMatch, err
	}

	metrics.EmailsMatched.WithLabelValues(string(verdict.Trigger.MatchMode)).Inc()
	j.logger.Info("trigger matched",
		zap.String("message_id", msg.MessageID),
		zap.String("trigger", verdict.Trigger.Name),
		zap.Int("confidence", verdict.Confidence))
	return matchedDraft, nil
}
