package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	settingsdomain "github.com/replyline/replyline/internal/settings/domain"
	settingsrepo "github.com/replyline/replyline/internal/settings/repository"
	"github.com/replyline/replyline/internal/trigger/domain"
	"github.com/replyline/replyline/internal/trigger/repository"
	"github.com/replyline/replyline/pkg/gmail"
)

// testFilterLookback is how far back a filter test searches. Wide enough to
// hit real mail even on a quiet inbox.
const testFilterLookback = 7 * 24 * time.Hour

// testFilterPreview caps how many matches a filter test hydrates.
const testFilterPreview = 5

var ErrNotFound = errors.New("trigger not found")

// FilterTester is the slice of the Gmail service filter testing needs.
type FilterTester interface {
	ListMatchingSince(ctx context.Context, account string, since time.Time, filterQuery string) ([]string, error)
	GetMessage(ctx context.Context, account, messageID string) (*gmail.Message, error)
}

// TriggerUsecase manages trigger rules and their style examples.
type TriggerUsecase struct {
	triggers repository.TriggerRepository
	examples repository.StyleExampleRepository
	settings settingsrepo.SettingsRepository
	mail     FilterTester
	logger   *zap.Logger
}

func NewTriggerUsecase(
	triggers repository.TriggerRepository,
	examples repository.StyleExampleRepository,
	settings settingsrepo.SettingsRepository,
	mail FilterTester,
	logger *zap.Logger,
) *TriggerUsecase {
	return &TriggerUsecase{
		triggers: triggers,
		examples: examples,
		settings: settings,
		mail:     mail,
		logger:   logger.Named("triggers"),
	}
}

func (u *TriggerUsecase) Create(trigger *domain.Trigger) error {
	if err := trigger.Validate(); err != nil {
		return err
	}
	return u.triggers.Create(trigger)
}

func (u *TriggerUsecase) List() ([]*domain.Trigger, error) {
	return u.triggers.FindAll()
}

func (u *TriggerUsecase) Get(id string) (*domain.Trigger, error) {
	trigger, err := u.triggers.FindByID(id)
	if err != nil {
		return nil, err
	}
	if trigger == nil {
		return nil, ErrNotFound
	}
	return trigger, nil
}

func (u *TriggerUsecase) Update(trigger *domain.Trigger) error {
	existing, err := u.Get(trigger.ID)
	if err != nil {
		return err
	}
	trigger.CreatedAt = existing.CreatedAt
	if err := trigger.Validate(); err != nil {
		return err
	}
	return u.triggers.Update(trigger)
}

func (u *TriggerUsecase) Delete(id string) error {
	if _, err := u.Get(id); err != nil {
		return err
	}
	return u.triggers.Delete(id)
}

// AddExample seeds a style example for a trigger.
func (u *TriggerUsecase) AddExample(triggerID, subject, body string) (*domain.StyleExample, error) {
	if _, err := u.Get(triggerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, errors.New("example body is required")
	}
	example := &domain.StyleExample{
		TriggerID: triggerID,
		Subject:   subject,
		Body:      body,
		Source:    domain.StyleSourceSeed,
	}
	if err := u.examples.Create(example); err != nil {
		return nil, err
	}
	return example, nil
}

func (u *TriggerUsecase) ListExamples(triggerID string, limit int) ([]*domain.StyleExample, error) {
	if _, err := u.Get(triggerID); err != nil {
		return nil, err
	}
	return u.examples.FindRecentByTrigger(triggerID, limit)
}

// FilterTestResult is one matched message in a filter test preview.
type FilterTestResult struct {
	MessageID string `json:"message_id"`
	From      string `json:"from"`
	Subject   string `json:"subject"`
}

// TestFilter runs a Gmail filter query against the CEO inbox and previews
// the matches, so an administrator can sanity-check a query before enabling
// a filter-mode trigger.
func (u *TriggerUsecase) TestFilter(ctx context.Context, filterQuery string) ([]FilterTestResult, int, error) {
	if strings.TrimSpace(filterQuery) == "" {
		return nil, 0, domain.ErrFilterQueryRequired
	}

	settings, err := u.settings.Get()
	if err != nil {
		return nil, 0, err
	}
	if settings == nil {
		return nil, 0, settingsdomain.ErrNotConfigured
	}

	since := time.Now().Add(-testFilterLookback)
	ids, err := u.mail.ListMatchingSince(ctx, settings.CEOEmail, since, filterQuery)
	if err != nil {
		return nil, 0, err
	}

	results := make([]FilterTestResult, 0, testFilterPreview)
	for _, id := range ids {
		if len(results) == testFilterPreview {
			break
		}
		msg, err := u.mail.GetMessage(ctx, settings.CEOEmail, id)
		if err != nil {
			u.logger.Warn("could not hydrate filter test match",
				zap.String("message_id", id),
				zap.Error(err))
			continue
		}
		results = append(results, FilterTestResult{
			MessageID: msg.MessageID,
			From:      msg.From,
			Subject:   msg.Subject,
		})
	}
	return results, len(ids), nil
}
