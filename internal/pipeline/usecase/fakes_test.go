package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	draftdomain "github.com/replyline/replyline/internal/draft/domain"
	settingsdomain "github.com/replyline/replyline/internal/settings/domain"
	triggerdomain "github.com/replyline/replyline/internal/trigger/domain"
	"github.com/replyline/replyline/pkg/ai"
	"github.com/replyline/replyline/pkg/gmail"
)

type fakeSettingsRepo struct {
	settings *settingsdomain.Settings
}

func (f *fakeSettingsRepo) Get() (*settingsdomain.Settings, error) { return f.settings, nil }
func (f *fakeSettingsRepo) Save(s *settingsdomain.Settings) error  { f.settings = s; return nil }

type fakeTriggerRepo struct {
	triggers []*triggerdomain.Trigger
}

func (f *fakeTriggerRepo) Create(t *triggerdomain.Trigger) error {
	f.triggers = append(f.triggers, t)
	return nil
}

func (f *fakeTriggerRepo) FindByID(id string) (*triggerdomain.Trigger, error) {
	for _, t := range f.triggers {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeTriggerRepo) FindAll() ([]*triggerdomain.Trigger, error) {
	return f.triggers, nil
}

func (f *fakeTriggerRepo) FindEnabled() ([]*triggerdomain.Trigger, error) {
	var out []*triggerdomain.Trigger
	for _, t := range f.triggers {
		if t.Enabled {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (f *fakeTriggerRepo) Update(*triggerdomain.Trigger) error { return nil }
func (f *fakeTriggerRepo) Delete(string) error                 { return nil }

type fakeStyleRepo struct {
	examples []*triggerdomain.StyleExample
}

func (f *fakeStyleRepo) Create(e *triggerdomain.StyleExample) error {
	f.examples = append(f.examples, e)
	return nil
}

func (f *fakeStyleRepo) FindRecentByTrigger(triggerID string, limit int) ([]*triggerdomain.StyleExample, error) {
	var out []*triggerdomain.StyleExample
	for _, e := range f.examples {
		if e.TriggerID == triggerID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeDraftRepo struct {
	mu     sync.Mutex
	drafts []*draftdomain.Draft
	nextID int
}

func (f *fakeDraftRepo) Create(d *draftdomain.Draft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if d.ID == "" {
		d.ID = fmt.Sprintf("draft-%d", f.nextID)
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	copied := *d
	f.drafts = append(f.drafts, &copied)
	return nil
}

func (f *fakeDraftRepo) FindByID(id string) (*draftdomain.Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.drafts {
		if d.ID == id {
			copied := *d
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeDraftRepo) FindByStatus(status draftdomain.DraftStatus, limit int) ([]*draftdomain.Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*draftdomain.Draft
	for _, d := range f.drafts {
		if d.Status == status && len(out) < limit {
			copied := *d
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeDraftRepo) FindDue(now time.Time, limit int) ([]*draftdomain.Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*draftdomain.Draft
	for _, d := range f.drafts {
		if len(out) == limit {
			break
		}
		due := (d.Status == draftdomain.StatusApproved || d.Status == draftdomain.StatusAutoApproved) &&
			d.ScheduledSendAt != nil && !d.ScheduledSendAt.After(now) && d.SentAt == nil
		if due {
			copied := *d
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeDraftRepo) ScheduledSendTimes() ([]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []time.Time
	for _, d := range f.drafts {
		holding := d.Status == draftdomain.StatusApproved ||
			d.Status == draftdomain.StatusAutoApproved ||
			d.Status == draftdomain.StatusPendingReview
		if holding && d.ScheduledSendAt != nil {
			out = append(out, *d.ScheduledSendAt)
		}
	}
	return out, nil
}

func (f *fakeDraftRepo) List(status draftdomain.DraftStatus, limit, offset int) ([]*draftdomain.Draft, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*draftdomain.Draft
	for _, d := range f.drafts {
		if status == "" || d.Status == status {
			copied := *d
			out = append(out, &copied)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeDraftRepo) Update(d *draftdomain.Draft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.drafts {
		if existing.ID == d.ID {
			copied := *d
			f.drafts[i] = &copied
			return nil
		}
	}
	return draftdomain.ErrNotFound
}

func (f *fakeDraftRepo) get(id string) *draftdomain.Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.drafts {
		if d.ID == id {
			return d
		}
	}
	return nil
}

type fakeLedger struct {
	mu        sync.Mutex
	processed map[string]bool

	// beforeMark runs once inside the next MarkProcessed call, before the
	// existence check. Tests use it to interleave a competing insert.
	beforeMark func()
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{processed: make(map[string]bool)}
}

func (f *fakeLedger) HasProcessed(messageID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.processed[messageID]
	return ok, nil
}

func (f *fakeLedger) MarkProcessed(messageID string, matched bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if hook := f.beforeMark; hook != nil {
		f.beforeMark = nil
		hook()
	}
	if _, ok := f.processed[messageID]; ok {
		return false, nil
	}
	f.processed[messageID] = matched
	return true, nil
}

type fakeMailer struct {
	mu sync.Mutex

	unread        []string
	filterMatches map[string][]string
	messages      map[string]*gmail.Message
	threadMsgIDs  map[string]string

	sent    []gmail.SendRequest
	sendErr error
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{
		filterMatches: make(map[string][]string),
		messages:      make(map[string]*gmail.Message),
		threadMsgIDs:  make(map[string]string),
	}
}

func (f *fakeMailer) ListUnreadSince(_ context.Context, _ string, _ time.Time, _ []string) ([]string, error) {
	return f.unread, nil
}

func (f *fakeMailer) ListMatchingSince(_ context.Context, _ string, _ time.Time, filterQuery string) ([]string, error) {
	return f.filterMatches[filterQuery], nil
}

func (f *fakeMailer) GetMessage(_ context.Context, _ string, messageID string) (*gmail.Message, error) {
	msg, ok := f.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("no such message %s", messageID)
	}
	return msg, nil
}

func (f *fakeMailer) GetLatestThreadMessageID(_ context.Context, _ string, threadID string) (string, error) {
	return f.threadMsgIDs[threadID], nil
}

func (f *fakeMailer) Send(_ context.Context, _ string, req gmail.SendRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, req)
	return nil
}

type fakeResponder struct {
	classifyFn func(ai.Email, []ai.TriggerDescriptor) (*ai.Classification, error)
	draftFn    func(ai.DraftRequest) (*ai.DraftReply, error)
}

func (f *fakeResponder) Classify(_ context.Context, email ai.Email, triggers []ai.TriggerDescriptor) (*ai.Classification, error) {
	if f.classifyFn == nil {
		return &ai.Classification{Matched: false}, nil
	}
	return f.classifyFn(email, triggers)
}

func (f *fakeResponder) Draft(_ context.Context, req ai.DraftRequest) (*ai.DraftReply, error) {
	if f.draftFn == nil {
		return &ai.DraftReply{Subject: "Re: " + req.Email.Subject, Body: "Thanks!"}, nil
	}
	return f.draftFn(req)
}

func testSettings() *settingsdomain.Settings {
	return &settingsdomain.Settings{
		ID:                  1,
		ConfidenceThreshold: 80,
		CEOEmail:            "ceo@acme.com",
		CEOTimezone:         "UTC",
		CompanyDomains:      "acme.com, partner.io",
		BusinessHoursStart:  "09:00",
		BusinessHoursEnd:    "17:00",
	}
}
