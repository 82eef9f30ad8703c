package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	draftdomain "github.com/replyline/replyline/internal/draft/domain"
	triggerdomain "github.com/replyline/replyline/internal/trigger/domain"
)

func dueDraft(id string, status draftdomain.DraftStatus) *draftdomain.Draft {
	past := time.Now().Add(-time.Minute)
	return &draftdomain.Draft{
		ID:                  id,
		TriggerID:           "t1",
		GmailMessageID:      "msg-" + id,
		GmailThreadID:       "thread-1",
		TriggerEmailSubject: "We raised a Series B",
		RecipientEmail:      "jane@acme.com",
		Subject:             "Re: We raised a Series B",
		Body:                "Congrats!",
		Status:              status,
		ScheduledSendAt:     &past,
	}
}

func newSendFixture(drafts *fakeDraftRepo, devMode bool) (*SendJob, *fakeMailer) {
	mailer := newFakeMailer()
	job := NewSendJob(
		&fakeSettingsRepo{settings: testSettings()},
		drafts,
		mailer,
		devMode,
		zap.NewNop(),
	)
	return job, mailer
}

func TestSendDispatchesDueDrafts(t *testing.T) {
	drafts := &fakeDraftRepo{}
	require.NoError(t, drafts.Create(dueDraft("d1", draftdomain.StatusAutoApproved)))

	job, mailer := newSendFixture(drafts, false)
	stats, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Sent)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "jane@acme.com", mailer.sent[0].To)

	got := drafts.get("d1")
	assert.Equal(t, draftdomain.StatusSent, got.Status)
	assert.NotNil(t, got.SentAt)
	assert.Empty(t, got.SendError)
}

func TestSendRetriesThenFails(t *testing.T) {
	drafts := &fakeDraftRepo{}
	require.NoError(t, drafts.Create(dueDraft("d1", draftdomain.StatusApproved)))

	job, mailer := newSendFixture(drafts, false)
	mailer.sendErr = errors.New("smtp 550")

	// First two failures stay retryable.
	for attempt := 1; attempt <= 2; attempt++ {
		_, err := job.Run(context.Background())
		require.NoError(t, err)

		got := drafts.get("d1")
		assert.Equal(t, draftdomain.StatusApproved, got.Status, "attempt %d", attempt)
		assert.Equal(t, attempt, got.SendAttempts)
		assert.Contains(t, got.SendError, "smtp 550")
	}

	// Third failure is terminal.
	stats, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)

	got := drafts.get("d1")
	assert.Equal(t, draftdomain.StatusFailed, got.Status)
	assert.Equal(t, draftdomain.MaxSendAttempts, got.SendAttempts)

	// A failed draft never comes due again.
	stats, err = job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Sent)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, draftdomain.MaxSendAttempts, drafts.get("d1").SendAttempts)
}

func TestSendIncompleteDraftTerminates(t *testing.T) {
	draft := dueDraft("d1", draftdomain.StatusApproved)
	draft.RecipientEmail = ""
	drafts := &fakeDraftRepo{}
	require.NoError(t, drafts.Create(draft))

	job, mailer := newSendFixture(drafts, false)
	for i := 0; i < draftdomain.MaxSendAttempts; i++ {
		_, err := job.Run(context.Background())
		require.NoError(t, err)
	}

	got := drafts.get("d1")
	assert.Equal(t, draftdomain.StatusFailed, got.Status)
	assert.Empty(t, mailer.sent, "an incomplete draft must never be dispatched")
}

func TestSendThreadedReply(t *testing.T) {
	draft := dueDraft("d1", draftdomain.StatusApproved)
	draft.TriggerEmailCC = "team@acme.com"
	draft.Trigger = &triggerdomain.Trigger{ID: "t1", ReplyInThread: true}
	drafts := &fakeDraftRepo{}
	require.NoError(t, drafts.Create(draft))

	job, mailer := newSendFixture(drafts, false)
	mailer.threadMsgIDs["thread-1"] = "<abc@mail.gmail.com>"

	_, err := job.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	sent := mailer.sent[0]
	assert.Equal(t, "thread-1", sent.ThreadID)
	assert.Equal(t, "<abc@mail.gmail.com>", sent.InReplyTo)
	assert.Equal(t, "team@acme.com", sent.CC)
}

func TestSendUnthreadedReplyOmitsThread(t *testing.T) {
	draft := dueDraft("d1", draftdomain.StatusApproved)
	draft.Trigger = &triggerdomain.Trigger{ID: "t1", ReplyInThread: false}
	drafts := &fakeDraftRepo{}
	require.NoError(t, drafts.Create(draft))

	job, mailer := newSendFixture(drafts, false)

	_, err := job.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	assert.Empty(t, mailer.sent[0].ThreadID)
	assert.Empty(t, mailer.sent[0].InReplyTo)
}

func TestSendDevModeSkipsDispatch(t *testing.T) {
	drafts := &fakeDraftRepo{}
	require.NoError(t, drafts.Create(dueDraft("d1", draftdomain.StatusApproved)))

	job, mailer := newSendFixture(drafts, true)
	stats, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Sent)
	assert.Empty(t, mailer.sent)
	assert.Equal(t, draftdomain.StatusSent, drafts.get("d1").Status)
}

func TestSendSkipsFutureDrafts(t *testing.T) {
	draft := dueDraft("d1", draftdomain.StatusApproved)
	future := time.Now().Add(time.Hour)
	draft.ScheduledSendAt = &future
	drafts := &fakeDraftRepo{}
	require.NoError(t, drafts.Create(draft))

	job, mailer := newSendFixture(drafts, false)
	stats, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Sent)
	assert.Empty(t, mailer.sent)
}
