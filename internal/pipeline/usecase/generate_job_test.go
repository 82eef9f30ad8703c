package usecase

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	draftdomain "github.com/replyline/replyline/internal/draft/domain"
	"github.com/replyline/replyline/internal/pipeline/scheduler"
	triggerdomain "github.com/replyline/replyline/internal/trigger/domain"
	"github.com/replyline/replyline/pkg/ai"
)

func pendingDraft(id, triggerID string, confidence int, recipient string) *draftdomain.Draft {
	return &draftdomain.Draft{
		ID:                  id,
		TriggerID:           triggerID,
		GmailMessageID:      "msg-" + id,
		TriggerEmailFrom:    "Jane Doe <jane@acme.com>",
		TriggerEmailSubject: "We raised a Series B",
		RecipientEmail:      recipient,
		RecipientName:       "Jane",
		ConfidenceScore:     confidence,
		Status:              draftdomain.StatusNeedsDrafting,
		CreatedAt:           time.Now(),
	}
}

func newGenerateFixture(trigger *triggerdomain.Trigger, drafts *fakeDraftRepo) (*GenerateJob, *fakeResponder) {
	responder := &fakeResponder{}
	job := NewGenerateJob(
		&fakeSettingsRepo{settings: testSettings()},
		&fakeTriggerRepo{triggers: []*triggerdomain.Trigger{trigger}},
		&fakeStyleRepo{},
		drafts,
		responder,
		scheduler.New(rand.New(rand.NewSource(1))),
		zap.NewNop(),
	)
	return job, responder
}

func TestGenerateRoutesByConfidence(t *testing.T) {
	tests := []struct {
		name       string
		confidence int
		recipient  string
		want       draftdomain.DraftStatus
	}{
		{name: "well above threshold", confidence: 92, recipient: "jane@acme.com", want: draftdomain.StatusAutoApproved},
		{name: "exactly threshold plus buffer", confidence: 85, recipient: "jane@acme.com", want: draftdomain.StatusAutoApproved},
		{name: "inside the borderline buffer", confidence: 84, recipient: "jane@acme.com", want: draftdomain.StatusPendingReview},
		{name: "at bare threshold", confidence: 80, recipient: "jane@acme.com", want: draftdomain.StatusPendingReview},
		{name: "confident but no recipient", confidence: 99, recipient: "", want: draftdomain.StatusPendingReview},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger := llmTrigger("t1", 0)
			drafts := &fakeDraftRepo{}
			require.NoError(t, drafts.Create(pendingDraft("d1", "t1", tt.confidence, tt.recipient)))

			job, _ := newGenerateFixture(trigger, drafts)
			stats, err := job.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, stats.Generated)

			got := drafts.get("d1")
			assert.Equal(t, tt.want, got.Status)
			assert.NotNil(t, got.ScheduledSendAt)
			assert.NotEmpty(t, got.Body)
			assert.Equal(t, got.Body, got.OriginalBody)
		})
	}
}

func TestGenerateSpacesSlotsWithinOneRun(t *testing.T) {
	trigger := llmTrigger("t1", 0)
	drafts := &fakeDraftRepo{}
	for _, id := range []string{"d1", "d2", "d3"} {
		require.NoError(t, drafts.Create(pendingDraft(id, "t1", 90, "jane@acme.com")))
	}

	job, _ := newGenerateFixture(trigger, drafts)
	stats, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Generated)

	slots, err := drafts.ScheduledSendTimes()
	require.NoError(t, err)
	require.Len(t, slots, 3)

	for i := range slots {
		for j := i + 1; j < len(slots); j++ {
			gap := slots[i].Sub(slots[j])
			if gap < 0 {
				gap = -gap
			}
			assert.GreaterOrEqual(t, gap, 15*time.Minute)
		}
	}
}

func TestGenerateFailureLeavesDraftForRetry(t *testing.T) {
	trigger := llmTrigger("t1", 0)
	drafts := &fakeDraftRepo{}
	require.NoError(t, drafts.Create(pendingDraft("d1", "t1", 90, "jane@acme.com")))

	job, responder := newGenerateFixture(trigger, drafts)
	responder.draftFn = func(ai.DraftRequest) (*ai.DraftReply, error) {
		return nil, errors.New("model unavailable")
	}

	stats, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Generated)
	assert.Equal(t, 1, stats.Errors)

	got := drafts.get("d1")
	assert.Equal(t, draftdomain.StatusNeedsDrafting, got.Status)
	assert.Nil(t, got.ScheduledSendAt)
}

func TestGenerateEmptyBodyIsError(t *testing.T) {
	trigger := llmTrigger("t1", 0)
	drafts := &fakeDraftRepo{}
	require.NoError(t, drafts.Create(pendingDraft("d1", "t1", 90, "jane@acme.com")))

	job, responder := newGenerateFixture(trigger, drafts)
	responder.draftFn = func(ai.DraftRequest) (*ai.DraftReply, error) {
		return &ai.DraftReply{Subject: "Re: hi", Body: ""}, nil
	}

	stats, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, draftdomain.StatusNeedsDrafting, drafts.get("d1").Status)
}

func TestGenerateSubjectFallback(t *testing.T) {
	trigger := llmTrigger("t1", 0)
	drafts := &fakeDraftRepo{}
	require.NoError(t, drafts.Create(pendingDraft("d1", "t1", 90, "jane@acme.com")))

	job, responder := newGenerateFixture(trigger, drafts)
	responder.draftFn = func(ai.DraftRequest) (*ai.DraftReply, error) {
		return &ai.DraftReply{Body: "Congrats!"}, nil
	}

	_, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Re: We raised a Series B", drafts.get("d1").Subject)
}

func TestGenerateStyleExamplesReachDrafting(t *testing.T) {
	trigger := llmTrigger("t1", 0)
	drafts := &fakeDraftRepo{}
	require.NoError(t, drafts.Create(pendingDraft("d1", "t1", 90, "jane@acme.com")))

	styles := &fakeStyleRepo{examples: []*triggerdomain.StyleExample{
		{TriggerID: "t1", Subject: "Congrats!", Body: "So happy for you.", Source: triggerdomain.StyleSourceSeed},
	}}

	responder := &fakeResponder{}
	var captured []ai.StyleExample
	responder.draftFn = func(req ai.DraftRequest) (*ai.DraftReply, error) {
		captured = req.StyleExamples
		return &ai.DraftReply{Subject: "Re: hi", Body: "Congrats!"}, nil
	}

	job := NewGenerateJob(
		&fakeSettingsRepo{settings: testSettings()},
		&fakeTriggerRepo{triggers: []*triggerdomain.Trigger{trigger}},
		styles,
		drafts,
		responder,
		scheduler.New(rand.New(rand.NewSource(1))),
		zap.NewNop(),
	)

	_, err := job.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, captured, 1)
	assert.Equal(t, "So happy for you.", captured[0].Body)
	assert.Equal(t, "seed", captured[0].Source)
}
