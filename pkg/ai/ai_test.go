package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClassificationValidate(t *testing.T) {
	tests := []struct {
		name    string
		verdict Classification
		wantErr bool
	}{
		{name: "clean match", verdict: Classification{Matched: true, TriggerID: "t1", Confidence: 90}},
		{name: "clean non-match", verdict: Classification{Matched: false, Confidence: 10}},
		{name: "confidence too high", verdict: Classification{Matched: true, TriggerID: "t1", Confidence: 150}, wantErr: true},
		{name: "negative confidence", verdict: Classification{Confidence: -1}, wantErr: true},
		{name: "matched without trigger", verdict: Classification{Matched: true, Confidence: 90}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.verdict.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidResponse)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDraftReplyValidate(t *testing.T) {
	assert.NoError(t, (&DraftReply{Subject: "Re: hi", Body: "Thanks!"}).Validate())
	assert.NoError(t, (&DraftReply{Body: "Thanks!"}).Validate(), "subject is optional")
	assert.ErrorIs(t, (&DraftReply{Subject: "Re: hi"}).Validate(), ErrInvalidResponse)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "bare object", input: `{"matched": true}`, want: `{"matched": true}`},
		{
			name:  "fenced object",
			input: "Here is my analysis:\n```json\n{\"matched\": false}\n```\nLet me know.",
			want:  `{"matched": false}`,
		},
		{
			name:  "multiline object",
			input: "{\n  \"subject\": \"Re: hi\",\n  \"body\": \"Thanks\"\n}",
			want:  "{\n  \"subject\": \"Re: hi\",\n  \"body\": \"Thanks\"\n}",
		},
		{name: "no object", input: "I cannot classify this email.", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildDraftPrompt(t *testing.T) {
	req := DraftRequest{
		Trigger: TriggerDescriptor{
			Name:         "funding announcements",
			Description:  "congratulate contacts on funding rounds",
			EmailType:    "congratulatory",
			SystemPrompt: "Always mention the company by name.",
		},
		Email: Email{
			From:    "jane@acme.com",
			Subject: "We raised a Series B",
			Body:    "Excited to share the news!",
		},
		RecipientName:  "Jane",
		RecipientEmail: "jane@acme.com",
		StyleExamples: []StyleExample{
			{Subject: "Congrats!", Body: "So happy for you.", Source: "seed"},
		},
	}

	system, user := buildDraftPrompt(req)

	assert.Contains(t, system, "congratulatory")
	assert.Contains(t, system, "Always mention the company by name.")
	assert.Contains(t, system, "So happy for you.")
	assert.Contains(t, user, "We raised a Series B")
	assert.Contains(t, user, "Jane (jane@acme.com)")
}

func TestBuildDraftPromptWithoutExamples(t *testing.T) {
	system, _ := buildDraftPrompt(DraftRequest{
		Trigger: TriggerDescriptor{Name: "welcome", EmailType: "welcome"},
		Email:   Email{Subject: "hi"},
	})
	assert.Contains(t, system, "No examples yet")
}

func TestBuildClassifyPromptOmitsSystemPrompt(t *testing.T) {
	// Per-trigger drafting instructions are not the classifier's business
	// and must not leak into its trigger descriptors.
	system, _ := buildClassifyPrompt(Email{Subject: "hi"}, []TriggerDescriptor{
		{ID: "t1", Name: "funding", Description: "funding rounds", EmailType: "congratulatory", SystemPrompt: "secret drafting instructions"},
	})
	assert.Contains(t, system, "funding rounds")
	assert.NotContains(t, system, "secret drafting instructions")
}

type stubResponder struct {
	classifyErr error
	draftErr    error
	calls       int
}

func (s *stubResponder) Classify(context.Context, Email, []TriggerDescriptor) (*Classification, error) {
	s.calls++
	if s.classifyErr != nil {
		return nil, s.classifyErr
	}
	return &Classification{Matched: false}, nil
}

func (s *stubResponder) Draft(context.Context, DraftRequest) (*DraftReply, error) {
	s.calls++
	if s.draftErr != nil {
		return nil, s.draftErr
	}
	return &DraftReply{Body: "ok"}, nil
}

func TestFallbackOnQuotaError(t *testing.T) {
	primary := &stubResponder{classifyErr: errors.New("429 too many requests")}
	secondary := &stubResponder{}
	svc := NewFallbackService(primary, secondary, zap.NewNop())

	verdict, err := svc.Classify(context.Background(), Email{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, verdict)
	assert.Equal(t, 1, secondary.calls)
}

func TestFallbackOnConnectionError(t *testing.T) {
	primary := &stubResponder{draftErr: errors.New("dial tcp 10.0.0.1:443: connection refused")}
	secondary := &stubResponder{}
	svc := NewFallbackService(primary, secondary, zap.NewNop())

	reply, err := svc.Draft(context.Background(), DraftRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", reply.Body)
}

func TestNoFallbackOnSemanticError(t *testing.T) {
	primary := &stubResponder{classifyErr: errors.New("invalid request: unknown model")}
	secondary := &stubResponder{}
	svc := NewFallbackService(primary, secondary, zap.NewNop())

	_, err := svc.Classify(context.Background(), Email{}, nil)
	require.Error(t, err)
	assert.Equal(t, 0, secondary.calls, "a semantic failure must surface, not fall back")
}
