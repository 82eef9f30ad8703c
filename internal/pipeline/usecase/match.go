package usecase

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	triggerdomain "github.com/replyline/replyline/internal/trigger/domain"
	"github.com/replyline/replyline/pkg/ai"
	"github.com/replyline/replyline/pkg/gmail"
)

// filterConfidence is assigned to filter-mode matches. Gmail evaluated the
// query; there is no model uncertainty to report.
const filterConfidence = 100

// match is the outcome of evaluating one inbound message against the
// enabled triggers.
type match struct {
	Trigger        *triggerdomain.Trigger
	Confidence     int
	RecipientEmail string
	RecipientName  string
	Reasoning      string
}

// filterMatch builds the verdict for a message that arrived through a
// trigger's Gmail filter query. The recipient is the parsed sender.
func filterMatch(trigger *triggerdomain.Trigger, msg *gmail.Message) *match {
	email, name := parseSender(msg.From)
	return &match{
		Trigger:        trigger,
		Confidence:     filterConfidence,
		RecipientEmail: email,
		RecipientName:  name,
		Reasoning:      "matched gmail filter: " + trigger.GmailFilterQuery,
	}
}

// classifyMatch runs the language-model classifier against the llm-mode
// triggers. A non-match returns (nil, nil). Any verdict that fails schema
// validation, or that names an unknown trigger, is an error; the caller
// leaves the message unprocessed so a later run can retry.
func classifyMatch(ctx context.Context, responder ai.Responder, msg *gmail.Message, llmTriggers []*triggerdomain.Trigger) (*match, error) {
	descriptors := make([]ai.TriggerDescriptor, 0, len(llmTriggers))
	byID := make(map[string]*triggerdomain.Trigger, len(llmTriggers))
	for _, t := range llmTriggers {
		descriptors = append(descriptors, ai.TriggerDescriptor{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			EmailType:   string(t.EmailType),
		})
		byID[t.ID] = t
	}

	verdict, err := responder.Classify(ctx, ai.Email{
		From:    msg.From,
		Subject: msg.Subject,
		Body:    msg.Body,
	}, descriptors)
	if err != nil {
		return nil, err
	}
	if err := verdict.Validate(); err != nil {
		return nil, err
	}
	if !verdict.Matched {
		return nil, nil
	}

	trigger, ok := byID[verdict.TriggerID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown trigger id %q", ai.ErrInvalidResponse, verdict.TriggerID)
	}

	// The extracted recipient is often not the sender and may be absent
	// entirely. An empty recipient stays empty so the draft cannot
	// auto-approve and waits for a reviewer to fill it in.
	return &match{
		Trigger:        trigger,
		Confidence:     verdict.Confidence,
		RecipientEmail: verdict.RecipientEmail,
		RecipientName:  verdict.RecipientName,
		Reasoning:      verdict.Reasoning,
	}, nil
}

// parseSender splits an RFC 5322 From header into address and display name.
// Unparseable headers fall back to the raw value as the address.
func parseSender(from string) (email, name string) {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return strings.TrimSpace(from), ""
	}
	return addr.Address, addr.Name
}
