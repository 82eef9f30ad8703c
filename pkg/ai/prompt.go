package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const classifySystemPrompt = `You are an email classifier for a CEO's inbox. Analyze incoming emails and determine if they match any of the defined triggers. If matched, extract the recipient information (the person the CEO should send a response TO - this is often mentioned in the email body, not the sender).

Rules:
- Only match if clearly relevant to a trigger
- Confidence 0-100: 90+ = very clear match, 70-89 = likely match, below 70 = uncertain
- Extract recipient email and name if mentioned in the email
- If no match, set matched=false and trigger_id=null

Respond with a JSON object:
{"matched": bool, "trigger_id": string|null, "confidence": 0-100, "recipient_email": string|null, "recipient_name": string|null, "reasoning": string}`

func buildClassifyPrompt(email Email, triggers []TriggerDescriptor) (system, user string) {
	descriptors, _ := json.MarshalIndent(triggers, "", "  ")
	system = classifySystemPrompt + "\n\nAvailable triggers:\n" + string(descriptors)
	user = fmt.Sprintf("From: %s\nSubject: %s\n\n%s", email.From, email.Subject, email.Body)
	return system, user
}

func buildDraftPrompt(req DraftRequest) (system, user string) {
	var sb strings.Builder
	sb.WriteString(`You are drafting an email as a CEO. Write in the CEO's voice and style based on the provided examples. The email should be:
- Warm but professional
- Personal and specific to the situation
- Concise (2-4 paragraphs)
- Match the tone and patterns from the style examples

`)
	fmt.Fprintf(&sb, "Email type: %s\n", req.Trigger.EmailType)
	fmt.Fprintf(&sb, "Trigger: %s - %s\n", req.Trigger.Name, req.Trigger.Description)
	if req.Trigger.SystemPrompt != "" {
		sb.WriteString("\nAdditional instructions:\n" + req.Trigger.SystemPrompt + "\n")
	}
	sb.WriteString("\nRespond with a JSON object: { \"subject\": \"...\", \"body\": \"...\" }\n")

	if len(req.StyleExamples) > 0 {
		sb.WriteString("\nStyle examples for this trigger:\n")
		for _, e := range req.StyleExamples {
			fmt.Fprintf(&sb, "\n--- Example (%s) ---\nSubject: %s\n\n%s\n--- End Example ---\n", e.Source, e.Subject, e.Body)
		}
	} else {
		sb.WriteString("\nNo examples yet. Write a warm, professional email.\n")
	}

	recipient := req.RecipientName
	if recipient == "" {
		recipient = "the recipient"
	}
	if req.RecipientEmail != "" {
		recipient = fmt.Sprintf("%s (%s)", recipient, req.RecipientEmail)
	}

	user = fmt.Sprintf(`Trigger email received:
From: %s
Subject: %s
Body: %s

Draft a response email from the CEO to: %s`, req.Email.From, req.Email.Subject, req.Email.Body, recipient)

	return sb.String(), user
}

var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// extractJSON pulls the first JSON object out of a model response, which may
// be wrapped in prose or code fences.
func extractJSON(text string) (string, error) {
	match := jsonBlockRe.FindString(text)
	if match == "" {
		return "", fmt.Errorf("%w: no JSON object in response", ErrInvalidResponse)
	}
	return match, nil
}
