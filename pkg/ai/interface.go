package ai

import (
	"context"
	"errors"
	"fmt"
)

// Email is the inbound email material given to the classifier.
type Email struct {
	From    string
	Subject string
	Body    string
}

// TriggerDescriptor is the slice of a trigger the capabilities need.
type TriggerDescriptor struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	EmailType    string `json:"email_type"`
	SystemPrompt string `json:"-"`
}

// StyleExample biases drafting toward the CEO's voice.
type StyleExample struct {
	Subject string
	Body    string
	Source  string
}

// Classification is the schema-validated verdict of the classification
// capability. The model output is JSON; anything that fails Validate is a
// per-item processing error, never a silent match.
type Classification struct {
	Matched        bool   `json:"matched"`
	TriggerID      string `json:"trigger_id"`
	Confidence     int    `json:"confidence"`
	RecipientEmail string `json:"recipient_email"`
	RecipientName  string `json:"recipient_name"`
	Reasoning      string `json:"reasoning"`
}

var ErrInvalidResponse = errors.New("capability returned an invalid response")

func (c *Classification) Validate() error {
	if c.Confidence < 0 || c.Confidence > 100 {
		return fmt.Errorf("%w: confidence %d out of range", ErrInvalidResponse, c.Confidence)
	}
	if c.Matched && c.TriggerID == "" {
		return fmt.Errorf("%w: matched without a trigger id", ErrInvalidResponse)
	}
	return nil
}

// DraftRequest is the input to the drafting capability.
type DraftRequest struct {
	Trigger        TriggerDescriptor
	Email          Email
	RecipientName  string
	RecipientEmail string
	StyleExamples  []StyleExample
}

// DraftReply is the drafting capability's output. Subject is optional; an
// empty body fails validation.
type DraftReply struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (d *DraftReply) Validate() error {
	if d.Body == "" {
		return fmt.Errorf("%w: empty draft body", ErrInvalidResponse)
	}
	return nil
}

// Responder is the interface for the classification and drafting
// capabilities. Implement this to add new providers (Anthropic, Ollama, ...).
type Responder interface {
	Classify(ctx context.Context, email Email, triggers []TriggerDescriptor) (*Classification, error)
	Draft(ctx context.Context, req DraftRequest) (*DraftReply, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOllama    ProviderType = "ollama"
	ProviderAuto      ProviderType = "auto"
)
