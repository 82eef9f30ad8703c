package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	anthropicEndpoint     = "https://api.anthropic.com/v1/messages"
	anthropicVersion      = "2023-06-01"
	classifyModel         = "claude-haiku-4-5-20251001"
	draftModel            = "claude-sonnet-4-5-20250929"
	classifyMaxTokens     = 500
	draftMaxTokens        = 1500
	classifyBodyLimit     = 2000
)

// AnthropicService implements Responder against the Anthropic Messages API.
type AnthropicService struct {
	apiKey string
	client *http.Client
}

func NewAnthropicService(apiKey string) *AnthropicService {
	return &AnthropicService{
		apiKey: apiKey,
		client: &http.Client{},
	}
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (a *AnthropicService) complete(ctx context.Context, model string, maxTokens int, system, user string) (string, error) {
	payload := anthropicRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []anthropicMessage{{Role: "user", Content: user}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicEndpoint, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result anthropicResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	for _, block := range result.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("%w: no text block in response", ErrInvalidResponse)
}

func (a *AnthropicService) Classify(ctx context.Context, email Email, triggers []TriggerDescriptor) (*Classification, error) {
	if len(email.Body) > classifyBodyLimit {
		email.Body = email.Body[:classifyBodyLimit]
	}
	system, user := buildClassifyPrompt(email, triggers)

	text, err := a.complete(ctx, classifyModel, classifyMaxTokens, system, user)
	if err != nil {
		return nil, err
	}

	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var result Classification
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return &result, nil
}

func (a *AnthropicService) Draft(ctx context.Context, req DraftRequest) (*DraftReply, error) {
	system, user := buildDraftPrompt(req)

	text, err := a.complete(ctx, draftModel, draftMaxTokens, system, user)
	if err != nil {
		return nil, err
	}

	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var result DraftReply
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return &result, nil
}
