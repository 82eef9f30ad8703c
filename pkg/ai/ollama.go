package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// OllamaService implements Responder using a local Ollama model.
type OllamaService struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaService(baseURL, model string) *OllamaService {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	return &OllamaService{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{},
	}
}

type ollamaResponse struct {
	Response string `json:"response"`
}

func (o *OllamaService) generate(ctx context.Context, system, user string, numPredict int) (string, error) {
	payload := map[string]interface{}{
		"model":  o.model,
		"system": system,
		"prompt": user,
		"stream": false,
		"format": "json",
		"options": map[string]interface{}{
			"temperature": 0.3,
			"num_predict": numPredict,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result ollamaResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Response, nil
}

func (o *OllamaService) Classify(ctx context.Context, email Email, triggers []TriggerDescriptor) (*Classification, error) {
	if len(email.Body) > classifyBodyLimit {
		email.Body = email.Body[:classifyBodyLimit]
	}
	system, user := buildClassifyPrompt(email, triggers)

	text, err := o.generate(ctx, system, user, classifyMaxTokens)
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

func (o *OllamaService) Draft(ctx context.Context, req DraftRequest) (*DraftReply, error) {
	system, user := buildDraftPrompt(req)

	text, err := o.generate(ctx, system, user, draftMaxTokens)
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
