package ai

import (
	"context"
	"net"
	"strings"

	"go.uber.org/zap"
)

// FallbackService routes capability calls to Anthropic first and falls back
// to a local Ollama model on connection or quota errors.
type FallbackService struct {
	primary  Responder
	fallback Responder
	logger   *zap.Logger
}

func NewFallbackService(primary, fallback Responder, logger *zap.Logger) *FallbackService {
	return &FallbackService{
		primary:  primary,
		fallback: fallback,
		logger:   logger.Named("ai"),
	}
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := err.(net.Error); ok {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, indicator := range []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
	} {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, indicator := range []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"overloaded",
	} {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

func (f *FallbackService) shouldFallBack(err error) bool {
	return f.fallback != nil && (isConnectionError(err) || isQuotaError(err))
}

func (f *FallbackService) Classify(ctx context.Context, email Email, triggers []TriggerDescriptor) (*Classification, error) {
	result, err := f.primary.Classify(ctx, email, triggers)
	if err == nil {
		return result, nil
	}
	if !f.shouldFallBack(err) {
		return nil, err
	}
	f.logger.Warn("primary classifier unavailable, falling back", zap.Error(err))
	return f.fallback.Classify(ctx, email, triggers)
}

func (f *FallbackService) Draft(ctx context.Context, req DraftRequest) (*DraftReply, error) {
	result, err := f.primary.Draft(ctx, req)
	if err == nil {
		return result, nil
	}
	if !f.shouldFallBack(err) {
		return nil, err
	}
	f.logger.Warn("primary drafter unavailable, falling back", zap.Error(err))
	return f.fallback.Draft(ctx, req)
}
