package services

import (
	"context"
	"errors"
	"fmt"
	"net"

	"oro/config"
)

// CompletionClient is a hosted or local text-generation backend
type CompletionClient interface {
	// Generate returns the completion for a system and user instruction pair,
	// capped at maxTokens output tokens.
	Generate(ctx context.Context, system, user string, maxTokens int) (string, error)
	Name() string
	// Configured reports whether the backend has the credentials it needs
	Configured() bool
	GetStatus() map[string]interface{}
}

// ProviderError wraps a failure of the completion backend.
// Its message is for server logs only.
type ProviderError struct {
	Provider   string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s provider error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s provider error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a provider failure worth retrying
func IsTransient(err error) bool {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Transient
	}
	return false
}

// newProviderError classifies err: 5xx, timeouts and network failures are transient
func newProviderError(provider string, statusCode int, err error) *ProviderError {
	transient := statusCode >= 500
	if statusCode == 0 {
		var netErr net.Error
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			transient = true
		case errors.Is(err, context.Canceled):
			transient = false
		case errors.As(err, &netErr):
			transient = true
		}
	}
	return &ProviderError{Provider: provider, StatusCode: statusCode, Transient: transient, Err: err}
}

// NewCompletionClient creates the backend selected by cfg.LLMProvider
func NewCompletionClient(cfg *config.Config) (CompletionClient, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, float32(cfg.Temperature)), nil
	case config.ProviderOllama:
		return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.Temperature), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLMProvider)
	}
}
