package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const providerOpenAI = "openai"

// OpenAIService generates replies with the OpenAI chat completions API
type OpenAIService struct {
	client      *openai.Client
	apiKey      string
	baseURL     string
	model       string
	temperature float32
}

// NewOpenAIService creates a new OpenAI service instance
func NewOpenAIService(apiKey, baseURL, model string, temperature float32) *OpenAIService {
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIService{
		client:      openai.NewClientWithConfig(cfg),
		apiKey:      apiKey,
		baseURL:     cfg.BaseURL,
		model:       model,
		temperature: temperature,
	}
}

// Generate sends one system and one user message and returns the first choice
func (o *OpenAIService) Generate(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if !o.Configured() {
		return "", ErrNotConfigured
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: o.temperature,
	})
	if err != nil {
		return "", newProviderError(providerOpenAI, openAIStatusCode(err), err)
	}

	if len(resp.Choices) == 0 {
		return "", newProviderError(providerOpenAI, 0, fmt.Errorf("no response choices"))
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// openAIStatusCode extracts the HTTP status from go-openai errors, 0 if none
func openAIStatusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// Name returns the provider name
func (o *OpenAIService) Name() string {
	return providerOpenAI
}

// Configured reports whether an API key is set
func (o *OpenAIService) Configured() bool {
	return strings.TrimSpace(o.apiKey) != ""
}

// GetModel returns the current model
func (o *OpenAIService) GetModel() string {
	return o.model
}

// GetStatus returns the status of the OpenAI service
func (o *OpenAIService) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"provider": providerOpenAI,
		"base_url": o.baseURL,
		"model":    o.model,
	}

	if o.Configured() {
		status["status"] = "available"
		// Mask API key for security
		if len(o.apiKey) > 8 {
			status["api_key"] = o.apiKey[:4] + "..." + o.apiKey[len(o.apiKey)-4:]
		} else {
			status["api_key"] = "***"
		}
	} else {
		status["status"] = "unavailable"
		status["error"] = "OPENAI_API_KEY not set"
	}

	return status
}
