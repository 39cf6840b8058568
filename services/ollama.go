package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const providerOllama = "ollama"

// OllamaService handles communication with a local Ollama server
type OllamaService struct {
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
}

// OllamaRequest represents a request to the Ollama generate API
type OllamaRequest struct {
	Model   string                 `json:"model"`
	System  string                 `json:"system,omitempty"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// OllamaResponse represents a response from the Ollama generate API
type OllamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewOllamaService creates a new Ollama service instance
func NewOllamaService(baseURL, model string, temperature float64) *OllamaService {
	if baseURL == "" {
		baseURL = "http://localhost:11434" // Default Ollama URL
	}
	if model == "" {
		model = "tinyllama:latest"
	}

	return &OllamaService{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		// Deadlines come from the caller's context
		httpClient: &http.Client{},
	}
}

// Generate produces a completion with the local model
func (l *OllamaService) Generate(ctx context.Context, system, user string, maxTokens int) (string, error) {
	request := OllamaRequest{
		Model:  l.model,
		System: system,
		Prompt: user,
		Stream: false,
		Options: map[string]interface{}{
			"temperature": l.temperature,
			"num_predict": maxTokens,
		},
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", newProviderError(providerOllama, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", newProviderError(providerOllama, resp.StatusCode, fmt.Errorf("%s", strings.TrimSpace(string(body))))
	}

	var ollamaResp OllamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", newProviderError(providerOllama, 0, fmt.Errorf("failed to decode response: %w", err))
	}

	if ollamaResp.Error != "" {
		return "", newProviderError(providerOllama, 0, fmt.Errorf("LLM returned error: %s", ollamaResp.Error))
	}

	return strings.TrimSpace(ollamaResp.Response), nil
}

// Name returns the provider name
func (l *OllamaService) Name() string {
	return providerOllama
}

// Configured is always true: a local server needs no credential
func (l *OllamaService) Configured() bool {
	return true
}

// IsAvailable checks if the Ollama server answers
func (l *OllamaService) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// GetModel returns the current model
func (l *OllamaService) GetModel() string {
	return l.model
}

// GetStatus returns the status of the Ollama service
func (l *OllamaService) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"provider": providerOllama,
		"base_url": l.baseURL,
		"model":    l.model,
	}

	if l.IsAvailable(context.Background()) {
		status["status"] = "available"
	} else {
		status["status"] = "unavailable"
		status["error"] = "Cannot connect to LLM service"
	}

	return status
}
