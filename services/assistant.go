package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"oro/config"
	"oro/models"
)

// FallbackReply is returned when the model produces an empty completion
const FallbackReply = "I'm sorry, I couldn't generate a response."

// MatchRecorder observes knowledge-base usage per request
type MatchRecorder interface {
	RecordMatch(augmentation string, matched bool)
}

// AssistantOptions configures the prompt pipeline
type AssistantOptions struct {
	Augmentation      config.Augmentation
	MaxReplyTokens    int
	CondenseMaxTokens int
	CondenseHistory   bool
	HistoryWindow     int
	RetrievalTopK     int

	// Bounds on each similarity search; the query embedding is a provider call
	RetrievalTimeout     time.Duration
	RetrievalMaxRetries  int
	RetryInitialInterval time.Duration
}

// OptionsFromConfig extracts the pipeline options from the service config
func OptionsFromConfig(cfg *config.Config) AssistantOptions {
	return AssistantOptions{
		Augmentation:      cfg.Augmentation,
		MaxReplyTokens:    cfg.MaxReplyTokens,
		CondenseMaxTokens: cfg.CondenseMaxTokens,
		CondenseHistory:   cfg.CondenseHistory,
		HistoryWindow:     cfg.HistoryWindow,
		RetrievalTopK:     cfg.RetrievalTopK,

		RetrievalTimeout:     cfg.GenerationTimeout,
		RetrievalMaxRetries:  cfg.GenerationMaxRetries,
		RetryInitialInterval: cfg.RetryInitialInterval,
	}
}

// Assistant answers chat messages: it validates, optionally condenses the
// question against history, augments it from the knowledge base and generates a reply.
// It holds no per-request state and is safe for concurrent use.
type Assistant struct {
	knowledge *KnowledgeBase
	retriever Retriever
	client    CompletionClient
	opts      AssistantOptions
	recorder  MatchRecorder
	startTime time.Time
}

// NewAssistant creates the pipeline. retriever may be nil unless augmentation is retrieval.
func NewAssistant(knowledge *KnowledgeBase, retriever Retriever, client CompletionClient, opts AssistantOptions) (*Assistant, error) {
	if client == nil {
		return nil, fmt.Errorf("completion client is required")
	}
	if opts.Augmentation == "" {
		opts.Augmentation = config.AugmentationKeyword
	}
	if opts.MaxReplyTokens <= 0 {
		opts.MaxReplyTokens = 150
	}
	if opts.CondenseMaxTokens <= 0 {
		opts.CondenseMaxTokens = 100
	}
	if opts.RetrievalTopK <= 0 {
		opts.RetrievalTopK = 3
	}
	if opts.RetrievalTimeout <= 0 {
		opts.RetrievalTimeout = 30 * time.Second
	}

	switch opts.Augmentation {
	case config.AugmentationNone:
	case config.AugmentationKeyword:
		if knowledge == nil {
			return nil, fmt.Errorf("keyword augmentation needs a knowledge base")
		}
	case config.AugmentationRetrieval:
		if retriever == nil && client.Configured() {
			return nil, fmt.Errorf("retrieval augmentation needs a retriever")
		}
	default:
		return nil, fmt.Errorf("unknown augmentation: %s", opts.Augmentation)
	}

	return &Assistant{
		knowledge: knowledge,
		retriever: retriever,
		client:    client,
		opts:      opts,
		startTime: time.Now(),
	}, nil
}

// SetMatchRecorder attaches a metrics sink; call before serving
func (a *Assistant) SetMatchRecorder(recorder MatchRecorder) {
	a.recorder = recorder
}

// Configured reports whether the completion backend has its credential
func (a *Assistant) Configured() bool {
	return a.client.Configured()
}

// Reply runs the pipeline for one message. Errors are ErrNotConfigured,
// ErrEmptyMessage, a *ProviderError or an internal error; none is meant for end users.
func (a *Assistant) Reply(ctx context.Context, req models.PromptRequest) (models.PromptResult, error) {
	// Configuration before validation
	if !a.client.Configured() {
		return models.PromptResult{}, ErrNotConfigured
	}
	if strings.TrimSpace(req.Message) == "" {
		return models.PromptResult{}, ErrEmptyMessage
	}

	// Rewrite follow-ups into a standalone question
	question := req.Message
	if a.opts.Augmentation != config.AugmentationNone && a.opts.CondenseHistory && len(req.History) > 0 {
		condensed, err := a.condense(ctx, req.Message, req.History)
		if err != nil {
			return models.PromptResult{}, fmt.Errorf("condensing question: %w", err)
		}
		question = condensed
	}

	// Match or retrieve knowledge and compose the prompt
	prompt, source, err := a.buildPrompt(ctx, question)
	if err != nil {
		return models.PromptResult{}, err
	}

	// Generate the reply
	reply, err := a.client.Generate(ctx, prompt.System, prompt.User, a.opts.MaxReplyTokens)
	if err != nil {
		return models.PromptResult{}, fmt.Errorf("generating reply: %w", err)
	}
	if strings.TrimSpace(reply) == "" {
		reply = FallbackReply
	}

	return models.PromptResult{Reply: reply, Source: source}, nil
}

// condense rewrites message into a standalone question using the conversation so far
func (a *Assistant) condense(ctx context.Context, message string, history []models.ChatMessage) (string, error) {
	transcript := RenderHistory(history, a.opts.HistoryWindow)
	prompt := ComposeCondense(transcript, message)

	condensed, err := a.client.Generate(ctx, prompt.System, prompt.User, a.opts.CondenseMaxTokens)
	if err != nil {
		return "", err
	}
	condensed = strings.TrimSpace(condensed)
	if condensed == "" {
		return "", fmt.Errorf("model returned an empty standalone question")
	}
	return condensed, nil
}

// buildPrompt augments question according to the configured mode and returns the source used
func (a *Assistant) buildPrompt(ctx context.Context, question string) (Prompt, string, error) {
	switch a.opts.Augmentation {
	case config.AugmentationKeyword:
		entry, ok := a.knowledge.Match(question)
		a.recordMatch(ok)
		if !ok {
			return Compose(question, nil), "", nil
		}
		log.Printf("[chat] knowledge entry matched: %s", entry.Source)
		return Compose(question, &entry), entry.Source, nil

	case config.AugmentationRetrieval:
		var results []models.RetrievedEntry
		err := retryTransient(ctx, "retrieval", a.opts.RetrievalTimeout, a.opts.RetrievalMaxRetries, a.opts.RetryInitialInterval,
			func(attemptCtx context.Context) error {
				var err error
				results, err = a.retriever.Search(attemptCtx, question, a.opts.RetrievalTopK)
				return err
			})
		if err != nil {
			return Prompt{}, "", fmt.Errorf("retrieving context: %w", err)
		}
		a.recordMatch(len(results) > 0)
		if len(results) == 0 {
			return Compose(question, nil), "", nil
		}
		entries := make([]models.KnowledgeEntry, len(results))
		for i, r := range results {
			entries[i] = r.Entry
		}
		log.Printf("[chat] retrieved %d knowledge entries, top: %s", len(entries), entries[0].Source)
		return ComposeRetrieval(question, entries), entries[0].Source, nil

	default:
		return Compose(question, nil), "", nil
	}
}

func (a *Assistant) recordMatch(matched bool) {
	if a.recorder != nil {
		a.recorder.RecordMatch(string(a.opts.Augmentation), matched)
	}
}

// GetStatus returns the current status of the assistant
func (a *Assistant) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"status":           "active",
		"uptime":           time.Since(a.startTime).String(),
		"augmentation":     string(a.opts.Augmentation),
		"max_reply_tokens": a.opts.MaxReplyTokens,
		"condense_history": a.opts.CondenseHistory,
		"configured":       a.client.Configured(),
		"provider":         a.client.GetStatus(),
	}

	if a.knowledge != nil {
		status["knowledge_entries"] = a.knowledge.Len()
	}
	if index, ok := a.retriever.(*VectorIndex); ok && index != nil {
		status["retrieval"] = index.GetStatus()
	}
	if !a.client.Configured() {
		status["status"] = "unconfigured"
	}

	return status
}
