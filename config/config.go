package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// LLMProvider selects the text-generation backend
type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderOllama LLMProvider = "ollama"
)

// Augmentation selects how the chat prompt is enriched before generation
type Augmentation string

const (
	AugmentationNone      Augmentation = "none"
	AugmentationKeyword   Augmentation = "keyword"
	AugmentationRetrieval Augmentation = "retrieval"
)

// Config holds every setting of the chat service, read from the environment
type Config struct {
	Port            string        `env:"PORT" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// LLM settings
	LLMProvider          LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey         string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL        string      `env:"OPENAI_BASE_URL"`
	OpenAIModel          string      `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	OpenAIEmbeddingModel string      `env:"OPENAI_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	OllamaBaseURL        string      `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	OllamaModel          string      `env:"OLLAMA_MODEL" envDefault:"tinyllama:latest"`
	OllamaEmbeddingModel string      `env:"OLLAMA_EMBEDDING_MODEL" envDefault:"nomic-embed-text"`
	Temperature          float64     `env:"TEMPERATURE" envDefault:"0.7"`

	// Generation limits
	MaxReplyTokens       int           `env:"MAX_REPLY_TOKENS" envDefault:"150"`
	CondenseMaxTokens    int           `env:"CONDENSE_MAX_TOKENS" envDefault:"100"`
	GenerationTimeout    time.Duration `env:"GENERATION_TIMEOUT" envDefault:"30s"`
	GenerationMaxRetries int           `env:"GENERATION_MAX_RETRIES" envDefault:"1"`
	RetryInitialInterval time.Duration `env:"RETRY_INITIAL_INTERVAL" envDefault:"500ms"`

	// Prompt assembly
	Augmentation           Augmentation `env:"AUGMENTATION" envDefault:"keyword"`
	KnowledgeBasePath      string       `env:"KNOWLEDGE_BASE_PATH"`
	CondenseHistory        bool         `env:"CONDENSE_HISTORY" envDefault:"true"`
	HistoryWindow          int          `env:"HISTORY_WINDOW" envDefault:"6"`
	RetrievalTopK          int          `env:"RETRIEVAL_TOP_K" envDefault:"3"`
	RetrievalMinSimilarity float32      `env:"RETRIEVAL_MIN_SIMILARITY" envDefault:"0"`

	// Discord (optional)
	DiscordBotToken      string `env:"DISCORD_BOT_TOKEN"`
	DiscordCommandPrefix string `env:"DISCORD_COMMAND_PREFIX" envDefault:"!mind "`
	DiscordHistoryLimit  int    `env:"DISCORD_HISTORY_LIMIT" envDefault:"10"`
}

// Load parses the environment into a Config and validates it
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges. A missing OPENAI_API_KEY is not a load error:
// the chat endpoint reports it per request instead.
func (c *Config) Validate() error {
	c.LLMProvider = LLMProvider(strings.ToLower(strings.TrimSpace(string(c.LLMProvider))))
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("LLM_PROVIDER must be one of openai, ollama (got %q)", c.LLMProvider)
	}

	c.Augmentation = Augmentation(strings.ToLower(strings.TrimSpace(string(c.Augmentation))))
	switch c.Augmentation {
	case AugmentationNone, AugmentationKeyword, AugmentationRetrieval:
	default:
		return fmt.Errorf("AUGMENTATION must be one of none, keyword, retrieval (got %q)", c.Augmentation)
	}

	if c.MaxReplyTokens <= 0 {
		return fmt.Errorf("MAX_REPLY_TOKENS must be > 0")
	}
	if c.CondenseMaxTokens <= 0 {
		return fmt.Errorf("CONDENSE_MAX_TOKENS must be > 0")
	}
	if c.GenerationTimeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT must be > 0")
	}
	if c.GenerationMaxRetries < 0 {
		return fmt.Errorf("GENERATION_MAX_RETRIES must be >= 0")
	}
	if c.HistoryWindow < 0 {
		return fmt.Errorf("HISTORY_WINDOW must be >= 0")
	}
	if c.RetrievalTopK <= 0 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be > 0")
	}
	if c.DiscordHistoryLimit <= 0 || c.DiscordHistoryLimit > 100 {
		return fmt.Errorf("DISCORD_HISTORY_LIMIT must be between 1 and 100")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("TEMPERATURE must be between 0 and 2")
	}

	if !strings.HasPrefix(c.Port, ":") {
		c.Port = ":" + c.Port
	}
	return nil
}

// HasCredential reports whether the selected provider can be called at all
func (c *Config) HasCredential() bool {
	if c.LLMProvider == ProviderOpenAI {
		return strings.TrimSpace(c.OpenAIAPIKey) != ""
	}
	return true
}
