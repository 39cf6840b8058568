package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"oro/config"
	"oro/controllers"
	"oro/metrics"
	"oro/models"
	"oro/services"
	"oro/utils"

	"github.com/rs/cors"
)

func main() {
	enableDiscord := flag.Bool("discord", false, "Start the Discord bot (requires DISCORD_BOT_TOKEN)")
	provider := flag.String("provider", "", "LLM provider override: openai or ollama")
	flag.Parse()

	if err := utils.LoadEnvWithFallback(); err != nil {
		log.Fatalf("Failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *provider != "" {
		cfg.LLMProvider = config.LLMProvider(*provider)
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
	}

	kb, err := services.LoadKnowledgeBase(cfg.KnowledgeBasePath)
	if err != nil {
		log.Fatalf("Failed to load knowledge base: %v", err)
	}
	log.Printf("Knowledge base loaded with %d entries", kb.Len())

	client, err := services.NewCompletionClient(cfg)
	if err != nil {
		log.Fatalf("Failed to create completion client: %v", err)
	}
	if !client.Configured() {
		log.Printf("WARNING: OPENAI_API_KEY not set, chat requests will be rejected until it is configured")
	}
	if ollama, ok := client.(*services.OllamaService); ok && !ollama.IsAvailable(context.Background()) {
		log.Printf("WARNING: Ollama not reachable at %s", cfg.OllamaBaseURL)
	}
	generator := services.NewRetryingClient(client, cfg.GenerationTimeout, cfg.GenerationMaxRetries, cfg.RetryInitialInterval)

	var retriever services.Retriever
	if cfg.Augmentation == config.AugmentationRetrieval && cfg.HasCredential() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		index, err := services.NewVectorIndex(ctx, kb, services.NewEmbeddingFunc(cfg), cfg.RetrievalMinSimilarity)
		cancel()
		if err != nil {
			log.Fatalf("Failed to build retrieval index: %v", err)
		}
		retriever = index
	}

	assistant, err := services.NewAssistant(kb, retriever, generator, services.OptionsFromConfig(cfg))
	if err != nil {
		log.Fatalf("Failed to create assistant: %v", err)
	}

	var discordService *services.DiscordService
	if *enableDiscord {
		discordService = services.NewDiscordService(assistant, models.DiscordConfig{
			Token:         cfg.DiscordBotToken,
			CommandPrefix: cfg.DiscordCommandPrefix,
			HistoryLimit:  cfg.DiscordHistoryLimit,
		})
	}

	controller := controllers.NewController(assistant, discordService, metrics.New())
	if err := controller.StartServices(*enableDiscord); err != nil {
		log.Printf("Continuing without Discord: %v", err)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{controllers.RequestIDHeader},
	})

	// condense, retrieval and generation may each use every attempt
	attempts := time.Duration(cfg.GenerationMaxRetries + 1)
	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           c.Handler(controller.Router()),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      3*attempts*cfg.GenerationTimeout + 10*time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s (provider %s, augmentation %s)", cfg.Port, client.Name(), cfg.Augmentation)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if err := controller.StopServices(); err != nil {
		log.Printf("Error stopping services: %v", err)
	}
}
