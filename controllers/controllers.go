package controllers

import (
	"log"
	"net/http"

	"oro/metrics"
	"oro/services"

	"github.com/gorilla/mux"
)

// Controller binds the HTTP API to the assistant pipeline
type Controller struct {
	assistant      *services.Assistant
	discordService *services.DiscordService
	metrics        *metrics.Metrics
}

// NewController creates a new controller instance. discordService may be nil.
func NewController(assistant *services.Assistant, discordService *services.DiscordService, m *metrics.Metrics) *Controller {
	if m == nil {
		m = metrics.New()
	}
	assistant.SetMatchRecorder(m)

	return &Controller{
		assistant:      assistant,
		discordService: discordService,
		metrics:        m,
	}
}

// Router configures all endpoints and middleware
func (c *Controller) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(c.requestIDMiddleware, c.accessLogMiddleware)

	router.HandleFunc("/mental-health-chat", c.MentalHealthChatHandler).Methods(http.MethodPost)
	router.HandleFunc("/health", c.HealthHandler).Methods(http.MethodGet)
	router.Handle("/metrics", c.metrics.Handler()).Methods(http.MethodGet)

	return router
}

// StartServices starts all background services (Discord bot, etc.)
func (c *Controller) StartServices(enableDiscord bool) error {
	switch {
	case c.discordService == nil || !enableDiscord:
		log.Printf("Discord service disabled via command line flag")
	case !c.discordService.IsEnabled():
		log.Printf("Discord service requested but not properly configured (missing DISCORD_BOT_TOKEN)")
	default:
		if err := c.discordService.Start(); err != nil {
			log.Printf("Failed to start Discord service: %v", err)
			return err
		}
	}
	return nil
}

// StopServices stops all background services
func (c *Controller) StopServices() error {
	if c.discordService != nil {
		return c.discordService.Stop()
	}
	return nil
}
