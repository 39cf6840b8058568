package controllers

import (
	"net/http"

	"oro/models"
)

// HealthHandler provides a health check endpoint
func (c *Controller) HealthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"component": "mental-health-assistant",
		"endpoints": []string{"/mental-health-chat", "/health", "/metrics"},
		"assistant": c.assistant.GetStatus(),
	}
	if c.discordService != nil {
		health["discord"] = c.discordService.GetStatus()
	}
	if !c.assistant.Configured() {
		health["status"] = "degraded"
	}

	writeJSON(w, http.StatusOK, models.Metadata(health))
}
