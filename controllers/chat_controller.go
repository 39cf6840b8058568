package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"oro/metrics"
	"oro/models"
	"oro/services"
)

// Messages returned to clients. Provider and internal details are only logged.
const (
	msgNotConfigured = "Chat assistant is not configured"
	msgInvalidJSON   = "Invalid JSON format"
	msgEmptyMessage  = "Message cannot be empty"
	msgUnexpected    = "An unexpected error occurred"
	msgBodyTooLarge  = "Request body too large"
)

// maxChatBodyBytes caps the request body, chat history included
const maxChatBodyBytes = 1 << 20

// MentalHealthChatHandler answers POST /mental-health-chat
func (c *Controller) MentalHealthChatHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := RequestID(r.Context())
	outcome := metrics.OutcomeSuccess
	defer func() {
		c.metrics.ObserveChat(outcome, time.Since(start))
	}()

	// Credential is checked before the body is read
	if !c.assistant.Configured() {
		outcome = metrics.OutcomeNotConfigured
		log.Printf("[chat] %s rejected: assistant is not configured", requestID)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: msgNotConfigured})
		return
	}

	// Parse request body
	var req models.MentalHealthChatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		outcome = metrics.OutcomeInvalid
		message := msgInvalidJSON
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			message = msgBodyTooLarge
		}
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: message})
		return
	}

	// Validate message
	if strings.TrimSpace(req.Message) == "" {
		outcome = metrics.OutcomeInvalid
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: msgEmptyMessage})
		return
	}

	// Process message through the assistant; a client disconnect cancels the provider call
	result, err := c.assistant.Reply(r.Context(), models.PromptRequest{
		Message: req.Message,
		History: req.ChatHistory,
	})
	if err != nil {
		// Map the error class to a fixed client message, details go to the log
		status, message := http.StatusInternalServerError, msgUnexpected
		var providerErr *services.ProviderError
		switch {
		case errors.Is(err, services.ErrNotConfigured):
			outcome, message = metrics.OutcomeNotConfigured, msgNotConfigured
		case errors.Is(err, services.ErrEmptyMessage):
			outcome, status, message = metrics.OutcomeInvalid, http.StatusBadRequest, msgEmptyMessage
		case errors.As(err, &providerErr):
			outcome = metrics.OutcomeProviderError
			log.Printf("[chat] %s provider failure (%s, status %d, transient %v): %v",
				requestID, providerErr.Provider, providerErr.StatusCode, providerErr.Transient, err)
		default:
			outcome = metrics.OutcomeInternalError
			log.Printf("[chat] %s internal error: %v", requestID, err)
		}
		writeJSON(w, status, models.ErrorResponse{Error: message})
		return
	}

	// Return JSON response
	writeJSON(w, http.StatusOK, models.MentalHealthChatResponse{
		Reply:  result.Reply,
		Source: result.Source,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
