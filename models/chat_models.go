package models

// ChatMessage is one prior turn of the conversation, supplied by the caller
type ChatMessage struct {
	Text   string `json:"text"`
	IsUser bool   `json:"isUser"`
	Source string `json:"source,omitempty"` // Only on assistant turns that used a knowledge entry
}

// MentalHealthChatRequest is the body of POST /mental-health-chat
type MentalHealthChatRequest struct {
	Message     string        `json:"message"`
	ChatHistory []ChatMessage `json:"chatHistory,omitempty"`
}

// MentalHealthChatResponse is the success body of POST /mental-health-chat
type MentalHealthChatResponse struct {
	Reply  string `json:"reply"`
	Source string `json:"source,omitempty"`
}

// PromptRequest is the per-call input of the assistant pipeline
type PromptRequest struct {
	Message string
	History []ChatMessage // Oldest first
}

// PromptResult is the per-call output of the assistant pipeline
type PromptResult struct {
	Reply  string
	Source string // Empty when no knowledge entry was used
}
