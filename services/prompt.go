package services

import (
	"fmt"
	"strings"

	"oro/models"
)

// Prompt is a system instruction plus a user instruction
type Prompt struct {
	System string
	User   string
}

const (
	// BaseSystemPrompt is the assistant persona
	BaseSystemPrompt = "You are a helpful mental health assistant. " +
		"Provide a concise, supportive response in about two sentences. " +
		"Do not mention any websites, articles or sources directly. " +
		"You are smart and very motivating and want to give the best advice to the user. " +
		"You are not a clinician and never give a diagnosis."

	knowledgeInstruction = " Use the following information to inform your response, but summarize and personalize it:"

	retrievalInstruction = " Use the following pieces of context to answer the question at the end. " +
		"If the context does not help, say that you don't know and suggest speaking with a mental health professional."

	condenseSystemPrompt = "You rewrite follow up questions into standalone questions. " +
		"Reply with the standalone question only."
)

// Compose builds the prompt for message, injecting matched information when present.
// The entry source is never included.
func Compose(message string, matched *models.KnowledgeEntry) Prompt {
	if matched == nil {
		return Prompt{System: BaseSystemPrompt, User: message}
	}

	return Prompt{
		System: BaseSystemPrompt + knowledgeInstruction,
		User: fmt.Sprintf("Information: %s\n\nUser message: %s\n\nProvide a helpful, personalized response in about two sentences.",
			matched.Information, message),
	}
}

// ComposeRetrieval builds the prompt for question from similarity-search results
func ComposeRetrieval(question string, entries []models.KnowledgeEntry) Prompt {
	if len(entries) == 0 {
		return Compose(question, nil)
	}

	var context strings.Builder
	for i, entry := range entries {
		if i > 0 {
			context.WriteString("\n\n")
		}
		context.WriteString(entry.Information)
	}

	var user strings.Builder
	user.WriteString("Context: ")
	user.WriteString(context.String())
	user.WriteString("\n\nQuestion: ")
	user.WriteString(question)
	user.WriteString("\n\nAnswer in about two sentences.")

	return Prompt{
		System: BaseSystemPrompt + retrievalInstruction,
		User:   user.String(),
	}
}

// RenderHistory renders the last window turns as a Human/Assistant transcript, oldest first.
// A window of 0 keeps every turn.
func RenderHistory(history []models.ChatMessage, window int) string {
	start := 0
	if window > 0 && len(history) > window {
		start = len(history) - window
	}

	lines := make([]string, 0, len(history)-start)
	for _, msg := range history[start:] {
		if msg.IsUser {
			lines = append(lines, "Human: "+msg.Text)
		} else {
			lines = append(lines, "Assistant: "+msg.Text)
		}
	}
	return strings.Join(lines, "\n")
}

// ComposeCondense builds the prompt that rewrites message into a standalone question
func ComposeCondense(transcript, message string) Prompt {
	user := "Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question.\n\n" +
		"Chat History:\n" + transcript + "\n" +
		"Follow Up Input: " + message + "\n" +
		"Standalone Question:"

	return Prompt{System: condenseSystemPrompt, User: user}
}
