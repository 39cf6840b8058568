package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"oro/models"

	"github.com/bwmarrin/discordgo"
)

const (
	// DiscordApology is sent when the pipeline fails; details stay in the log
	DiscordApology = "Sorry, I'm having trouble responding right now. Please try again in a moment."

	discordMessageLimit = 2000
	discordChunkSize    = 1900
	discordReplyTimeout = 60 * time.Second
)

// DiscordService answers prefixed channel messages through the assistant
type DiscordService struct {
	session       *discordgo.Session
	assistant     *Assistant
	commandPrefix string
	historyLimit  int
	enabled       bool
	startTime     time.Time
}

// NewDiscordService creates a new Discord service instance. Without a token it stays disabled.
func NewDiscordService(assistant *Assistant, cfg models.DiscordConfig) *DiscordService {
	if cfg.CommandPrefix == "" {
		cfg.CommandPrefix = "!mind "
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}

	service := &DiscordService{
		assistant:     assistant,
		commandPrefix: cfg.CommandPrefix,
		historyLimit:  cfg.HistoryLimit,
		startTime:     time.Now(),
	}

	if cfg.Token == "" {
		log.Printf("[discord] bot disabled: DISCORD_BOT_TOKEN not set")
		return service
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		log.Printf("[discord] error creating session: %v", err)
		return service
	}

	service.session = session

	session.AddHandler(func(s *discordgo.Session, event *discordgo.Ready) {
		log.Printf("[discord] bot is online as %s in %d servers", event.User.Username, len(event.Guilds))
	})
	session.AddHandler(service.messageCreate)
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	service.enabled = true
	log.Printf("[discord] service initialized with prefix %q", cfg.CommandPrefix)

	return service
}

// Start begins the Discord bot service
func (d *DiscordService) Start() error {
	if !d.enabled {
		return fmt.Errorf("discord service not enabled (missing bot token)")
	}

	if err := d.session.Open(); err != nil {
		return fmt.Errorf("error opening Discord connection: %w", err)
	}

	log.Printf("[discord] bot started, use '%s<message>' in Discord", d.commandPrefix)
	return nil
}

// Stop closes the Discord bot connection
func (d *DiscordService) Stop() error {
	if d.session != nil {
		return d.session.Close()
	}
	return nil
}

func (d *DiscordService) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore messages from bots
	if m.Author == nil || m.Author.Bot {
		return
	}

	// Only answer messages with the command prefix
	message, ok := d.extractCommand(m.Content)
	if !ok {
		return
	}
	if message == "" {
		d.sendMessage(s, m.ChannelID, fmt.Sprintf("Please provide a message after `%s`", strings.TrimSpace(d.commandPrefix)))
		return
	}

	// Show typing indicator
	s.ChannelTyping(m.ChannelID)

	// Recent channel messages before this one become the chat history
	var history []models.ChatMessage
	recent, err := s.ChannelMessages(m.ChannelID, d.historyLimit, m.ID, "", "")
	if err != nil {
		log.Printf("[discord] failed to get recent messages for context: %v", err)
	} else {
		botID := ""
		if s.State != nil && s.State.User != nil {
			botID = s.State.User.ID
		}
		history = d.chatHistory(recent, botID)
	}

	// Process message through the assistant and reply
	ctx, cancel := context.WithTimeout(context.Background(), discordReplyTimeout)
	defer cancel()

	d.sendMessage(s, m.ChannelID, d.answer(ctx, message, history))

	// Log the interaction
	log.Printf("[discord] user %s in channel %s: %d history turns", m.Author.ID, m.ChannelID, len(history))
}

// extractCommand strips the command prefix; ok is false for messages not addressed to the bot
func (d *DiscordService) extractCommand(content string) (string, bool) {
	if !strings.HasPrefix(content, d.commandPrefix) {
		return "", false
	}
	return strings.TrimSpace(content[len(d.commandPrefix):]), true
}

// answer runs the pipeline and turns every failure into the apology
func (d *DiscordService) answer(ctx context.Context, message string, history []models.ChatMessage) string {
	result, err := d.assistant.Reply(ctx, models.PromptRequest{Message: message, History: history})
	if err != nil {
		var providerErr *ProviderError
		switch {
		case errors.Is(err, ErrNotConfigured):
			log.Printf("[discord] assistant is not configured")
		case errors.As(err, &providerErr):
			log.Printf("[discord] provider failure: %v", providerErr)
		default:
			log.Printf("[discord] unexpected error: %v", err)
		}
		return DiscordApology
	}
	return result.Reply
}

// chatHistory converts channel messages, newest first as Discord returns them, into
// oldest-first turns. Our own replies become assistant turns, commands become user
// turns without the prefix, and other bots are skipped.
func (d *DiscordService) chatHistory(messages []*discordgo.Message, botID string) []models.ChatMessage {
	history := make([]models.ChatMessage, 0, len(messages))

	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg == nil || msg.Author == nil {
			continue
		}

		var turn models.ChatMessage
		switch {
		case msg.Author.ID == botID:
			turn = models.ChatMessage{Text: msg.Content, IsUser: false}
		case msg.Author.Bot:
			continue
		default:
			text := msg.Content
			if command, ok := d.extractCommand(text); ok {
				text = command
			}
			turn = models.ChatMessage{Text: text, IsUser: true}
		}

		if strings.TrimSpace(turn.Text) == "" {
			continue
		}
		history = append(history, turn)
	}

	return history
}

// sendMessage sends a message to Discord, handling length limits
func (d *DiscordService) sendMessage(s *discordgo.Session, channelID, message string) {
	if len(message) <= discordMessageLimit {
		if _, err := s.ChannelMessageSend(channelID, message); err != nil {
			log.Printf("[discord] error sending message: %v", err)
		}
		return
	}

	chunks := splitMessage(message, discordChunkSize)
	for i, chunk := range chunks {
		if i > 0 {
			chunk = "...continued:\n" + chunk
		}
		if i < len(chunks)-1 {
			chunk = chunk + "\n..."
		}

		if _, err := s.ChannelMessageSend(channelID, chunk); err != nil {
			log.Printf("[discord] error sending message chunk: %v", err)
		}

		// rate limit
		time.Sleep(200 * time.Millisecond)
	}
}

// splitMessage splits a message into chunks of at most maxLength bytes,
// preferring word boundaries and never cutting a rune in half.
func splitMessage(message string, maxLength int) []string {
	if len(message) <= maxLength {
		return []string{message}
	}

	var chunks []string
	for len(message) > maxLength {
		splitIndex := maxLength
		if spaceIndex := strings.LastIndex(message[:maxLength], " "); spaceIndex > maxLength/2 {
			splitIndex = spaceIndex
		} else {
			for splitIndex > 0 && !utf8.RuneStart(message[splitIndex]) {
				splitIndex--
			}
		}

		chunks = append(chunks, message[:splitIndex])
		message = strings.TrimPrefix(message[splitIndex:], " ")
	}

	if len(message) > 0 {
		chunks = append(chunks, message)
	}

	return chunks
}

// IsEnabled returns whether the Discord service is enabled
func (d *DiscordService) IsEnabled() bool {
	return d.enabled
}

// GetStatus returns the current status of the Discord service
func (d *DiscordService) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"enabled":        d.enabled,
		"command_prefix": d.commandPrefix,
		"uptime":         time.Since(d.startTime).String(),
	}

	switch {
	case d.enabled && d.session != nil && d.session.State != nil && d.session.State.User != nil:
		status["status"] = "connected"
		status["user"] = map[string]interface{}{
			"id":       d.session.State.User.ID,
			"username": d.session.State.User.Username,
		}
		status["guilds"] = len(d.session.State.Guilds)
	case d.enabled:
		status["status"] = "initialized_not_started"
	default:
		status["status"] = "disabled"
		status["note"] = "Set DISCORD_BOT_TOKEN environment variable to enable"
	}

	return status
}
