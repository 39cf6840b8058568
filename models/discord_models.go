package models

// DiscordConfig configures the Discord transport
type DiscordConfig struct {
	Token         string `json:"-"`
	CommandPrefix string `json:"command_prefix"`
	HistoryLimit  int    `json:"history_limit"`
}
