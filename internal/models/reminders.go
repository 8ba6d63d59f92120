package models

import "time"

// ReminderConfig is a user's notification setup and reminder state.
// BotToken never leaves the server.
type ReminderConfig struct {
	UserID             int64      `json:"user_id"`
	BotToken           string     `json:"-"`
	ChatID             string     `json:"chat_id"`
	StartHour          *int       `json:"start_hour,omitempty"`
	LastReminderSentAt *time.Time `json:"last_reminder_sent_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// HasTelegram reports whether both Telegram credentials are present.
func (c ReminderConfig) HasTelegram() bool {
	return c.BotToken != "" && c.ChatID != ""
}
