package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/meltforce/fitcoach/internal/models"
)

// DefaultAPIBaseURL is the public Telegram Bot API endpoint.
const DefaultAPIBaseURL = "https://api.telegram.org"

// ErrNotConfigured is returned when a user has no bot token or chat ID.
var ErrNotConfigured = errors.New("telegram not configured")

// Recipients resolves a user's Telegram credentials. A user without any
// configuration yields a nil config and no error.
type Recipients interface {
	LookupReminderConfig(ctx context.Context, userID int64) (*models.ReminderConfig, error)
}

// Telegram sends messages through the Telegram Bot API.
type Telegram struct {
	recipients Recipients
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
	attempts   int
	backoff    time.Duration
}

// NewTelegram creates a Telegram sender. An empty baseURL uses the public API.
func NewTelegram(recipients Recipients, baseURL string, timeout time.Duration, log *slog.Logger) *Telegram {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Telegram{
		recipients: recipients,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
		attempts:   3,
		backoff:    time.Second,
	}
}

// Send delivers text to the user's configured chat.
func (t *Telegram) Send(ctx context.Context, userID int64, text string) error {
	cfg, err := t.recipients.LookupReminderConfig(ctx, userID)
	if err != nil {
		return fmt.Errorf("looking up telegram config for user %d: %w", userID, err)
	}
	if cfg == nil || !cfg.HasTelegram() {
		return fmt.Errorf("user %d: %w", userID, ErrNotConfigured)
	}
	if err := t.SendMessage(ctx, cfg.BotToken, cfg.ChatID, text); err != nil {
		return err
	}
	t.log.Debug("telegram message sent", "user_id", userID, "chat_id", cfg.ChatID)
	return nil
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// permanentError marks a response that retrying will not fix.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// SendMessage POSTs one HTML message. Transport errors, 429 and 5xx responses are retried
// with exponential backoff; other non-200 responses fail immediately.
func (t *Telegram) SendMessage(ctx context.Context, botToken, chatID, text string) error {
	data, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, botToken)

	var lastErr error
	for attempt := range t.attempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("telegram send cancelled: %w", ctx.Err())
			case <-time.After(t.backoff << uint(attempt-1)):
			}
		}

		lastErr = t.post(ctx, url, data)
		if lastErr == nil {
			return nil
		}
		var perm permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
	}
	return fmt.Errorf("after %d attempts: %w", t.attempts, lastErr)
}

func (t *Telegram) post(ctx context.Context, url string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return permanentError{fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		// The URL carries the bot token; do not let it reach the logs.
		return errors.New("telegram request failed: " + redact(err.Error(), url))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err = fmt.Errorf("telegram %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return err
	}
	return permanentError{err}
}

func redact(msg, url string) string {
	return strings.ReplaceAll(msg, url, "<telegram sendMessage>")
}
