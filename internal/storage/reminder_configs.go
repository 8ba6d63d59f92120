package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/meltforce/fitcoach/internal/models"
)

const reminderColumns = `user_id, bot_token, chat_id, start_hour, last_reminder_sent_at, created_at`

func scanReminderConfig(row pgx.Row) (models.ReminderConfig, error) {
	var c models.ReminderConfig
	err := row.Scan(&c.UserID, &c.BotToken, &c.ChatID, &c.StartHour, &c.LastReminderSentAt, &c.CreatedAt)
	return c, err
}

// ListReminderConfigs returns every configuration with Telegram credentials set.
func (db *DB) ListReminderConfigs(ctx context.Context) ([]models.ReminderConfig, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+reminderColumns+` FROM reminder_configs
		 WHERE bot_token <> '' AND chat_id <> '' ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("querying reminder configs: %w", err)
	}
	defer rows.Close()

	var out []models.ReminderConfig
	for rows.Next() {
		c, err := scanReminderConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reminder config: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetReminderConfig returns the user's configuration or ErrNotFound.
func (db *DB) GetReminderConfig(ctx context.Context, userID int64) (*models.ReminderConfig, error) {
	c, err := scanReminderConfig(db.Pool.QueryRow(ctx,
		`SELECT `+reminderColumns+` FROM reminder_configs WHERE user_id = $1`, userID))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("reminder config for user %d", userID))
	}
	return &c, nil
}

// LookupReminderConfig is GetReminderConfig with a nil result instead of ErrNotFound.
func (db *DB) LookupReminderConfig(ctx context.Context, userID int64) (*models.ReminderConfig, error) {
	c, err := db.GetReminderConfig(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return c, err
}

// SaveReminderConfig creates or updates a configuration. An empty bot token
// keeps the stored one so clients never need to echo it back.
func (db *DB) SaveReminderConfig(ctx context.Context, cfg models.ReminderConfig) (*models.ReminderConfig, error) {
	c, err := scanReminderConfig(db.Pool.QueryRow(ctx,
		`INSERT INTO reminder_configs (user_id, bot_token, chat_id, start_hour)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE
		 SET bot_token = COALESCE(NULLIF(EXCLUDED.bot_token, ''), reminder_configs.bot_token),
		     chat_id = EXCLUDED.chat_id,
		     start_hour = EXCLUDED.start_hour,
		     updated_at = NOW()
		 RETURNING `+reminderColumns,
		cfg.UserID, cfg.BotToken, cfg.ChatID, cfg.StartHour))
	if err != nil {
		return nil, fmt.Errorf("saving reminder config: %w", err)
	}
	return &c, nil
}

func (db *DB) DeleteReminderConfig(ctx context.Context, userID int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM reminder_configs WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("deleting reminder config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reminder config for user %d: %w", userID, ErrNotFound)
	}
	return nil
}

// MarkReminderSent records when the last reminder went out.
func (db *DB) MarkReminderSent(ctx context.Context, userID int64, at time.Time) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE reminder_configs SET last_reminder_sent_at = $2 WHERE user_id = $1`, userID, at)
	if err != nil {
		return fmt.Errorf("marking reminder sent: %w", err)
	}
	return nil
}
