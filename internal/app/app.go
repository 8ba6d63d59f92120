// Package app wires configuration into the storage, services and scheduler
// shared by the fitcoach binaries.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/meltforce/fitcoach/internal/config"
	"github.com/meltforce/fitcoach/internal/daily"
	"github.com/meltforce/fitcoach/internal/journal"
	"github.com/meltforce/fitcoach/internal/notify"
	"github.com/meltforce/fitcoach/internal/plans"
	"github.com/meltforce/fitcoach/internal/schedule"
	"github.com/meltforce/fitcoach/internal/storage"
)

// NewLogger builds the process logger from the logging section.
func NewLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// App holds the long-lived collaborators.
type App struct {
	DB       *storage.DB
	Journal  *journal.Journal
	Telegram *notify.Telegram
	Tasks    *daily.Service
	Plans    *plans.Service
	Runner   *schedule.Runner
	Location *time.Location

	log *slog.Logger
}

// Open connects the database and journal and builds services and the
// scheduler runner. The runner is built even when the scheduler is disabled
// so ticks can still be run on demand.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, err
	}

	db, err := storage.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connecting database: %w", err)
	}

	jr, err := journal.Open(cfg.Scheduler.JournalDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening delivery journal: %w", err)
	}
	if cfg.Scheduler.JournalRetention > 0 {
		n, err := jr.Prune(ctx, time.Now().Add(-cfg.Scheduler.JournalRetention))
		if err != nil {
			log.Warn("journal prune failed", "error", err)
		} else if n > 0 {
			log.Info("journal pruned", "entries", n)
		}
	}

	a := &App{DB: db, Journal: jr, Location: loc, log: log}
	a.Telegram = notify.NewTelegram(db, cfg.Telegram.APIBaseURL, cfg.Telegram.Timeout, log.With("component", "telegram"))
	a.Tasks = daily.NewService(db, loc, log.With("component", "daily"))
	a.Plans = plans.NewService(db, log.With("component", "plans"))

	opts := schedule.Options{
		Location:    loc,
		Concurrency: cfg.Scheduler.Concurrency,
		SendTimeout: cfg.Scheduler.SendTimeout,
	}
	schedLog := log.With("component", "scheduler")
	a.Runner = schedule.NewRunner(
		schedule.NewReminders(db, a.Tasks, a.Telegram, jr, opts, schedLog),
		schedule.NewPreviews(db, a.Telegram, jr, opts, schedLog),
		schedule.NewResets(a.Tasks, opts, schedLog),
		loc, schedLog,
	)
	return a, nil
}

// Close releases the journal and the pool. Stop the runner first.
func (a *App) Close() {
	if err := a.Journal.Close(); err != nil {
		a.log.Warn("closing journal", "error", err)
	}
	a.DB.Close()
}
