package schedule

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/meltforce/fitcoach/internal/journal"
	"github.com/meltforce/fitcoach/internal/models"
	"github.com/meltforce/fitcoach/internal/notify"
)

// ReminderStore lists reminder configurations and advances reminder state.
type ReminderStore interface {
	ListReminderConfigs(ctx context.Context) ([]models.ReminderConfig, error)
	MarkReminderSent(ctx context.Context, userID int64, at time.Time) error
}

// TaskSource returns a user's incomplete tasks, resetting the list first if a
// new day has started.
type TaskSource interface {
	IncompleteTasks(ctx context.Context, userID int64, now time.Time) ([]models.Task, error)
}

// Sender delivers a rendered message to a user.
type Sender interface {
	Send(ctx context.Context, userID int64, text string) error
}

// Ledger records deliveries across ticks. journal.Journal satisfies it.
type Ledger interface {
	Claim(ctx context.Context, kind, key, slot, runID string) (bool, error)
	Release(ctx context.Context, kind, key, slot string) error
	Record(ctx context.Context, kind, key, slot, runID string) error
	Delivered(ctx context.Context, kind, key, slot string) (bool, error)
}

// Reminders sends escalating task reminders during each user's reminder window.
type Reminders struct {
	store  ReminderStore
	tasks  TaskSource
	sender Sender
	ledger Ledger
	opts   Options
	log    *slog.Logger
}

// NewReminders creates the reminder tick. ledger may be nil.
func NewReminders(store ReminderStore, tasks TaskSource, sender Sender, ledger Ledger, opts Options, log *slog.Logger) *Reminders {
	return &Reminders{store: store, tasks: tasks, sender: sender, ledger: ledger, opts: opts.withDefaults(), log: log}
}

// Tick processes every reminder configuration at now.
func (r *Reminders) Tick(ctx context.Context, now time.Time) Report {
	now = now.In(r.opts.Location)
	report := newReport(KindReminders, now)
	log := r.log.With("run_id", report.RunID)

	configs, err := r.store.ListReminderConfigs(ctx)
	if err != nil {
		log.Error("listing reminder configs", "error", err)
		report.Err = err.Error()
		return report
	}

	report.Outcomes = fanOut(ctx, r.opts, log, configs,
		func(c models.ReminderConfig) string { return strconv.FormatInt(c.UserID, 10) },
		func(ctx context.Context, c models.ReminderConfig) Outcome {
			return r.remind(ctx, log, c, now, report.RunID.String())
		})
	logReport(log, report)
	return report
}

func (r *Reminders) remind(ctx context.Context, log *slog.Logger, cfg models.ReminderConfig, now time.Time, runID string) Outcome {
	id := strconv.FormatInt(cfg.UserID, 10)
	log = log.With("user_id", cfg.UserID)

	d := EvaluateReminder(cfg, now)
	if !d.Due {
		log.Debug("reminder skipped", "reason", d.Reason, "hour", d.Hour)
		return skipped(id, d.Reason)
	}

	// The ledger catches a send whose reminder state failed to save.
	slot := now.Format(slotLayout)
	if r.ledger != nil {
		done, err := r.ledger.Delivered(ctx, journal.KindReminder, id, slot)
		if err != nil {
			log.Warn("checking reminder journal", "error", err)
		} else if done {
			log.Debug("reminder skipped", "reason", ReasonAlreadySent, "hour", d.Hour)
			return skipped(id, ReasonAlreadySent)
		}
	}

	tasks, err := r.tasks.IncompleteTasks(ctx, cfg.UserID, now)
	if err != nil {
		log.Error("loading incomplete tasks", "error", err)
		return failed(id, ReasonLoadFailed, err)
	}
	if len(tasks) == 0 {
		log.Debug("reminder skipped", "reason", ReasonNoTasks)
		return skipped(id, ReasonNoTasks)
	}

	if err := r.sender.Send(ctx, cfg.UserID, notify.RenderReminder(tasks, d.Hour)); err != nil {
		if errors.Is(err, notify.ErrNotConfigured) {
			log.Warn("reminder not sent, telegram not configured")
			return failed(id, ReasonNotConfigured, err)
		}
		log.Error("sending reminder", "error", err)
		return failed(id, ReasonSendFailed, err)
	}

	// The message is out; a failure to record it is logged but does not
	// turn the outcome into a failure.
	ctx = context.WithoutCancel(ctx)
	if err := r.store.MarkReminderSent(ctx, cfg.UserID, now); err != nil {
		log.Error("recording reminder sent", "error", err)
	}
	if r.ledger != nil {
		if err := r.ledger.Record(ctx, journal.KindReminder, id, slot, runID); err != nil {
			log.Warn("journaling reminder", "error", err)
		}
	}
	log.Info("reminder sent", "hour", d.Hour, "tasks", len(tasks), "tier", notify.TierForHour(d.Hour).String())
	return sent(id)
}
