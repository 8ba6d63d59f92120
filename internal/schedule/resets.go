package schedule

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

// TaskResetter applies the daily reset to one user. daily.Service satisfies it.
type TaskResetter interface {
	Owners(ctx context.Context) ([]int64, error)
	EnsureReset(ctx context.Context, userID int64, now time.Time) (bool, error)
}

// Resets runs the midnight reset for every user with tasks.
type Resets struct {
	tasks TaskResetter
	opts  Options
	log   *slog.Logger
}

func NewResets(tasks TaskResetter, opts Options, log *slog.Logger) *Resets {
	return &Resets{tasks: tasks, opts: opts.withDefaults(), log: log}
}

// Tick resets each user whose tasks were not yet reset on now's local date.
// Running it twice on one day resets nobody the second time.
func (r *Resets) Tick(ctx context.Context, now time.Time) Report {
	now = now.In(r.opts.Location)
	report := newReport(KindResets, now)
	log := r.log.With("run_id", report.RunID)

	owners, err := r.tasks.Owners(ctx)
	if err != nil {
		log.Error("listing task owners", "error", err)
		report.Err = err.Error()
		return report
	}

	report.Outcomes = fanOut(ctx, r.opts, log, owners,
		func(id int64) string { return strconv.FormatInt(id, 10) },
		func(ctx context.Context, userID int64) Outcome {
			id := strconv.FormatInt(userID, 10)
			done, err := r.tasks.EnsureReset(ctx, userID, now)
			if err != nil {
				log.Error("resetting tasks", "user_id", userID, "error", err)
				return failed(id, ReasonLoadFailed, err)
			}
			if !done {
				return skipped(id, ReasonNotDue)
			}
			return Outcome{EntityID: id, Status: StatusReset}
		})
	logReport(log, report)
	return report
}
