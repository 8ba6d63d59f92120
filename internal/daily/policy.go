// Package daily owns the recurring daily task list: the midnight reset policy,
// the lazy reset performed on read, and per-task streak statistics.
package daily

import (
	"time"

	"github.com/meltforce/fitcoach/internal/models"
)

// IsResetDue reports whether no task was reset on today's local calendar date.
// The calendar date is taken in today's location.
func IsResetDue(tasks []models.Task, today time.Time) bool {
	for _, t := range tasks {
		if t.LastResetAt != nil && sameDay(t.LastResetAt.In(today.Location()), today) {
			return false
		}
	}
	return true
}

// Reset returns a copy of tasks with completion cleared and LastResetAt set to now.
func Reset(tasks []models.Task, now time.Time) []models.Task {
	out := make([]models.Task, len(tasks))
	for i, t := range tasks {
		at := now
		t.Completed = false
		t.LastResetAt = &at
		out[i] = t
	}
	return out
}

// Summarize builds the completion record for the day being closed by a reset.
// It must be called with the task states from before the reset.
func Summarize(userID int64, tasks []models.Task, now time.Time) models.CompletionRecord {
	rec := models.CompletionRecord{
		UserID:     userID,
		Date:       closedDay(tasks, now),
		TasksTotal: len(tasks),
	}
	for _, t := range tasks {
		if t.Completed {
			rec.TasksCompleted++
		}
	}
	if rec.TasksTotal > 0 {
		rec.CompletionRate = float64(rec.TasksCompleted) / float64(rec.TasksTotal) * 100
	}
	return rec
}

// closedDay is the local date of the most recent reset, or yesterday when the
// list was never reset.
func closedDay(tasks []models.Task, now time.Time) time.Time {
	var latest time.Time
	for _, t := range tasks {
		if t.LastResetAt != nil && t.LastResetAt.After(latest) {
			latest = *t.LastResetAt
		}
	}
	if latest.IsZero() {
		return startOfDay(now).AddDate(0, 0, -1)
	}
	return startOfDay(latest.In(now.Location()))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// dayNumber maps a local calendar date to a monotonically increasing day index
// so date arithmetic is unaffected by DST transitions.
func dayNumber(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
