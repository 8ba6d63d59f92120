// Package schedule decides when reminders and workout previews go out and
// runs the hourly and midnight ticks that deliver them.
package schedule

import (
	"time"

	"github.com/meltforce/fitcoach/internal/models"
)

const (
	// DefaultStartHour applies when a user has not set a start hour.
	DefaultStartHour = 9
	// LastReminderHour is the last local hour a reminder may go out.
	LastReminderHour = 20
	// DuplicateGuard suppresses a reminder sent less than this long ago.
	// It tolerates late or overlapping ticks rather than comparing calendar hours.
	DuplicateGuard = 55 * time.Minute
)

// StartHour returns the user's configured start hour or DefaultStartHour.
func StartHour(cfg models.ReminderConfig) int {
	if cfg.StartHour == nil {
		return DefaultStartHour
	}
	return *cfg.StartHour
}

// ReminderHours returns the hours reminders go out for a start hour: two
// reminders two hours apart, then hourly until LastReminderHour.
// A start hour after LastReminderHour yields just that hour.
func ReminderHours(startHour int) []int {
	hours := []int{startHour}
	last := startHour
	for range 2 {
		if last+2 > LastReminderHour {
			break
		}
		last += 2
		hours = append(hours, last)
	}
	for last < LastReminderHour {
		last++
		hours = append(hours, last)
	}
	return hours
}

// InWindow reports whether hour falls in [startHour, LastReminderHour].
func InWindow(startHour, hour int) bool {
	return hour >= startHour && hour <= LastReminderHour
}

// Decision is the result of the time-based reminder checks.
type Decision struct {
	Due    bool
	Hour   int
	Reason string
}

// EvaluateReminder applies the window, cadence and duplicate checks for one
// user at now. now must already be in the scheduler's local zone.
func EvaluateReminder(cfg models.ReminderConfig, now time.Time) Decision {
	hour := now.Hour()
	start := StartHour(cfg)

	if !InWindow(start, hour) {
		return Decision{Hour: hour, Reason: ReasonOutsideWindow}
	}
	scheduled := false
	for _, h := range ReminderHours(start) {
		if h == hour {
			scheduled = true
			break
		}
	}
	if !scheduled {
		return Decision{Hour: hour, Reason: ReasonNotScheduled}
	}
	if cfg.LastReminderSentAt != nil && now.Sub(*cfg.LastReminderSentAt) < DuplicateGuard {
		return Decision{Hour: hour, Reason: ReasonRecentlySent}
	}
	return Decision{Due: true, Hour: hour}
}
