package daily

import (
	"slices"
	"time"

	"github.com/meltforce/fitcoach/internal/models"
)

// TaskStats describes one task's completion history.
type TaskStats struct {
	TaskID           int64      `json:"task_id"`
	Title            string     `json:"title"`
	Completed        bool       `json:"completed"`
	CurrentStreak    int        `json:"current_streak"`
	BestStreak       int        `json:"best_streak"`
	TotalCompletions int        `json:"total_completions"`
	LastCompleted    *time.Time `json:"last_completed,omitempty"`
	WeekRate         float64    `json:"week_rate"`
	MonthRate        float64    `json:"month_rate"`
	YearRate         float64    `json:"year_rate"`
}

// Summary aggregates completion records across all of a user's tasks.
type Summary struct {
	TotalTasks       int     `json:"total_tasks"`
	ActiveDaysStreak int     `json:"active_days_streak"`
	PerfectDays      int     `json:"perfect_days"`
	WeekRate         float64 `json:"week_rate"`
	MonthRate        float64 `json:"month_rate"`
	YearRate         float64 `json:"year_rate"`
}

// Streaks returns the current and best run of consecutive completion days.
// The current streak counts only if the latest completion is today or yesterday.
func Streaks(dates []time.Time, today time.Time) (current, best int) {
	days := uniqueDays(dates)
	if len(days) == 0 {
		return 0, 0
	}

	// days is sorted newest first
	if t := dayNumber(today); t-days[0] <= 1 {
		expected := days[0]
		for _, d := range days {
			if d != expected {
				break
			}
			current++
			expected--
		}
	}

	run := 1
	for i := 1; i < len(days); i++ {
		if days[i-1]-days[i] == 1 {
			run++
			continue
		}
		best = max(best, run)
		run = 1
	}
	return current, max(best, run)
}

// CompletionRate is the percentage of days in [from, to] with a completion.
// from and to are local instants; dates are calendar dates.
func CompletionRate(dates []time.Time, from, to time.Time) float64 {
	lo, hi := dayNumber(from), dayNumber(to.In(from.Location()))
	if hi < lo {
		return 0
	}
	n := 0
	for _, d := range uniqueDays(dates) {
		if d >= lo && d <= hi {
			n++
		}
	}
	return float64(n) / float64(hi-lo+1) * 100
}

// ComputeTaskStats derives a task's statistics from its completion dates.
func ComputeTaskStats(task models.Task, dates []time.Time, now time.Time) TaskStats {
	st := TaskStats{
		TaskID:           task.ID,
		Title:            task.Title,
		Completed:        task.Completed,
		TotalCompletions: len(dates),
	}
	st.CurrentStreak, st.BestStreak = Streaks(dates, now)
	for _, d := range dates {
		if st.LastCompleted == nil || d.After(*st.LastCompleted) {
			last := d
			st.LastCompleted = &last
		}
	}
	st.WeekRate = CompletionRate(dates, now.AddDate(0, 0, -7), now)
	st.MonthRate = CompletionRate(dates, now.AddDate(0, 0, -30), now)
	st.YearRate = CompletionRate(dates, now.AddDate(0, 0, -365), now)
	return st
}

// SummarizeRecords aggregates daily completion records. records may be in any order.
func SummarizeRecords(totalTasks int, records []models.CompletionRecord, now time.Time) Summary {
	s := Summary{TotalTasks: totalTasks}

	active := make(map[int]bool, len(records))
	for _, r := range records {
		if r.TasksCompleted > 0 {
			active[dayNumber(r.Date)] = true
		}
		if r.TasksTotal > 0 && r.TasksCompleted == r.TasksTotal {
			s.PerfectDays++
		}
	}
	for d := dayNumber(now); active[d]; d-- {
		s.ActiveDaysStreak++
	}

	s.WeekRate = recordRate(records, dayNumber(now.AddDate(0, 0, -7)))
	s.MonthRate = recordRate(records, dayNumber(now.AddDate(0, 0, -30)))
	s.YearRate = recordRate(records, dayNumber(now.AddDate(0, 0, -365)))
	return s
}

func recordRate(records []models.CompletionRecord, since int) float64 {
	var done, total int
	for _, r := range records {
		if dayNumber(r.Date) < since {
			continue
		}
		done += r.TasksCompleted
		total += r.TasksTotal
	}
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}

// uniqueDays treats dates as calendar dates as stored, without zone conversion.
func uniqueDays(dates []time.Time) []int {
	seen := make(map[int]bool, len(dates))
	out := make([]int, 0, len(dates))
	for _, d := range dates {
		n := dayNumber(d)
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	slices.Sort(out)
	slices.Reverse(out)
	return out
}
