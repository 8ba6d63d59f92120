package models

import "time"

// Task is a recurring daily task. Completion is cleared by the daily reset.
type Task struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Title       string     `json:"title"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	LastResetAt *time.Time `json:"last_reset_at,omitempty"`
}

// CompletionRecord summarizes one closed day of a user's task list.
type CompletionRecord struct {
	UserID         int64     `json:"user_id"`
	Date           time.Time `json:"date"`
	TasksTotal     int       `json:"tasks_total"`
	TasksCompleted int       `json:"tasks_completed"`
	CompletionRate float64   `json:"completion_rate"`
}

// Titles returns the task titles in order.
func Titles(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}
