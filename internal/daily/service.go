package daily

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/meltforce/fitcoach/internal/models"
)

// Store is the persistence the task service needs. storage.DB satisfies it.
//
// ResetTasks calls decide inside a transaction with the user's task rows
// locked, then persists the returned tasks and completion record. A nil
// record means no reset happens and ResetTasks returns false.
type Store interface {
	ListTasks(ctx context.Context, userID int64) ([]models.Task, error)
	ListIncompleteTasks(ctx context.Context, userID int64) ([]models.Task, error)
	ListTaskOwners(ctx context.Context) ([]int64, error)
	CreateTask(ctx context.Context, userID int64, title string) (*models.Task, error)
	GetTask(ctx context.Context, userID, taskID int64) (*models.Task, error)
	ToggleTask(ctx context.Context, userID, taskID int64, day string) (*models.Task, error)
	DeleteTask(ctx context.Context, userID, taskID int64) error
	ResetTasks(ctx context.Context, userID int64, decide func([]models.Task) ([]models.Task, *models.CompletionRecord)) (bool, error)
	CompletionDates(ctx context.Context, taskID int64) ([]time.Time, error)
	CompletionRecords(ctx context.Context, userID int64, since string) ([]models.CompletionRecord, error)
}

// Service serves a user's daily tasks, applying the lazy reset before reads.
type Service struct {
	store Store
	loc   *time.Location
	log   *slog.Logger

	resets singleflight.Group
}

// NewService creates a task service. Calendar dates are evaluated in loc.
func NewService(store Store, loc *time.Location, log *slog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, loc: loc, log: log}
}

// Location returns the zone calendar dates are evaluated in.
func (s *Service) Location() *time.Location { return s.loc }

// EnsureReset resets the user's tasks if no task was reset today. Concurrent
// calls for one user and local date share a single store round-trip, which is
// not cut short when the caller that started it goes away. Users with no tasks
// are never reset.
func (s *Service) EnsureReset(ctx context.Context, userID int64, now time.Time) (bool, error) {
	today := now.In(s.loc)
	key := strconv.FormatInt(userID, 10) + "/" + today.Format(time.DateOnly)
	v, err, _ := s.resets.Do(key, func() (any, error) {
		return s.store.ResetTasks(context.WithoutCancel(ctx), userID, func(tasks []models.Task) ([]models.Task, *models.CompletionRecord) {
			if len(tasks) == 0 || !IsResetDue(tasks, today) {
				return nil, nil
			}
			rec := Summarize(userID, tasks, today)
			return Reset(tasks, today), &rec
		})
	})
	if err != nil {
		return false, fmt.Errorf("resetting tasks for user %d: %w", userID, err)
	}
	reset := v.(bool)
	if reset {
		s.log.Info("daily tasks reset", "user_id", userID)
	}
	return reset, nil
}

// ResetNow resets the user's tasks regardless of when they were last reset.
func (s *Service) ResetNow(ctx context.Context, userID int64, now time.Time) error {
	today := now.In(s.loc)
	_, err := s.store.ResetTasks(ctx, userID, func(tasks []models.Task) ([]models.Task, *models.CompletionRecord) {
		if len(tasks) == 0 {
			return nil, nil
		}
		rec := Summarize(userID, tasks, today)
		return Reset(tasks, today), &rec
	})
	if err != nil {
		return fmt.Errorf("resetting tasks for user %d: %w", userID, err)
	}
	return nil
}

// Tasks lists the user's tasks after the lazy reset.
func (s *Service) Tasks(ctx context.Context, userID int64, now time.Time) ([]models.Task, error) {
	if _, err := s.EnsureReset(ctx, userID, now); err != nil {
		return nil, err
	}
	return s.store.ListTasks(ctx, userID)
}

// IncompleteTasks lists the user's open tasks after the lazy reset.
func (s *Service) IncompleteTasks(ctx context.Context, userID int64, now time.Time) ([]models.Task, error) {
	if _, err := s.EnsureReset(ctx, userID, now); err != nil {
		return nil, err
	}
	return s.store.ListIncompleteTasks(ctx, userID)
}

// Owners returns every user that has at least one task.
func (s *Service) Owners(ctx context.Context) ([]int64, error) {
	return s.store.ListTaskOwners(ctx)
}

func (s *Service) Create(ctx context.Context, userID int64, title string) (*models.Task, error) {
	if title == "" {
		return nil, fmt.Errorf("task title is required")
	}
	return s.store.CreateTask(ctx, userID, title)
}

// Toggle flips a task's completion and records or removes today's completion date.
func (s *Service) Toggle(ctx context.Context, userID, taskID int64, now time.Time) (*models.Task, error) {
	if _, err := s.EnsureReset(ctx, userID, now); err != nil {
		return nil, err
	}
	return s.store.ToggleTask(ctx, userID, taskID, now.In(s.loc).Format(time.DateOnly))
}

func (s *Service) Delete(ctx context.Context, userID, taskID int64) error {
	return s.store.DeleteTask(ctx, userID, taskID)
}

// TaskStats returns streaks and completion rates for one task.
func (s *Service) TaskStats(ctx context.Context, userID, taskID int64, now time.Time) (TaskStats, error) {
	task, err := s.store.GetTask(ctx, userID, taskID)
	if err != nil {
		return TaskStats{}, err
	}
	dates, err := s.store.CompletionDates(ctx, taskID)
	if err != nil {
		return TaskStats{}, fmt.Errorf("loading completion dates: %w", err)
	}
	return ComputeTaskStats(*task, dates, now.In(s.loc)), nil
}

// Stats returns per-task statistics and the aggregate summary for a user.
func (s *Service) Stats(ctx context.Context, userID int64, now time.Time) ([]TaskStats, Summary, error) {
	tasks, err := s.Tasks(ctx, userID, now)
	if err != nil {
		return nil, Summary{}, err
	}
	local := now.In(s.loc)

	out := make([]TaskStats, 0, len(tasks))
	for _, t := range tasks {
		dates, err := s.store.CompletionDates(ctx, t.ID)
		if err != nil {
			return nil, Summary{}, fmt.Errorf("loading completion dates for task %d: %w", t.ID, err)
		}
		out = append(out, ComputeTaskStats(t, dates, local))
	}

	records, err := s.store.CompletionRecords(ctx, userID, local.AddDate(0, 0, -365).Format(time.DateOnly))
	if err != nil {
		return nil, Summary{}, fmt.Errorf("loading completion records: %w", err)
	}
	return out, SummarizeRecords(len(tasks), records, local), nil
}

// History returns the completion records of the last days days, newest first.
func (s *Service) History(ctx context.Context, userID int64, days int, now time.Time) ([]models.CompletionRecord, error) {
	if days <= 0 {
		days = 30
	}
	since := now.In(s.loc).AddDate(0, 0, -days).Format(time.DateOnly)
	return s.store.CompletionRecords(ctx, userID, since)
}
