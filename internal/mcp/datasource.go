package mcp

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/fitcoach/internal/daily"
	"github.com/meltforce/fitcoach/internal/models"
	"github.com/meltforce/fitcoach/internal/plans"
	"github.com/meltforce/fitcoach/internal/plantext"
	"github.com/meltforce/fitcoach/internal/storage"
)

// PlanSource serves plan reads and the weight rewrite. *plans.Service satisfies it.
type PlanSource interface {
	NextWorkout(ctx context.Context, userID int64, id uuid.UUID) (plans.Workout, error)
	Days(ctx context.Context, userID int64, id uuid.UUID, maxDays int) (*models.Plan, []plantext.DaySection, error)
	UpdateExerciseWeight(ctx context.Context, userID int64, id uuid.UUID, exercise, weight string) (plans.WeightUpdate, error)
}

// TaskSource lists daily tasks after the lazy reset. *daily.Service satisfies it.
type TaskSource interface {
	Tasks(ctx context.Context, userID int64, now time.Time) ([]models.Task, error)
	IncompleteTasks(ctx context.Context, userID int64, now time.Time) ([]models.Task, error)
}

// ReminderConfigs looks up a user's reminder setup; nil means none.
type ReminderConfigs interface {
	LookupReminderConfig(ctx context.Context, userID int64) (*models.ReminderConfig, error)
}

var (
	_ PlanSource      = (*plans.Service)(nil)
	_ TaskSource      = (*daily.Service)(nil)
	_ ReminderConfigs = (*storage.DB)(nil)
)
