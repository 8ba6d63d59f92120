// Package plans serves workout plan reads and edits on top of plan text.
package plans

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/meltforce/fitcoach/internal/models"
	"github.com/meltforce/fitcoach/internal/plantext"
)

// ErrInvalidWeight is returned for a weight that would break the line shape.
var ErrInvalidWeight = errors.New("weight must be non-empty and must not contain '|' or line breaks")

// Store is the plan persistence the service needs.
type Store interface {
	GetPlan(ctx context.Context, userID int64, id uuid.UUID) (*models.Plan, error)
	ActivePlan(ctx context.Context, userID int64) (*models.Plan, error)
	UpdatePlanText(ctx context.Context, userID int64, id uuid.UUID, text string) (*models.Plan, error)
}

// Service reads and edits plan text.
type Service struct {
	store Store
	log   *slog.Logger
}

func NewService(store Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

// Workout is the next workout of a plan.
type Workout struct {
	PlanID   uuid.UUID            `json:"plan_id"`
	PlanName string               `json:"plan_name"`
	Found    bool                 `json:"found"`
	Day      *plantext.DaySection `json:"day,omitempty"`
}

// WeightUpdate is the result of an exercise weight rewrite.
type WeightUpdate struct {
	Plan     *models.Plan `json:"plan"`
	Exercise string       `json:"exercise"`
	Weight   string       `json:"weight"`
	Found    bool         `json:"found"`
	Updated  bool         `json:"updated"`
}

// Plan loads a plan; a nil id selects the user's active plan.
func (s *Service) Plan(ctx context.Context, userID int64, id uuid.UUID) (*models.Plan, error) {
	if id == uuid.Nil {
		return s.store.ActivePlan(ctx, userID)
	}
	return s.store.GetPlan(ctx, userID, id)
}

// NextWorkout returns the first day section of the plan.
func (s *Service) NextWorkout(ctx context.Context, userID int64, id uuid.UUID) (Workout, error) {
	p, err := s.Plan(ctx, userID, id)
	if err != nil {
		return Workout{}, err
	}
	w := Workout{PlanID: p.ID, PlanName: p.Name}
	if day, ok := plantext.NextWorkout(p.PlanText); ok {
		w.Found = true
		w.Day = &day
	}
	return w, nil
}

// Days parses up to maxDays day sections; maxDays <= 0 parses all of them.
func (s *Service) Days(ctx context.Context, userID int64, id uuid.UUID, maxDays int) (*models.Plan, []plantext.DaySection, error) {
	p, err := s.Plan(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	var days []plantext.DaySection
	if maxDays <= 0 {
		days = plantext.ParseModel(p.PlanText).Days
	} else {
		days = plantext.Parse(p.PlanText, maxDays)
	}
	if days == nil {
		days = []plantext.DaySection{}
	}
	return p, days, nil
}

// UpdateExerciseWeight rewrites the weight of every line for the exercise.
// An exercise that does not appear in the expected line shape leaves the plan
// untouched and reports Found and Updated false.
func (s *Service) UpdateExerciseWeight(ctx context.Context, userID int64, id uuid.UUID, exercise, weight string) (WeightUpdate, error) {
	exercise = strings.TrimSpace(exercise)
	weight = strings.TrimSpace(weight)
	if exercise == "" {
		return WeightUpdate{}, fmt.Errorf("exercise name is required")
	}
	if !plantext.ValidWeight(weight) {
		return WeightUpdate{}, ErrInvalidWeight
	}

	p, err := s.Plan(ctx, userID, id)
	if err != nil {
		return WeightUpdate{}, err
	}
	res := WeightUpdate{Plan: p, Exercise: exercise, Weight: weight}
	if !plantext.ContainsExercise(p.PlanText, exercise) {
		s.log.Debug("exercise not in plan", "plan_id", p.ID, "exercise", exercise)
		return res, nil
	}
	res.Found = true

	text := plantext.RewriteWeight(p.PlanText, exercise, weight)
	if text == p.PlanText {
		s.log.Debug("weight unchanged", "plan_id", p.ID, "exercise", exercise)
		return res, nil
	}

	updated, err := s.store.UpdatePlanText(ctx, userID, p.ID, text)
	if err != nil {
		return WeightUpdate{}, fmt.Errorf("saving plan text: %w", err)
	}
	s.log.Info("exercise weight updated", "plan_id", p.ID, "exercise", exercise, "weight", weight)
	res.Plan = updated
	res.Updated = true
	return res, nil
}
