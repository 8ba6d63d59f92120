package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meltforce/fitcoach/internal/models"
	"github.com/meltforce/fitcoach/internal/plans"
	"github.com/meltforce/fitcoach/internal/storage"
)

// TestUserIDFromContextDefault verifies the default user ID (1) when no value
// is set in the context.
func TestUserIDFromContextDefault(t *testing.T) {
	ctx := context.Background()
	if id := UserIDFromContext(ctx); id != 1 {
		t.Errorf("UserIDFromContext(empty) = %d, want 1", id)
	}
}

// TestUserIDFromContextSet verifies the user ID is extracted from context
// after being set by WithUserID.
func TestUserIDFromContextSet(t *testing.T) {
	ctx := WithUserID(context.Background(), 42)
	if id := UserIDFromContext(ctx); id != 42 {
		t.Errorf("UserIDFromContext = %d, want 42", id)
	}
}

const planText = `Day 1 - Push:
- Bench Press - 4x8 @ 60kg | 90s | 2min

Day 2 - Pull:
- Row - 4x8 @ 50kg | 90s | 2min
`

type planStore map[uuid.UUID]*models.Plan

func (p planStore) GetPlan(_ context.Context, userID int64, id uuid.UUID) (*models.Plan, error) {
	if pl, ok := p[id]; ok && pl.UserID == userID {
		cp := *pl
		return &cp, nil
	}
	return nil, fmt.Errorf("plan %s: %w", id, storage.ErrNotFound)
}

func (p planStore) ActivePlan(_ context.Context, userID int64) (*models.Plan, error) {
	for _, pl := range p {
		if pl.UserID == userID && pl.Active {
			cp := *pl
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("active plan: %w", storage.ErrNotFound)
}

func (p planStore) UpdatePlanText(_ context.Context, userID int64, id uuid.UUID, text string) (*models.Plan, error) {
	pl, ok := p[id]
	if !ok || pl.UserID != userID {
		return nil, fmt.Errorf("plan %s: %w", id, storage.ErrNotFound)
	}
	pl.PlanText = text
	cp := *pl
	return &cp, nil
}

type taskSource map[int64][]models.Task

func (f taskSource) Tasks(_ context.Context, userID int64, _ time.Time) ([]models.Task, error) {
	return f[userID], nil
}

func (f taskSource) IncompleteTasks(_ context.Context, userID int64, _ time.Time) ([]models.Task, error) {
	var out []models.Task
	for _, t := range f[userID] {
		if !t.Completed {
			out = append(out, t)
		}
	}
	return out, nil
}

type reminderConfigs map[int64]*models.ReminderConfig

func (f reminderConfigs) LookupReminderConfig(_ context.Context, userID int64) (*models.ReminderConfig, error) {
	return f[userID], nil
}

func newTestHandlers(t *testing.T) (*handlers, planStore, uuid.UUID) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	id := uuid.New()
	store := planStore{id: {ID: id, UserID: 1, Name: "Block A", PlanText: planText, Active: true}}
	start := 15
	h := newHandlers(Deps{
		Plans: plans.NewService(store, log),
		Tasks: taskSource{1: {
			{ID: 1, UserID: 1, Title: "Stretch", Completed: true},
			{ID: 2, UserID: 1, Title: "Walk"},
		}},
		Reminders: reminderConfigs{1: {UserID: 1, StartHour: &start}},
		Location:  time.UTC,
	}, log)
	h.now = func() time.Time { return time.Date(2026, 3, 10, 16, 30, 0, 0, time.UTC) }
	return h, store, id
}

func callTool(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultJSON(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotNil(t, res)
	require.False(t, res.IsError, "tool returned error: %v", res.Content)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func TestGetNextWorkout(t *testing.T) {
	h, _, id := newTestHandlers(t)
	ctx := WithUserID(context.Background(), 1)

	res, err := h.getNextWorkout(ctx, callTool(nil))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, id.String(), out["plan_id"])
	assert.Equal(t, true, out["found"])

	res, err = h.getNextWorkout(WithUserID(context.Background(), 7), callTool(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = h.getNextWorkout(ctx, callTool(map[string]any{"plan_id": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestGetPlanDays(t *testing.T) {
	h, _, id := newTestHandlers(t)
	ctx := WithUserID(context.Background(), 1)

	res, err := h.getPlanDays(ctx, callTool(map[string]any{"plan_id": id.String()}))
	require.NoError(t, err)
	assert.Len(t, resultJSON(t, res)["days"], 2)

	res, err = h.getPlanDays(ctx, callTool(map[string]any{"max_days": 1}))
	require.NoError(t, err)
	assert.Len(t, resultJSON(t, res)["days"], 1)
}

func TestUpdateExerciseWeightTool(t *testing.T) {
	h, store, id := newTestHandlers(t)
	ctx := WithUserID(context.Background(), 1)

	res, err := h.updateExerciseWeight(ctx, callTool(map[string]any{
		"exercise_name": "Bench Press",
		"new_weight":    "62.5kg",
	}))
	require.NoError(t, err)
	assert.Equal(t, true, resultJSON(t, res)["found"])
	assert.Equal(t, true, resultJSON(t, res)["updated"])
	assert.Contains(t, store[id].PlanText, "- Bench Press - 4x8 @ 62.5kg | 90s | 2min")

	res, err = h.updateExerciseWeight(ctx, callTool(map[string]any{
		"exercise_name": "Deadlift",
		"new_weight":    "140kg",
	}))
	require.NoError(t, err)
	assert.Equal(t, false, resultJSON(t, res)["found"])
	assert.Equal(t, false, resultJSON(t, res)["updated"])

	res, err = h.updateExerciseWeight(ctx, callTool(map[string]any{
		"exercise_name": "Bench Press",
		"new_weight":    "60 | 65",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = h.updateExerciseWeight(ctx, callTool(map[string]any{"new_weight": "60kg"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestGetReminderSchedule(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	res, err := h.getReminderSchedule(WithUserID(context.Background(), 1), callTool(nil))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, float64(15), out["start_hour"])

	res, err = h.getReminderSchedule(WithUserID(context.Background(), 2), callTool(nil))
	require.NoError(t, err)
	assert.Equal(t, float64(9), resultJSON(t, res)["start_hour"])

	res, err = h.getReminderSchedule(context.Background(), callTool(map[string]any{"start_hour": 19}))
	require.NoError(t, err)
	assert.Len(t, resultJSON(t, res)["slots"], 2)

	res, err = h.getReminderSchedule(context.Background(), callTool(map[string]any{"start_hour": 30}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestListIncompleteTasks(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	res, err := h.listIncompleteTasks(WithUserID(context.Background(), 1), callTool(nil))
	require.NoError(t, err)
	out := resultJSON(t, res)
	assert.Equal(t, float64(1), out["count"])
}

func TestTodayResource(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "fitcoach://today"
	contents, err := h.today(WithUserID(context.Background(), 1), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	assert.Equal(t, "2026-03-10", out["date"])
	assert.Len(t, out["tasks"], 2)
	assert.NotNil(t, out["next_workout"])
	// 16:30 with start hour 15: the 17, 19 and 20 reminders remain.
	assert.Equal(t, []any{17.0, 19.0, 20.0}, out["remaining_reminder_hours"])
}
