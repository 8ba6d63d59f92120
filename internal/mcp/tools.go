package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/fitcoach/internal/notify"
	"github.com/meltforce/fitcoach/internal/plans"
	"github.com/meltforce/fitcoach/internal/schedule"
	"github.com/meltforce/fitcoach/internal/storage"
)

// planIDArg parses the optional plan_id argument. Empty or "active" selects the active plan.
func planIDArg(req mcp.CallToolRequest) (uuid.UUID, error) {
	raw := req.GetString("plan_id", "")
	if raw == "" || raw == "active" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid plan_id %q", raw)
	}
	return id, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func queryError(err error) *mcp.CallToolResult {
	if errors.Is(err, storage.ErrNotFound) {
		return mcp.NewToolResultError("not found: " + err.Error())
	}
	return mcp.NewToolResultError("query failed: " + err.Error())
}

// --- Tool definitions ---

var planIDOption = mcp.WithString("plan_id", mcp.Description("Plan UUID. Defaults to the active plan."))

var toolGetNextWorkout = mcp.NewTool("get_next_workout",
	mcp.WithDescription("Return the next workout of a plan: the first day section with its exercise lines."),
	planIDOption,
)

var toolGetPlanDays = mcp.NewTool("get_plan_days",
	mcp.WithDescription("Parse a plan into day sections. Each section has a day label and its exercise lines in order."),
	planIDOption,
	mcp.WithNumber("max_days", mcp.Description("Maximum number of days to return. 0 or omitted returns all.")),
)

var toolUpdateExerciseWeight = mcp.NewTool("update_exercise_weight",
	mcp.WithDescription("Rewrite the weight of an exercise in the plan text, e.g. after a progression. Every line of the form '- <exercise> - <sets> @ <weight> | ...' is updated. Returns found=false and updated=false when the exercise does not appear in that shape."),
	planIDOption,
	mcp.WithString("exercise_name", mcp.Required(), mcp.Description("Exact exercise name as written in the plan (e.g. 'Bench Press')")),
	mcp.WithString("new_weight", mcp.Required(), mcp.Description("New weight text (e.g. '62.5kg'). Must not contain '|' or line breaks.")),
)

var toolGetReminderSchedule = mcp.NewTool("get_reminder_schedule",
	mcp.WithDescription("Show the hours daily task reminders are sent at, with their urgency tier."),
	mcp.WithNumber("start_hour", mcp.Description("Start hour 0-23. Defaults to the user's configured start hour.")),
)

var toolListIncompleteTasks = mcp.NewTool("list_incomplete_tasks",
	mcp.WithDescription("List today's daily tasks that are not completed yet."),
)

// --- Tool handlers ---

func (h *handlers) getNextWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := planIDArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	wo, err := h.plans.NextWorkout(ctx, UserIDFromContext(ctx), id)
	if err != nil {
		h.log.Error("mcp get_next_workout", "error", err)
		return queryError(err), nil
	}
	return jsonResult(wo)
}

func (h *handlers) getPlanDays(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := planIDArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	p, days, err := h.plans.Days(ctx, UserIDFromContext(ctx), id, req.GetInt("max_days", 0))
	if err != nil {
		h.log.Error("mcp get_plan_days", "error", err)
		return queryError(err), nil
	}
	return jsonResult(map[string]any{
		"plan_id":   p.ID,
		"plan_name": p.Name,
		"days":      days,
	})
}

func (h *handlers) updateExerciseWeight(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := planIDArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	exercise, err := req.RequireString("exercise_name")
	if err != nil {
		return mcp.NewToolResultError("exercise_name parameter is required"), nil
	}
	weight, err := req.RequireString("new_weight")
	if err != nil {
		return mcp.NewToolResultError("new_weight parameter is required"), nil
	}

	res, err := h.plans.UpdateExerciseWeight(ctx, UserIDFromContext(ctx), id, exercise, weight)
	if errors.Is(err, plans.ErrInvalidWeight) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		h.log.Error("mcp update_exercise_weight", "error", err)
		return queryError(err), nil
	}
	return jsonResult(map[string]any{
		"plan_id":  res.Plan.ID,
		"exercise": res.Exercise,
		"weight":   res.Weight,
		"found":    res.Found,
		"updated":  res.Updated,
	})
}

type reminderSlot struct {
	Hour int    `json:"hour"`
	Tier string `json:"tier"`
}

func reminderSlots(start int) []reminderSlot {
	var out []reminderSlot
	for _, hr := range schedule.ReminderHours(start) {
		out = append(out, reminderSlot{Hour: hr, Tier: notify.TierForHour(hr).String()})
	}
	return out
}

// startHour returns the user's configured start hour, or the default.
func (h *handlers) startHour(ctx context.Context) (int, error) {
	cfg, err := h.reminders.LookupReminderConfig(ctx, UserIDFromContext(ctx))
	if err != nil {
		return 0, err
	}
	if cfg == nil {
		return schedule.DefaultStartHour, nil
	}
	return schedule.StartHour(*cfg), nil
}

func (h *handlers) getReminderSchedule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := req.GetInt("start_hour", -1)
	if start == -1 {
		var err error
		if start, err = h.startHour(ctx); err != nil {
			h.log.Error("mcp get_reminder_schedule", "error", err)
			return queryError(err), nil
		}
	}
	if start < 0 || start > 23 {
		return mcp.NewToolResultError("start_hour must be between 0 and 23"), nil
	}
	return jsonResult(map[string]any{
		"start_hour": start,
		"slots":      reminderSlots(start),
	})
}

func (h *handlers) listIncompleteTasks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tasks, err := h.tasks.IncompleteTasks(ctx, UserIDFromContext(ctx), h.now())
	if err != nil {
		h.log.Error("mcp list_incomplete_tasks", "error", err)
		return queryError(err), nil
	}
	return jsonResult(map[string]any{
		"count": len(tasks),
		"tasks": tasks,
	})
}
