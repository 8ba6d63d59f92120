package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) today(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)
	now := h.now()

	tasks, err := h.tasks.Tasks(ctx, uid, now)
	if err != nil {
		return nil, err
	}

	summary := map[string]any{
		"date":  now.Format(time.DateOnly),
		"tasks": tasks,
	}

	wo, err := h.plans.NextWorkout(ctx, uid, uuid.Nil)
	if err != nil {
		h.log.Debug("today: no next workout", "error", err)
	} else {
		summary["next_workout"] = wo
	}

	start, err := h.startHour(ctx)
	if err != nil {
		h.log.Warn("today: reminder config lookup failed", "error", err)
	} else {
		var remaining []int
		for _, s := range reminderSlots(start) {
			if s.Hour > now.Hour() {
				remaining = append(remaining, s.Hour)
			}
		}
		summary["remaining_reminder_hours"] = remaining
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
