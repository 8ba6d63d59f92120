package models

import (
	"time"

	"github.com/google/uuid"
)

// Plan is a workout plan. PlanText is the persisted, LLM-authored plan body.
type Plan struct {
	ID          uuid.UUID `json:"id"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PlanText    string    `json:"plan_text"`
	Active      bool      `json:"active"`
	Archived    bool      `json:"archived"`
	PreviewHour *int      `json:"preview_hour,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PreviewDue reports whether the plan should get a preview at the given hour.
func (p Plan) PreviewDue(hour int) bool {
	return p.Active && !p.Archived && p.PreviewHour != nil && *p.PreviewHour == hour
}
