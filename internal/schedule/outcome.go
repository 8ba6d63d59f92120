package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Status of one entity in a tick.
type Status string

const (
	StatusSent    Status = "sent"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
	StatusReset   Status = "reset"
)

// Skip and failure reasons.
const (
	ReasonOutsideWindow = "outside_window"
	ReasonNotScheduled  = "hour_not_scheduled"
	ReasonRecentlySent  = "recently_sent"
	ReasonNoTasks       = "no_incomplete_tasks"
	ReasonEmptyPlan     = "empty_plan_text"
	ReasonNoWorkout     = "no_workout_found"
	ReasonAlreadySent   = "already_sent"
	ReasonNotDue        = "not_due"
	ReasonNotConfigured = "not_configured"
	ReasonSendFailed    = "send_failed"
	ReasonLoadFailed    = "load_failed"
	ReasonPanic         = "panic"
)

// Tick kinds.
const (
	KindReminders = "reminders"
	KindPreviews  = "previews"
	KindResets    = "resets"
)

// Outcome is what happened to one user or plan during a tick.
type Outcome struct {
	EntityID string `json:"entity_id"`
	Status   Status `json:"status"`
	Reason   string `json:"reason,omitempty"`
	Err      error  `json:"-"`
	Error    string `json:"error,omitempty"`
}

func sent(id string) Outcome { return Outcome{EntityID: id, Status: StatusSent} }

func skipped(id, reason string) Outcome {
	return Outcome{EntityID: id, Status: StatusSkipped, Reason: reason}
}

func failed(id, reason string, err error) Outcome {
	o := Outcome{EntityID: id, Status: StatusFailed, Reason: reason, Err: err}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}

// Report collects the outcomes of one tick.
type Report struct {
	Kind     string    `json:"kind"`
	RunID    uuid.UUID `json:"run_id"`
	At       time.Time `json:"at"`
	Outcomes []Outcome `json:"outcomes"`
	Err      string    `json:"error,omitempty"`
}

func newReport(kind string, at time.Time) Report {
	return Report{Kind: kind, RunID: uuid.New(), At: at}
}

// Count returns how many outcomes have the given status.
func (r Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

func (r Report) Sent() int    { return r.Count(StatusSent) }
func (r Report) Skipped() int { return r.Count(StatusSkipped) }
func (r Report) Failed() int  { return r.Count(StatusFailed) }
