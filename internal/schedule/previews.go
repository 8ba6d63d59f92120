package schedule

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/meltforce/fitcoach/internal/journal"
	"github.com/meltforce/fitcoach/internal/models"
	"github.com/meltforce/fitcoach/internal/notify"
	"github.com/meltforce/fitcoach/internal/plantext"
)

// slotLayout identifies a local date and hour in the delivery ledger.
const slotLayout = "2006-01-02T15"

// PlanStore lists the plans that may receive previews.
type PlanStore interface {
	ListActivePlans(ctx context.Context) ([]models.Plan, error)
}

// Previews sends the next workout of each plan at its configured preview hour.
type Previews struct {
	plans  PlanStore
	sender Sender
	ledger Ledger
	opts   Options
	log    *slog.Logger
}

// NewPreviews creates the preview tick. Without a ledger, overlapping ticks in
// the same hour may send a preview twice.
func NewPreviews(plans PlanStore, sender Sender, ledger Ledger, opts Options, log *slog.Logger) *Previews {
	return &Previews{plans: plans, sender: sender, ledger: ledger, opts: opts.withDefaults(), log: log}
}

// Tick sends previews for every plan due at now's local hour.
func (p *Previews) Tick(ctx context.Context, now time.Time) Report {
	now = now.In(p.opts.Location)
	report := newReport(KindPreviews, now)
	log := p.log.With("run_id", report.RunID)

	plans, err := p.plans.ListActivePlans(ctx)
	if err != nil {
		log.Error("listing active plans", "error", err)
		report.Err = err.Error()
		return report
	}

	var due []models.Plan
	for _, pl := range plans {
		if pl.PreviewDue(now.Hour()) {
			due = append(due, pl)
		}
	}

	slot := now.Format(slotLayout)
	report.Outcomes = fanOut(ctx, p.opts, log, due,
		func(pl models.Plan) string { return pl.ID.String() },
		func(ctx context.Context, pl models.Plan) Outcome {
			return p.preview(ctx, log, pl, slot, report.RunID.String())
		})
	logReport(log, report)
	return report
}

func (p *Previews) preview(ctx context.Context, log *slog.Logger, plan models.Plan, slot, runID string) Outcome {
	id := plan.ID.String()
	log = log.With("plan_id", id, "user_id", plan.UserID)

	if strings.TrimSpace(plan.PlanText) == "" {
		log.Warn("preview skipped, plan has no text")
		return skipped(id, ReasonEmptyPlan)
	}
	day, ok := plantext.NextWorkout(plan.PlanText)
	if !ok {
		log.Warn("preview skipped, no workout found in plan text")
		return skipped(id, ReasonNoWorkout)
	}

	if p.ledger != nil {
		claimed, err := p.ledger.Claim(ctx, journal.KindPreview, id, slot, runID)
		if err != nil {
			log.Error("claiming preview slot", "error", err)
			return failed(id, ReasonLoadFailed, err)
		}
		if !claimed {
			log.Debug("preview skipped", "reason", ReasonAlreadySent, "slot", slot)
			return skipped(id, ReasonAlreadySent)
		}
	}

	if err := p.sender.Send(ctx, plan.UserID, notify.RenderPreview(plan.Name, day)); err != nil {
		if p.ledger != nil {
			if rerr := p.ledger.Release(context.WithoutCancel(ctx), journal.KindPreview, id, slot); rerr != nil {
				log.Warn("releasing preview slot", "error", rerr)
			}
		}
		if errors.Is(err, notify.ErrNotConfigured) {
			log.Warn("preview not sent, telegram not configured")
			return failed(id, ReasonNotConfigured, err)
		}
		log.Error("sending preview", "error", err)
		return failed(id, ReasonSendFailed, err)
	}

	if p.ledger != nil {
		if err := p.ledger.Record(context.WithoutCancel(ctx), journal.KindPreview, id, slot, runID); err != nil {
			log.Warn("journaling preview", "error", err)
		}
	}
	log.Info("preview sent", "day", day.Label, "exercises", len(day.Exercises))
	return sent(id)
}
