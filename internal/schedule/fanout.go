package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency = 4
	defaultSendTimeout = 15 * time.Second
)

// Options tune how a tick fans out over users and plans.
type Options struct {
	// Location is the zone reminder and preview hours are read in.
	Location    *time.Location
	Concurrency int
	// SendTimeout bounds a single entity's work so a slow send cannot stall the tick.
	SendTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Concurrency <= 0 {
		o.Concurrency = defaultConcurrency
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = defaultSendTimeout
	}
	return o
}

// fanOut runs fn for every item with at most opts.Concurrency in flight.
// Each item has its own error boundary: a panic becomes a failed Outcome for
// that item only. Outcomes keep the order of items.
func fanOut[T any](ctx context.Context, opts Options, log *slog.Logger, items []T, id func(T) string, fn func(context.Context, T) Outcome) []Outcome {
	out := make([]Outcome, len(items))
	var g errgroup.Group
	g.SetLimit(opts.Concurrency)
	for i, item := range items {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					log.Error("entity panicked", "entity_id", id(item), "panic", r)
					out[i] = failed(id(item), ReasonPanic, fmt.Errorf("panic: %v", r))
				}
			}()
			ectx, cancel := context.WithTimeout(ctx, opts.SendTimeout)
			defer cancel()
			out[i] = fn(ectx, item)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func logReport(log *slog.Logger, r Report) {
	log.Info("tick complete",
		"kind", r.Kind,
		"run_id", r.RunID,
		"sent", r.Sent(),
		"skipped", r.Skipped(),
		"failed", r.Failed(),
		"reset", r.Count(StatusReset),
	)
}
