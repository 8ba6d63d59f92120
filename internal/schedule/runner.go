package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"
)

// Ticker is one kind of scheduled work.
type Ticker interface {
	Tick(ctx context.Context, now time.Time) Report
}

// Runner drives the reminder and preview ticks at the top of every local
// hour and the reset tick at local midnight.
type Runner struct {
	reminders Ticker
	previews  Ticker
	resets    Ticker
	loc       *time.Location
	log       *slog.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	mu   sync.Mutex
	last map[string]Report

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRunner creates a runner. Any ticker may be nil to disable that loop.
func NewRunner(reminders, previews, resets Ticker, loc *time.Location, log *slog.Logger) *Runner {
	if loc == nil {
		loc = time.Local
	}
	return &Runner{
		reminders: reminders,
		previews:  previews,
		resets:    resets,
		loc:       loc,
		log:       log,
		now:       time.Now,
		after:     time.After,
		last:      make(map[string]Report),
		stopCh:    make(chan struct{}),
	}
}

// Start launches one goroutine per enabled loop.
func (r *Runner) Start(ctx context.Context) {
	loops := []struct {
		kind string
		next func(time.Time) time.Time
	}{
		{KindReminders, NextHour},
		{KindPreviews, NextHour},
		{KindResets, NextMidnight},
	}
	for _, l := range loops {
		if r.ticker(l.kind) == nil {
			continue
		}
		r.wg.Add(1)
		go r.loop(ctx, l.kind, l.next)
	}
	r.log.Info("scheduler started", "timezone", r.loc.String())
}

// Stop halts the loops and waits for in-flight ticks to finish.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context, kind string, next func(time.Time) time.Time) {
	defer r.wg.Done()
	for {
		now := r.now().In(r.loc)
		wait := next(now).Sub(now)
		r.log.Debug("next tick scheduled", "kind", kind, "in", wait.Round(time.Second).String())

		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-r.after(wait):
			if _, err := r.Run(ctx, kind, r.now()); err != nil {
				r.log.Error("scheduled tick", "kind", kind, "error", err)
			}
		}
	}
}

// Run executes one tick of kind at the given instant and remembers its report.
func (r *Runner) Run(ctx context.Context, kind string, at time.Time) (Report, error) {
	t := r.ticker(kind)
	if t == nil {
		return Report{}, fmt.Errorf("unknown or disabled tick kind %q", kind)
	}
	report := t.Tick(ctx, at)

	r.mu.Lock()
	r.last[kind] = report
	r.mu.Unlock()
	return report, nil
}

// RunAll runs every enabled tick once, resets first so reminders see the new day.
func (r *Runner) RunAll(ctx context.Context, at time.Time) []Report {
	var out []Report
	for _, kind := range []string{KindResets, KindReminders, KindPreviews} {
		if r.ticker(kind) == nil {
			continue
		}
		rep, _ := r.Run(ctx, kind, at)
		out = append(out, rep)
	}
	return out
}

// Last returns the most recent report of each kind that has run.
func (r *Runner) Last() map[string]Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.last)
}

func (r *Runner) ticker(kind string) Ticker {
	var t Ticker
	switch kind {
	case KindReminders:
		t = r.reminders
	case KindPreviews:
		t = r.previews
	case KindResets:
		t = r.resets
	}
	return t
}

// NextHour returns the start of the hour after t in t's location.
func NextHour(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour()+1, 0, 0, 0, t.Location())
}

// NextMidnight returns the start of the day after t in t's location.
func NextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
