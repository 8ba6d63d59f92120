package schedule

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/meltforce/fitcoach/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testOpts = Options{Location: time.UTC, Concurrency: 3, SendTimeout: time.Second}

type fakeConfigs struct {
	mu      sync.Mutex
	configs []models.ReminderConfig
	marked  map[int64]time.Time
	listErr error
	markErr error
}

func (f *fakeConfigs) ListReminderConfigs(context.Context) ([]models.ReminderConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.ReminderConfig, len(f.configs))
	copy(out, f.configs)
	for i := range out {
		if at, ok := f.marked[out[i].UserID]; ok {
			out[i].LastReminderSentAt = &at
		}
	}
	return out, nil
}

func (f *fakeConfigs) MarkReminderSent(_ context.Context, userID int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	if f.marked == nil {
		f.marked = map[int64]time.Time{}
	}
	f.marked[userID] = at
	return nil
}

type fakeTasks struct {
	tasks map[int64][]models.Task
	errs  map[int64]error
	panic map[int64]bool
}

func (f *fakeTasks) IncompleteTasks(_ context.Context, userID int64, _ time.Time) ([]models.Task, error) {
	if f.panic[userID] {
		panic("task store exploded")
	}
	if err := f.errs[userID]; err != nil {
		return nil, err
	}
	return f.tasks[userID], nil
}

type sentMessage struct {
	UserID int64
	Text   string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[int64]error
}

func (f *fakeSender) Send(_ context.Context, userID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[userID]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentMessage{userID, text})
	return nil
}

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type fakeLedger struct {
	mu      sync.Mutex
	entries map[string]string
	readErr error
}

func newFakeLedger() *fakeLedger { return &fakeLedger{entries: map[string]string{}} }

func ledgerKey(kind, key, slot string) string { return fmt.Sprintf("%s/%s/%s", kind, key, slot) }

func (f *fakeLedger) Claim(_ context.Context, kind, key, slot, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := ledgerKey(kind, key, slot)
	if _, ok := f.entries[k]; ok {
		return false, nil
	}
	f.entries[k] = "pending"
	return true, nil
}

func (f *fakeLedger) Release(_ context.Context, kind, key, slot string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := ledgerKey(kind, key, slot)
	if f.entries[k] == "pending" {
		delete(f.entries, k)
	}
	return nil
}

func (f *fakeLedger) Record(_ context.Context, kind, key, slot, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[ledgerKey(kind, key, slot)] = "sent"
	return nil
}

func (f *fakeLedger) Delivered(_ context.Context, kind, key, slot string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return false, f.readErr
	}
	return f.entries[ledgerKey(kind, key, slot)] == "sent", nil
}

var errBoom = errors.New("boom")

func outcomeFor(r Report, id string) Outcome {
	for _, o := range r.Outcomes {
		if o.EntityID == id {
			return o
		}
	}
	return Outcome{}
}
