package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"tailscale.com/client/tailscale/apitype"
	"tailscale.com/tailcfg"

	"github.com/meltforce/fitcoach/internal/daily"
	"github.com/meltforce/fitcoach/internal/journal"
	"github.com/meltforce/fitcoach/internal/models"
	"github.com/meltforce/fitcoach/internal/plans"
	"github.com/meltforce/fitcoach/internal/schedule"
	"github.com/meltforce/fitcoach/internal/storage"
)

const testAPIKey = "secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory stand-in for *storage.DB.
type memStore struct {
	mu       sync.Mutex
	pingErr  error
	users    map[string]int64
	nextTask int64
	tasks    map[int64][]models.Task
	configs  map[int64]models.ReminderConfig
	plans    map[uuid.UUID]models.Plan
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[string]int64{"local": 1},
		tasks:   map[int64][]models.Task{},
		configs: map[int64]models.ReminderConfig{},
		plans:   map[uuid.UUID]models.Plan{},
	}
}

var (
	_ Store       = (*memStore)(nil)
	_ daily.Store = (*memStore)(nil)
	_ plans.Store = (*memStore)(nil)
)

func (m *memStore) Ping(context.Context) error { return m.pingErr }

func (m *memStore) GetOrCreateUser(_ context.Context, login, _ string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.users[login]; ok {
		return id, nil
	}
	id := int64(len(m.users) + 1)
	m.users[login] = id
	return id, nil
}

func (m *memStore) ListTasks(_ context.Context, userID int64) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.tasks[userID]), nil
}

func (m *memStore) ListIncompleteTasks(_ context.Context, userID int64) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Task
	for _, t := range m.tasks[userID] {
		if !t.Completed {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) ListTaskOwners(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int64
	for id := range m.tasks {
		out = append(out, id)
	}
	return out, nil
}

func (m *memStore) CreateTask(_ context.Context, userID int64, title string) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTask++
	t := models.Task{ID: m.nextTask, UserID: userID, Title: title, CreatedAt: time.Now()}
	m.tasks[userID] = append(m.tasks[userID], t)
	return &t, nil
}

func (m *memStore) GetTask(_ context.Context, userID, taskID int64) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks[userID] {
		if t.ID == taskID {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("task %d: %w", taskID, storage.ErrNotFound)
}

func (m *memStore) ToggleTask(_ context.Context, userID, taskID int64, _ string) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.tasks[userID] {
		if t.ID == taskID {
			t.Completed = !t.Completed
			m.tasks[userID][i] = t
			return &t, nil
		}
	}
	return nil, fmt.Errorf("task %d: %w", taskID, storage.ErrNotFound)
}

func (m *memStore) DeleteTask(_ context.Context, userID, taskID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.tasks[userID])
	m.tasks[userID] = slices.DeleteFunc(m.tasks[userID], func(t models.Task) bool { return t.ID == taskID })
	if len(m.tasks[userID]) == n {
		return fmt.Errorf("task %d: %w", taskID, storage.ErrNotFound)
	}
	return nil
}

func (m *memStore) ResetTasks(_ context.Context, userID int64, decide func([]models.Task) ([]models.Task, *models.CompletionRecord)) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, rec := decide(slices.Clone(m.tasks[userID]))
	if rec == nil {
		return false, nil
	}
	m.tasks[userID] = next
	return true, nil
}

func (m *memStore) CompletionDates(context.Context, int64) ([]time.Time, error) {
	return nil, nil
}

func (m *memStore) CompletionRecords(context.Context, int64, string) ([]models.CompletionRecord, error) {
	return nil, nil
}

func (m *memStore) GetReminderConfig(_ context.Context, userID int64) (*models.ReminderConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[userID]
	if !ok {
		return nil, fmt.Errorf("reminder config: %w", storage.ErrNotFound)
	}
	return &cfg, nil
}

func (m *memStore) SaveReminderConfig(_ context.Context, cfg models.ReminderConfig) (*models.ReminderConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.configs[cfg.UserID]; ok && cfg.BotToken == "" {
		cfg.BotToken = prev.BotToken
	}
	m.configs[cfg.UserID] = cfg
	return &cfg, nil
}

func (m *memStore) DeleteReminderConfig(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.configs[userID]; !ok {
		return fmt.Errorf("reminder config: %w", storage.ErrNotFound)
	}
	delete(m.configs, userID)
	return nil
}

func (m *memStore) ListPlans(_ context.Context, userID int64, includeArchived bool) ([]models.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Plan
	for _, p := range m.plans {
		if p.UserID == userID && (includeArchived || !p.Archived) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) GetPlan(_ context.Context, userID int64, id uuid.UUID) (*models.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok || p.UserID != userID {
		return nil, fmt.Errorf("plan %s: %w", id, storage.ErrNotFound)
	}
	return &p, nil
}

func (m *memStore) ActivePlan(_ context.Context, userID int64) (*models.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.plans {
		if p.UserID == userID && p.Active {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("active plan: %w", storage.ErrNotFound)
}

func (m *memStore) CreatePlan(_ context.Context, p models.Plan) (*models.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	m.plans[p.ID] = p
	return &p, nil
}

func (m *memStore) update(userID int64, id uuid.UUID, fn func(*models.Plan)) (*models.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok || p.UserID != userID {
		return nil, fmt.Errorf("plan %s: %w", id, storage.ErrNotFound)
	}
	fn(&p)
	m.plans[id] = p
	return &p, nil
}

func (m *memStore) UpdatePlanText(_ context.Context, userID int64, id uuid.UUID, text string) (*models.Plan, error) {
	return m.update(userID, id, func(p *models.Plan) { p.PlanText = text })
}

func (m *memStore) SetPreviewHour(_ context.Context, userID int64, id uuid.UUID, hour *int) (*models.Plan, error) {
	return m.update(userID, id, func(p *models.Plan) { p.PreviewHour = hour })
}

func (m *memStore) ActivatePlan(_ context.Context, userID int64, id uuid.UUID) (*models.Plan, error) {
	m.mu.Lock()
	for pid, p := range m.plans {
		if p.UserID == userID && p.Active {
			p.Active = false
			m.plans[pid] = p
		}
	}
	m.mu.Unlock()
	return m.update(userID, id, func(p *models.Plan) { p.Active = true; p.Archived = false })
}

func (m *memStore) ArchivePlan(_ context.Context, userID int64, id uuid.UUID) (*models.Plan, error) {
	return m.update(userID, id, func(p *models.Plan) { p.Active = false; p.Archived = true })
}

type fakeScheduler struct {
	runs []string
}

func (f *fakeScheduler) Run(_ context.Context, kind string, at time.Time) (schedule.Report, error) {
	if kind != schedule.KindReminders {
		return schedule.Report{}, fmt.Errorf("unknown tick kind %q", kind)
	}
	f.runs = append(f.runs, kind)
	return schedule.Report{Kind: kind, At: at}, nil
}

func (f *fakeScheduler) RunAll(_ context.Context, at time.Time) []schedule.Report {
	f.runs = append(f.runs, "all")
	return []schedule.Report{{Kind: schedule.KindResets, At: at}, {Kind: schedule.KindReminders, At: at}}
}

func (f *fakeScheduler) Last() map[string]schedule.Report {
	return map[string]schedule.Report{schedule.KindReminders: {Kind: schedule.KindReminders}}
}

type fakeDeliveries []journal.Entry

func (f fakeDeliveries) Recent(_ context.Context, limit int) ([]journal.Entry, error) {
	return f[:min(limit, len(f))], nil
}

type fakeWhoIs map[string]*apitype.WhoIsResponse

func (f fakeWhoIs) WhoIs(_ context.Context, addr string) (*apitype.WhoIsResponse, error) {
	if who, ok := f[addr]; ok {
		return who, nil
	}
	return nil, errors.New("no such peer")
}

func whoIs(login, name string) *apitype.WhoIsResponse {
	return &apitype.WhoIsResponse{UserProfile: &tailcfg.UserProfile{LoginName: login, DisplayName: name}}
}

var testNow = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

func newTestServer(store *memStore, sched Scheduler, deliveries Deliveries) *Server {
	log := discardLogger()
	s := New(Deps{
		Store:      store,
		Tasks:      daily.NewService(store, time.UTC, log),
		Plans:      plans.NewService(store, log),
		Scheduler:  sched,
		Deliveries: deliveries,
		APIKey:     testAPIKey,
		Log:        log,
	})
	s.now = func() time.Time { return testNow }
	return s
}
