package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meltforce/fitcoach/internal/daily"
	"github.com/meltforce/fitcoach/internal/journal"
	"github.com/meltforce/fitcoach/internal/models"
	"github.com/meltforce/fitcoach/internal/plans"
	"github.com/meltforce/fitcoach/internal/schedule"
	"github.com/meltforce/fitcoach/internal/storage"
)

// Store is the persistence the handlers use directly. Task and plan-text
// operations go through their services.
type Store interface {
	UserResolver
	Ping(ctx context.Context) error

	GetReminderConfig(ctx context.Context, userID int64) (*models.ReminderConfig, error)
	SaveReminderConfig(ctx context.Context, cfg models.ReminderConfig) (*models.ReminderConfig, error)
	DeleteReminderConfig(ctx context.Context, userID int64) error

	ListPlans(ctx context.Context, userID int64, includeArchived bool) ([]models.Plan, error)
	GetPlan(ctx context.Context, userID int64, id uuid.UUID) (*models.Plan, error)
	CreatePlan(ctx context.Context, plan models.Plan) (*models.Plan, error)
	UpdatePlanText(ctx context.Context, userID int64, id uuid.UUID, text string) (*models.Plan, error)
	SetPreviewHour(ctx context.Context, userID int64, id uuid.UUID, hour *int) (*models.Plan, error)
	ActivatePlan(ctx context.Context, userID int64, id uuid.UUID) (*models.Plan, error)
	ArchivePlan(ctx context.Context, userID int64, id uuid.UUID) (*models.Plan, error)
}

// Compile-time check: *storage.DB satisfies Store.
var _ Store = (*storage.DB)(nil)

// Scheduler runs ticks on demand and reports the latest runs.
type Scheduler interface {
	Run(ctx context.Context, kind string, at time.Time) (schedule.Report, error)
	RunAll(ctx context.Context, at time.Time) []schedule.Report
	Last() map[string]schedule.Report
}

var _ Scheduler = (*schedule.Runner)(nil)

// Deliveries lists recent entries of the delivery journal.
type Deliveries interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

var _ Deliveries = (*journal.Journal)(nil)

// Deps are the collaborators of the HTTP server. Scheduler and Deliveries may be nil.
type Deps struct {
	Store      Store
	Tasks      *daily.Service
	Plans      *plans.Service
	Scheduler  Scheduler
	Deliveries Deliveries
	APIKey     string
	Log        *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store      Store
	tasks      *daily.Service
	plans      *plans.Service
	scheduler  Scheduler
	deliveries Deliveries
	log        *slog.Logger
	apiKey     string
	router     chi.Router
	identity   func(http.Handler) http.Handler
	mcp        http.Handler
	now        func() time.Time
}

// New creates a new Server with all routes configured.
func New(d Deps) *Server {
	s := &Server{
		store:      d.Store,
		tasks:      d.Tasks,
		plans:      d.Plans,
		scheduler:  d.Scheduler,
		deliveries: d.Deliveries,
		log:        d.Log,
		apiKey:     d.APIKey,
		identity:   DevIdentity,
		now:        time.Now,
	}
	s.routes()
	return s
}

// SetTailscale switches caller identity from the dev user to tailnet WhoIs.
// Call before serving.
func (s *Server) SetTailscale(lc WhoIser) {
	s.identity = TailscaleIdentity(lc, s.store, s.log)
	s.routes()
}

// SetMCP mounts an MCP handler at /mcp behind the identity middleware.
// Call before serving.
func (s *Server) SetMCP(h http.Handler) {
	s.mcp = h
	s.routes()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(CORS)
	r.Use(s.identity)
	r.Use(RequestLogging(s.log))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/me", s.handleMe)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.handleListTasks)
			r.Get("/incomplete", s.handleIncompleteTasks)
			r.Get("/stats", s.handleTaskStats)
			r.Get("/history", s.handleTaskHistory)
			r.Get("/{id}/stats", s.handleSingleTaskStats)

			r.Group(func(r chi.Router) {
				r.Use(APIKeyAuth(s.apiKey))
				r.Post("/", s.handleCreateTask)
				r.Post("/reset", s.handleResetTasks)
				r.Post("/{id}/toggle", s.handleToggleTask)
				r.Delete("/{id}", s.handleDeleteTask)
			})
		})

		r.Route("/reminders", func(r chi.Router) {
			r.Get("/config", s.handleGetReminderConfig)
			r.Get("/schedule", s.handleReminderSchedule)

			r.Group(func(r chi.Router) {
				r.Use(APIKeyAuth(s.apiKey))
				r.Put("/config", s.handlePutReminderConfig)
				r.Delete("/config", s.handleDeleteReminderConfig)
			})
		})

		r.Route("/plans", func(r chi.Router) {
			r.Get("/", s.handleListPlans)
			r.Get("/{id}", s.handleGetPlan)
			r.Get("/{id}/next-workout", s.handleNextWorkout)
			r.Get("/{id}/days", s.handlePlanDays)

			r.Group(func(r chi.Router) {
				r.Use(APIKeyAuth(s.apiKey))
				r.Post("/", s.handleCreatePlan)
				r.Put("/{id}/text", s.handleUpdatePlanText)
				r.Post("/{id}/exercise-weight", s.handleUpdateExerciseWeight)
				r.Put("/{id}/preview-hour", s.handleSetPreviewHour)
				r.Post("/{id}/activate", s.handleActivatePlan)
				r.Post("/{id}/archive", s.handleArchivePlan)
			})
		})

		r.Route("/scheduler", func(r chi.Router) {
			r.Get("/last", s.handleSchedulerLast)
			r.Get("/deliveries", s.handleDeliveries)
			r.With(APIKeyAuth(s.apiKey)).Post("/run/{kind}", s.handleSchedulerRun)
		})
	})

	if s.mcp != nil {
		r.Handle("/mcp", s.mcp)
		r.Handle("/mcp/*", s.mcp)
	}

	s.router = r
}
