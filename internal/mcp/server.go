package mcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int64 {
	if id, ok := ctx.Value(userIDKey).(int64); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Deps are the services the tools read from and write to.
type Deps struct {
	Plans     PlanSource
	Tasks     TaskSource
	Reminders ReminderConfigs
	// Location is the zone "today" and reminder hours are evaluated in. Defaults to Local.
	Location *time.Location
}

// New creates an MCP server with all tools and resources registered.
func New(d Deps, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("FitCoach", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("FitCoach training assistant. Read the next workout and plan days, update exercise weights in the active plan, and check daily tasks and the reminder schedule. All data is scoped to the authenticated user."),
	)

	h := newHandlers(d, log)

	s.AddTools(
		server.ServerTool{Tool: toolGetNextWorkout, Handler: h.getNextWorkout},
		server.ServerTool{Tool: toolGetPlanDays, Handler: h.getPlanDays},
		server.ServerTool{Tool: toolUpdateExerciseWeight, Handler: h.updateExerciseWeight},
		server.ServerTool{Tool: toolGetReminderSchedule, Handler: h.getReminderSchedule},
		server.ServerTool{Tool: toolListIncompleteTasks, Handler: h.listIncompleteTasks},
	)

	s.AddResources(
		server.ServerResource{Resource: resToday, Handler: h.today},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	plans     PlanSource
	tasks     TaskSource
	reminders ReminderConfigs
	log       *slog.Logger
	now       func() time.Time
}

func newHandlers(d Deps, log *slog.Logger) *handlers {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	return &handlers{
		plans:     d.Plans,
		tasks:     d.Tasks,
		reminders: d.Reminders,
		log:       log,
		now:       func() time.Time { return time.Now().In(loc) },
	}
}

// --- Resource definitions ---

var resToday = mcp.NewResource(
	"fitcoach://today",
	"Today",
	mcp.WithResourceDescription("Today's daily tasks, the next workout of the active plan, and the remaining reminder hours"),
	mcp.WithMIMEType("application/json"),
)
