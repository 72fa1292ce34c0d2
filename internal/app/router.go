package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taskway/taskway/internal/accounts"
	"github.com/taskway/taskway/internal/auth"
	"github.com/taskway/taskway/internal/boards"
	"github.com/taskway/taskway/internal/notifications"
	"github.com/taskway/taskway/internal/observability"
	"github.com/taskway/taskway/internal/tasks"
	"github.com/taskway/taskway/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger               *slog.Logger
	Config               *Config
	AuthMiddleware       *auth.Middleware
	AuthHandler          *auth.Handler
	AccountsHandler      *accounts.Handler
	BoardsHandler        *boards.Handler
	TasksHandler         *tasks.Handler
	NotificationsHandler *notifications.Handler
	JobsHandler          *jobs.Handler
	Metrics              *observability.Metrics
}

// NewRouter constructs the chi.Router with Taskway defaults. Login,
// health and metrics stay public; everything else sits behind the
// bearer token gate.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(params.AuthMiddleware.RequireToken)
			params.AuthHandler.MountProtectedRoutes(r)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(params.AuthMiddleware.RequireToken)
		r.Route("/accounts", params.AccountsHandler.MountRoutes)
		r.Route("/boards", params.BoardsHandler.MountRoutes)
		r.Route("/tasks", params.TasksHandler.MountRoutes)
		r.Route("/notifications", params.NotificationsHandler.MountRoutes)
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
