package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wayfarer-app/wayfarer/internal/auth"
	"github.com/wayfarer-app/wayfarer/internal/expenses"
	"github.com/wayfarer-app/wayfarer/internal/observability"
	"github.com/wayfarer-app/wayfarer/internal/participants"
	"github.com/wayfarer-app/wayfarer/internal/shared"
	"github.com/wayfarer-app/wayfarer/internal/trips"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	AuthHandler        *auth.Handler
	TripHandler        *trips.Handler
	ParticipantHandler *participants.Handler
	ExpenseHandler     *expenses.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Route("/trips", func(r chi.Router) {
			params.TripHandler.MountRoutes(r,
				params.ParticipantHandler.MountRoutes,
				params.ExpenseHandler.MountRoutes,
			)
		})
	})

	return r
}
