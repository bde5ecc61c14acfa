package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/geowarn/geowarn/internal/config"
	"github.com/geowarn/geowarn/internal/dispatch"
	"github.com/geowarn/geowarn/internal/escalation"
)

// NewRouter sets up all routes and returns the http.Handler.
func NewRouter(cfgMgr *config.Manager, manager *escalation.Manager, dispatcher *dispatch.Dispatcher, prefs *dispatch.PreferenceStore) http.Handler {
	r := chi.NewRouter()

	handlers := NewHandlers(manager, dispatcher, prefs)
	health := NewHealthHandler(manager)

	// Public routes
	r.Get("/healthz", health.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(RequireToken(cfgMgr))

		r.Post("/api/escalations", handlers.Initiate)
		r.Post("/api/escalations/acknowledge", handlers.BulkAcknowledge)
		r.Get("/api/escalations/{id}", handlers.Status)
		r.Post("/api/escalations/{id}/acknowledge", handlers.Acknowledge)
		r.Post("/api/escalations/{id}/resolve", handlers.Resolve)

		r.Post("/api/notifications/preferences", handlers.SetPreference)
		r.Get("/api/notifications/preferences/{userID}", handlers.GetPreference)
		r.Post("/api/notifications/test", handlers.TestChannels)
	})

	return r
}
