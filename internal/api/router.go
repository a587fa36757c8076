package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/granola-sync/internal/meetings"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(sync Syncer, m *meetings.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(sync, m)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Sync control.
	r.Get("/status", h.Status)
	r.Post("/sync", h.Sync)

	// Meetings.
	r.Get("/meetings", h.ListMeetings)
	r.Get("/meetings/{id}", h.GetMeeting)
	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

// Health mounts unauthenticated liveness and readiness checks. ready reports
// whether dependencies are usable; nil means always ready.
func Health(r chi.Router, ready func() error) {
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if ready != nil {
			if err := ready(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
