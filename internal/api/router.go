package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/dagaz/internal/journal"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *journal.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Entries.
	r.Get("/entries", h.ListEntries)
	r.Get("/entries/{date}", h.GetEntry)
	r.Put("/entries/{date}", h.PutEntry)
	r.Delete("/entries/{date}", h.DeleteEntry)
	r.Post("/entries/{date}/bullets", h.AppendBullet)
	r.Get("/entries/{date}/template", h.Template)
	r.Post("/entries/{date}/migrate", h.Migrate)

	// Derived state.
	r.Get("/search", h.Search)
	r.Get("/terms", h.Terms)
	r.Get("/terms/{term}", h.TermDetail)
	r.Get("/refs/{date}", h.Refs)
	r.Get("/stats", h.Stats)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
