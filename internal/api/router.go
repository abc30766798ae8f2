package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/library"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(lib *library.Handle, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(lib)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes (read-only, the store is never written).
	r.Get("/notes", h.ListNotes)
	r.Get("/notes/{id}", h.GetNote)

	// Search and name lists.
	r.Get("/search", h.Search)
	r.Get("/tags", h.Tags)
	r.Get("/mentions", h.Mentions)

	// Full export and store metadata.
	r.Get("/export", h.Export)
	r.Get("/meta", h.Meta)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
