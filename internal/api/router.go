package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/pageindex/internal/storage"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// ws backs the preview file route.
func NewRouter(index PageIndex, ws *storage.Workspace, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(index)
	ph := NewPreviewHandler(ws)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Page index.
	r.Get("/pages", h.ListPages)
	r.Post("/pages/rebuild", h.Rebuild)
	r.Delete("/pages/cache", h.ResetCache)
	r.Get("/pages/*", h.GetPage)
	r.Get("/status", h.Status)

	// Preview images.
	r.Get(PreviewsPath+"/*", ph.ServeFile)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
