package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mdpad/internal/session"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(sess *session.Session, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(sess)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/document", func(r chi.Router) {
		r.Get("/", h.GetDocument)
		r.Put("/", h.UpdateDocument)
		r.Post("/reset", h.ResetDocument)
		r.Post("/import", h.ImportDocument)
		r.Post("/keys", h.HandleKey)
		r.Post("/scroll", h.Scroll)
		r.Get("/preview", h.Preview)
	})

	r.Get("/export/markdown", h.ExportMarkdown)
	r.Get("/export/bundle", h.ExportBundle)

	r.Get("/preferences", h.GetPreferences)
	r.Put("/preferences", h.UpdatePreferences)

	r.Get("/layout", h.GetLayout)
	r.Put("/layout/geometry", h.SetGeometry)
	r.Post("/layout/pointer", h.Pointer)

	r.Get("/files", h.ListFiles)
	r.Post("/files/open", h.OpenFile)
	r.Post("/files/save", h.SaveFile)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
