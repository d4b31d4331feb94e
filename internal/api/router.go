package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/worksledger/internal/worksservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *worksservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/works", h.ListWorks)
	r.Post("/works", h.CreateWorks)
	r.Get("/works/{key}", h.GetWorks)
	r.Put("/works/{key}", h.UpdateWorks)
	r.Delete("/works/{key}", h.DeleteWorks)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
