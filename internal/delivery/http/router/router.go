package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/clone-service/internal/delivery/http/handler"
	"github.com/user/clone-service/internal/delivery/http/middleware"
)

func New(h *handler.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS)

	r.Get("/", h.HandleHealthCheck)
	r.Get("/health", h.HandleHealthCheck)
	r.Get("/api/health", h.HandleHealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/clone", h.HandleClone)
		r.Post("/clones", h.HandleSubmitClone)
		r.Get("/clones/{id}", h.HandleGetClone)
		r.Get("/clones/{id}/events", h.HandleCloneEvents)
		r.Get("/clones/{id}/ws", h.HandleCloneWS)
		r.Get("/clones/{id}/preview", h.HandlePreview)
	})

	return r
}
