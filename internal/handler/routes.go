package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pkordes/petrol-logbook/internal/middleware"
)

// RouterConfig carries the cross-cutting middleware settings.
type RouterConfig struct {
	CORSOrigins  []string
	MaxBodyBytes int64
}

// NewRouter builds the complete HTTP handler.
// Middleware is applied in order: RequestID → RealIP → SlogLogger →
// Recoverer → CORS → MaxBodySize → Metrics. Everything except health,
// the API document, metrics and login requires a bearer token.
func NewRouter(s *Server, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(s.log))
	r.Use(chimiddleware.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	}
	if cfg.MaxBodyBytes > 0 {
		r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	}
	r.Use(middleware.NewMetricsHandler(s.metrics))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Post("/login", s.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthHandler(s.auth, s.log))

		r.Post("/logout", s.Logout)
		r.Get("/session", s.GetSession)
		r.Post("/session/cancel", s.CancelSession)

		r.Get("/entries", s.ListEntries)
		r.Post("/entries", s.CreateEntry)
		r.Post("/entries/{serial}/edit", s.BeginEdit)
		r.Put("/entries/{serial}", s.UpdateEntry)
		r.Post("/entries/{serial}/delete", s.BeginDelete)
		r.Delete("/entries/{serial}", s.DeleteEntry)

		r.Get("/export", s.GetExport)
	})
	return r
}
