package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/facegate/facegate/internal/web/handlers"
	"github.com/facegate/facegate/internal/web/ws"
)

func (s *Server) setupRoutes() {
	timeout := s.config.Matcher.CommandTimeout

	recognizeHandler := handlers.NewRecognizeHandler(s.deps.Gate, timeout)
	registerHandler := handlers.NewRegisterHandler(s.deps.Registry, timeout)
	dispatcher := ws.NewDispatcher(s.deps.Gate, s.deps.Registry, s.deps.Sessions, s.deps.Ledger, timeout)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// Request/response endpoints
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/recognize", recognizeHandler.Recognize)
		r.Post("/register", registerHandler.Register)
	})

	// Legacy paths used by deployed capture terminals.
	s.router.Post("/recognize", recognizeHandler.Recognize)
	s.router.Post("/register", registerHandler.Register)

	// Persistent command channel
	s.router.Get("/command", dispatcher.Handle)

	// Evidence images for the audit UI
	s.router.Handle("/static/*", http.StripPrefix("/static/",
		http.FileServer(http.Dir(s.config.Evidence.Dir))))
}
