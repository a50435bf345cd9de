package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-tagger/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	configHandler := handlers.NewConfigHandler(s.config)
	facesHandler := handlers.NewFacesHandler(s.config, s.services.Pipeline)
	contrastHandler := handlers.NewContrastHandler(s.config)
	trainHandler := handlers.NewTrainHandler(s.config, s.services.Embedder, s.services.Store,
		s.services.Pipeline, s.jobManager)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)
		r.Get("/config", configHandler.Get)

		// Matching
		r.Get("/labels", facesHandler.ListLabels)
		r.Post("/match", facesHandler.Match)
		r.Post("/recognize", facesHandler.Recognize)

		// Label colors
		r.Post("/contrast", contrastHandler.Resolve)
		r.Get("/palette", contrastHandler.Palette)

		// Training (long-running)
		r.Post("/train", trainHandler.Start)
		r.Get("/train/runs", trainHandler.Runs)
		r.Get("/train/{jobId}", trainHandler.Status)
		r.Get("/train/{jobId}/events", trainHandler.Events)
		r.Delete("/train/{jobId}", trainHandler.Cancel)
	})
}
