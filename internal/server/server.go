// Package server provides the HTTP server and routing for Nautilus.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	assessmenthandlers "github.com/dkaragia/nautilus/internal/modules/assessment/handlers"
)

// Config holds server configuration.
type Config struct {
	Port    int
	DevMode bool
	Log     zerolog.Logger

	AssessmentHandler *assessmenthandlers.Handler
	SystemHandlers    *SystemHandlers
}

// Server wraps the chi router and the underlying http.Server.
type Server struct {
	router chi.Router
	server *http.Server
	log    zerolog.Logger
}

// New creates the server and wires middleware and routes.
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes(cfg Config) {
	s.router.Route("/api", func(r chi.Router) {
		r.Route("/assessment", func(r chi.Router) {
			h := cfg.AssessmentHandler
			r.Get("/risk", h.HandleRiskAnalysis)
			r.Get("/correlation", h.HandleCorrelation)
			r.Get("/stress", h.HandleStressTest)
			r.Post("/stress", h.HandleStressTest)
			r.Get("/complete", h.HandleCompleteAssessment)
			r.Get("/strategies", h.HandleStrategies)
			r.Get("/optimize", h.HandleOptimize)
			r.Post("/optimize", h.HandleOptimize)
		})

		r.Route("/system", func(r chi.Router) {
			h := cfg.SystemHandlers
			r.Get("/health", h.HandleHealth)
			r.Get("/info", h.HandleInfo)
		})
	})
}

// Start begins listening. Blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server starting")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
