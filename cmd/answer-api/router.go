// Package main provides the answer API router setup.
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/mueller-baumaschinen/answer-engine/cmd/answer-api/handlers"
	"github.com/mueller-baumaschinen/answer-engine/cmd/answer-api/middleware"
	"github.com/mueller-baumaschinen/answer-engine/internal/config"
	"github.com/mueller-baumaschinen/answer-engine/internal/resolver"
	"github.com/mueller-baumaschinen/answer-engine/internal/store"
)

// NewRouter wires all routes. Every route is registered twice, at the root
// and under /api, so the widget embed path and the reverse-proxy path both
// work without rewrites.
func NewRouter(logger zerolog.Logger, cfg *config.Config, coord *store.Coordinator, res *resolver.Resolver, llmConfigured bool) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(chimiddleware.Timeout(cfg.Server.WriteTimeout))

	chatHandler := handlers.NewChatHandler(logger, res)
	faqHandler := handlers.NewFAQHandler(logger, coord, res)
	healthHandler := handlers.NewHealthHandler(logger, coord, llmConfigured)

	register := func(r chi.Router) {
		r.Get("/health", healthHandler.Get)
		r.Head("/health", healthHandler.Get)

		r.With(chimiddleware.Throttle(cfg.Server.ChatRateLimit)).
			Post("/chat", chatHandler.Post)

		r.Get("/faq", faqHandler.List)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminOnly(cfg.Server.AdminToken))
			r.Post("/faq", faqHandler.ReplaceAll)
			r.Post("/faq/single", faqHandler.AppendSingle)
			r.Delete("/cache", faqHandler.ClearCache)
		})
	}

	r.Group(register)
	r.Route("/api", register)

	return r
}
