package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/pdfstudy-api/internal/api"
	apiMiddleware "github.com/phrazzld/pdfstudy-api/internal/api/middleware"
	"github.com/phrazzld/pdfstudy-api/internal/api/shared"
	"github.com/rs/cors"
)

// setupRouter creates and configures the application router with all routes and middleware.
// It accepts the application dependencies to create handlers and register routes.
// Returns the configured router.
func (app *application) setupRouter() http.Handler {
	// Create a router
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: app.config.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", "Origin", "X-Requested-With", shared.TraceIDHeader},
		ExposedHeaders: []string{shared.TraceIDHeader, "Retry-After", "X-RateLimit-Remaining"},
		MaxAge:         86400,
	}).Handler)

	// Create API handlers using the application's services
	generateHandler := api.NewGenerateHandler(app.generator, app.config.LLM.MaxDocumentBytes, app.logger)
	gameHandler := api.NewGameHandler(app.games, app.hub, app.logger)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		r.With(apiMiddleware.RateLimit(app.limiter)).Post("/generate", generateHandler.Generate)

		r.Route("/match/games", func(r chi.Router) {
			r.Post("/", gameHandler.CreateGame)
			r.Route("/{gameID}", func(r chi.Router) {
				r.Get("/", gameHandler.GetGame)
				r.Delete("/", gameHandler.DeleteGame)
				r.Post("/start", gameHandler.RestartGame)
				r.Post("/cards/{cardID}/select", gameHandler.SelectCard)
				r.Get("/ws", gameHandler.StreamGame)
			})
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
