package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/pdfstudy-api/internal/api/middleware"
	"github.com/phrazzld/pdfstudy-api/internal/config"
	"github.com/phrazzld/pdfstudy-api/internal/domain/match"
	"github.com/phrazzld/pdfstudy-api/internal/events"
	"github.com/phrazzld/pdfstudy-api/internal/generation"
	"github.com/phrazzld/pdfstudy-api/internal/platform/gemini"
	"github.com/phrazzld/pdfstudy-api/internal/platform/websocket"
	"github.com/phrazzld/pdfstudy-api/internal/service/game"
	"github.com/redis/go-redis/v9"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger

	// Generation
	generator *generation.Service

	// Match games
	games *game.Manager

	// Event system
	eventEmitter *events.InMemoryEventEmitter
	hub          *websocket.Hub

	// Rate limiting
	limiter     middleware.Limiter
	redisClient *redis.Client
}

// dependencies are the external collaborators of the application. Tests
// replace them with fakes.
type dependencies struct {
	provider  generation.Provider
	scheduler game.Scheduler
}

// newApplication creates a new application instance backed by the Gemini
// API and real timers.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	provider, err := gemini.NewProvider(ctx, logger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	logger.Info("LLM provider initialized successfully", "model", cfg.LLM.ModelName)

	return newApplicationWith(ctx, cfg, logger, dependencies{
		provider:  provider,
		scheduler: game.RealScheduler{},
	})
}

// newApplicationWith wires the application around deps.
func newApplicationWith(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	deps dependencies,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.generator, err = generation.NewService(deps.provider, logger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation service: %w", err)
	}

	// Initialize event emitter and the websocket hub that consumes it
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.hub = websocket.NewHub(logger, cfg.Server.AllowedOrigins)
	app.eventEmitter.RegisterHandler(app.hub)

	app.games, err = game.NewManager(cfg.Game, deps.scheduler, app.eventEmitter, logger,
		game.WithCompletionHook(app.celebrate))
	if err != nil {
		return nil, fmt.Errorf("failed to create game manager: %w", err)
	}

	if err := app.setupRateLimiter(ctx); err != nil {
		app.games.Shutdown(ctx)
		return nil, err
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// setupRateLimiter uses Redis when configured so that every instance shares
// one allowance, and an in-process limiter otherwise.
func (app *application) setupRateLimiter(ctx context.Context) error {
	rl := app.config.RateLimit
	if rl.RedisURL == "" {
		app.limiter = middleware.NewMemoryLimiter(rl.Requests, rl.Window)
		app.logger.Info("Using in-memory rate limiter", "requests", rl.Requests, "window", rl.Window)
		return nil
	}

	client, err := middleware.NewRedisClient(ctx, rl.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to set up rate limiter: %w", err)
	}
	app.redisClient = client
	app.limiter = middleware.NewRedisLimiter(client, rl.Requests, rl.Window)
	app.logger.Info("Using Redis rate limiter", "requests", rl.Requests, "window", rl.Window)
	return nil
}

// celebrate is the completion hook of every game. Clients celebrate on the
// game.completed websocket event; the server records the result.
func (app *application) celebrate(gameID string, state match.GameState) {
	app.logger.Info("match game completed",
		"game_id", gameID,
		"pairs", state.TotalPairs,
		"elapsed_seconds", state.ElapsedSeconds)
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	// Set up router using the application dependencies
	router := app.setupRouter()

	// Start the HTTP server
	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup(ctx context.Context) {
	// Stop games first so their final events reach connected clients
	app.games.Shutdown(ctx)
	app.hub.Close()

	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("Error closing Redis connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
