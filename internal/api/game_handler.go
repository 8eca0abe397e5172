package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/pdfstudy-api/internal/api/shared"
	"github.com/phrazzld/pdfstudy-api/internal/domain"
	"github.com/phrazzld/pdfstudy-api/internal/domain/match"
	"github.com/phrazzld/pdfstudy-api/internal/events"
	"github.com/phrazzld/pdfstudy-api/internal/platform/logger"
	"github.com/phrazzld/pdfstudy-api/internal/service/game"
)

// EventStateSnapshot is the type of the first message on a game websocket.
const EventStateSnapshot = "game.state"

// GameService manages server-hosted match games.
type GameService interface {
	Create(ctx context.Context, questions []domain.Question) (string, match.GameState, error)
	State(ctx context.Context, id string) (match.GameState, error)
	Restart(ctx context.Context, id string) (match.GameState, error)
	SelectCard(ctx context.Context, id string, cardID int) (match.GameState, error)
	Delete(ctx context.Context, id string) error
	// Observe runs fn with the current state; no event of the game is
	// emitted while fn runs.
	Observe(ctx context.Context, id string, fn func(match.GameState) error) error
}

// EventStreamer serves a live event stream for a game. subscribe is called
// once the connection is open and must call attach with the first message;
// attach also starts event delivery.
type EventStreamer interface {
	Serve(w http.ResponseWriter, r *http.Request, gameID string,
		subscribe func(attach func(initial *events.GameEvent) error) error) error
}

// GameHandler handles match game HTTP requests.
type GameHandler struct {
	games    GameService
	streamer EventStreamer
	logger   *slog.Logger
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(games GameService, streamer EventStreamer, logger *slog.Logger) *GameHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for GameHandler")
	}

	return &GameHandler{
		games:    games,
		streamer: streamer,
		logger:   logger.With(slog.String("component", "game_handler")),
	}
}

// CreateGame handles POST /api/match/games requests.
// It starts a new game from the given questions.
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := shared.DecodeJSON(w, r, &req, 0); err != nil {
		HandleAPIError(w, r, err, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, game.ErrNoQuestions, "")
		return
	}

	id, state, err := h.games.Create(r.Context(), req.Questions)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create game")
		return
	}

	logger.FromContext(r.Context()).Info("match game created",
		slog.String("game_id", id),
		slog.Int("pairs", state.TotalPairs))

	w.Header().Set("Location", "/api/match/games/"+id)
	shared.RespondWithJSON(w, r, http.StatusCreated, GameResponse{GameID: id, GameState: state})
}

// GetGame handles GET /api/match/games/{gameID} requests.
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gameID")

	state, err := h.games.State(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load game")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, GameResponse{GameID: id, GameState: state})
}

// RestartGame handles POST /api/match/games/{gameID}/start requests.
// It deals a fresh deck from the same questions and resets the clock.
func (h *GameHandler) RestartGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gameID")

	state, err := h.games.Restart(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to restart game")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, GameResponse{GameID: id, GameState: state})
}

// SelectCard handles POST /api/match/games/{gameID}/cards/{cardID}/select
// requests. Clicks that the game ignores still succeed with the unchanged
// state.
func (h *GameHandler) SelectCard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gameID")

	cardID, err := strconv.Atoi(chi.URLParam(r, "cardID"))
	if err != nil {
		HandleAPIError(w, r, game.ErrInvalidCard, "")
		return
	}

	state, err := h.games.SelectCard(r.Context(), id, cardID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to select card")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, GameResponse{GameID: id, GameState: state})
}

// DeleteGame handles DELETE /api/match/games/{gameID} requests.
func (h *GameHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gameID")

	if err := h.games.Delete(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete game")
		return
	}

	logger.FromContext(r.Context()).Info("match game deleted", slog.String("game_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// StreamGame handles GET /api/match/games/{gameID}/ws requests. The
// connection first receives the current state, then every later game event.
func (h *GameHandler) StreamGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gameID")

	// Unknown games are answered before the upgrade.
	if _, err := h.games.State(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "Failed to load game")
		return
	}

	subscribe := func(attach func(*events.GameEvent) error) error {
		return h.games.Observe(r.Context(), id, func(state match.GameState) error {
			initial, err := events.NewGameEvent(EventStateSnapshot, id, state)
			if err != nil {
				return err
			}
			return attach(initial)
		})
	}

	if err := h.streamer.Serve(w, r, id, subscribe); err != nil {
		// the upgrader has already answered the request
		h.logger.Warn("game stream failed",
			slog.String("game_id", id),
			slog.String("error", err.Error()))
	}
}
