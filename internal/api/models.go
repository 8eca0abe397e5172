package api

import (
	"github.com/phrazzld/pdfstudy-api/internal/domain"
	"github.com/phrazzld/pdfstudy-api/internal/domain/match"
)

// Common request/response structures

// FileUpload is one uploaded document. Data is base64, optionally as a
// "data:<type>;base64," URL.
type FileUpload struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Data string `json:"data"`
}

// GenerateRequest defines the payload for the generation endpoint. Only the
// first file is decoded; the rest are accepted and ignored.
type GenerateRequest struct {
	Files []FileUpload `json:"files" validate:"required,min=1"`
	Mode  string       `json:"mode"  validate:"required"`
}

// Stream event types sent in NDJSON generation responses.
const (
	StreamEventPartial  = "partial"
	StreamEventComplete = "complete"
	StreamEventError    = "error"
)

// StreamEvent is one line of an NDJSON generation response.
type StreamEvent struct {
	Type      string            `json:"type"`
	Questions []domain.Question `json:"questions,omitempty"`
	Error     string            `json:"error,omitempty"`
	TraceID   string            `json:"trace_id,omitempty"`
}

// CreateGameRequest defines the payload for creating a match game.
type CreateGameRequest struct {
	Questions []domain.Question `json:"questions" validate:"required,min=1"`
}

// GameResponse is a game's public id together with its state.
type GameResponse struct {
	GameID string `json:"game_id"`
	match.GameState
}
