package game

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the game service.
// The API layer maps these to HTTP status codes.
var (
	// ErrGameNotFound indicates that no game exists for the given id.
	// API layer should map this to HTTP 404 Not Found.
	ErrGameNotFound = errors.New("game not found")

	// ErrTooManyGames indicates that the manager is at capacity.
	// API layer should map this to HTTP 503 Service Unavailable.
	ErrTooManyGames = errors.New("too many active games")

	// ErrNoQuestions indicates that a game was started without questions.
	// API layer should map this to HTTP 400 Bad Request.
	ErrNoQuestions = errors.New("a game requires at least one question")

	// ErrInvalidQuestions indicates that a question lacks a term or definition.
	// API layer should map this to HTTP 400 Bad Request.
	ErrInvalidQuestions = errors.New("invalid game questions")

	// ErrInvalidCard indicates that a card id does not exist in the game.
	// API layer should map this to HTTP 400 Bad Request.
	ErrInvalidCard = errors.New("invalid card")
)

// GameServiceError wraps errors from the game service with context.
type GameServiceError struct {
	// Operation is the operation that failed (e.g., "create_game", "select_card")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for GameServiceError.
func (e *GameServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("game service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("game service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *GameServiceError) Unwrap() error {
	return e.Err
}

// NewGameServiceError creates a new GameServiceError.
// It returns known sentinel errors directly without wrapping.
func NewGameServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	for _, sentinel := range []error{ErrGameNotFound, ErrTooManyGames, ErrNoQuestions} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}

	return &GameServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
