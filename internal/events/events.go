package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// GameEvent represents a state change of a single match game.
type GameEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type names the change, e.g. "game.pair_matched"
	Type string `json:"type"`

	// GameID is the public identifier of the game the event belongs to
	GameID string `json:"game_id"`

	// State contains the game state after the change, serialized as JSON
	State json.RawMessage `json:"state"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalState decodes the event state into the provided structure.
func (e *GameEvent) UnmarshalState(v interface{}) error {
	return json.Unmarshal(e.State, v)
}

// NewGameEvent creates a new GameEvent with the specified type and state snapshot.
func NewGameEvent(eventType, gameID string, state interface{}) (*GameEvent, error) {
	stateBytes, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}

	return &GameEvent{
		ID:        uuid.New(),
		Type:      eventType,
		GameID:    gameID,
		State:     stateBytes,
		CreatedAt: time.Now(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
// Handlers are responsible for processing events and taking appropriate actions.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *GameEvent) error
}

// HandlerFunc adapts an ordinary function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *GameEvent) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *GameEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *GameEvent) error
}
