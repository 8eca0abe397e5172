package game

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pdfstudy-api/internal/config"
	"github.com/phrazzld/pdfstudy-api/internal/domain"
	"github.com/phrazzld/pdfstudy-api/internal/domain/match"
	"github.com/phrazzld/pdfstudy-api/internal/events"
)

// Event types emitted by an Engine.
const (
	EventGameStarted    = "game.started"
	EventCardSelected   = "game.card_selected"
	EventPairMatched    = "game.pair_matched"
	EventPairMismatched = "game.pair_mismatched"
	EventTick           = "game.tick"
	// EventGameCompleted fires exactly once per game instance, when the last
	// pair is matched. Clients use it to trigger the celebration.
	EventGameCompleted = "game.completed"
	EventGameStopped   = "game.stopped"
)

// CompletionFunc is called once, synchronously, when a game instance is
// completed. It receives the final state.
type CompletionFunc func(gameID string, state match.GameState)

// Timing holds the delays that drive a game.
type Timing struct {
	MatchDelay    time.Duration
	MismatchDelay time.Duration
	TickInterval  time.Duration
}

// TimingFromConfig extracts Timing from the game configuration.
func TimingFromConfig(cfg config.GameConfig) Timing {
	return Timing{
		MatchDelay:    cfg.MatchDelay,
		MismatchDelay: cfg.MismatchDelay,
		TickInterval:  cfg.TickInterval,
	}
}

// Engine runs one matching game. All methods are safe for concurrent use.
//
// Events are emitted while the engine's lock is held so that handlers see
// them in order; handlers must not call back into the Engine.
type Engine struct {
	id        string
	timing    Timing
	scheduler Scheduler
	emitter   events.EventEmitter
	shuffle   match.Shuffler
	onDone    CompletionFunc
	logger    *slog.Logger

	mu            sync.Mutex
	state         match.GameState
	questions     []domain.Question
	cancelPending Cancel
	// pendingSeq identifies the current pending-pair resolution. A timer
	// that fired before it was cancelled sees a newer value and does nothing.
	pendingSeq uint64
	cancelTick Cancel
}

// NewEngine creates an engine in the not-started state.
func NewEngine(
	id string,
	timing Timing,
	scheduler Scheduler,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (*Engine, error) {
	if scheduler == nil {
		return nil, &GameServiceError{Operation: "create_engine", Message: "scheduler cannot be nil"}
	}
	if emitter == nil {
		return nil, &GameServiceError{Operation: "create_engine", Message: "emitter cannot be nil"}
	}
	if timing.MatchDelay <= 0 || timing.MismatchDelay <= 0 || timing.TickInterval <= 0 {
		return nil, &GameServiceError{Operation: "create_engine", Message: "delays must be positive"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		id:        id,
		timing:    timing,
		scheduler: scheduler,
		emitter:   emitter,
		shuffle:   rand.Shuffle,
		logger:    logger.With("component", "game_engine", "game_id", id),
		state:     match.GameState{Status: match.StatusNotStarted, Cards: []match.Card{}, Selected: []int{}},
	}, nil
}

// ID returns the engine's public game id.
func (e *Engine) ID() string {
	return e.id
}

// SetShuffler replaces the deck shuffler. It affects subsequent starts.
func (e *Engine) SetShuffler(shuffle match.Shuffler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shuffle = shuffle
}

// OnComplete registers the completion hook.
func (e *Engine) OnComplete(fn CompletionFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onDone = fn
}

// State returns a snapshot of the current game state.
func (e *Engine) State() match.GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Observe calls fn with the current state while holding the engine's lock,
// so no event is emitted until fn returns. Subscribers use it to take an
// initial snapshot and start listening without missing an event. fn must not
// call back into the Engine.
func (e *Engine) Observe(fn func(match.GameState) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.state.Clone())
}

// Start begins a new game instance with questions: a fresh shuffled deck,
// elapsed time and matched pairs reset to zero. Timers of any previous
// instance are cancelled.
func (e *Engine) Start(ctx context.Context, questions []domain.Question) (match.GameState, error) {
	if err := validateQuestions(questions); err != nil {
		return match.GameState{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.questions = append([]domain.Question(nil), questions...)
	return e.startLocked(ctx), nil
}

// Restart begins a new instance with the questions of the previous one
// ("play again").
func (e *Engine) Restart(ctx context.Context) (match.GameState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.questions) == 0 {
		return match.GameState{}, ErrNoQuestions
	}
	return e.startLocked(ctx), nil
}

func (e *Engine) startLocked(ctx context.Context) match.GameState {
	e.cancelTimersLocked()

	instanceID := uuid.New()
	e.state = match.NewGame(instanceID, e.questions, e.shuffle)
	e.cancelTick = e.scheduler.Every(e.timing.TickInterval, func() { e.tick(instanceID) })

	e.logger.InfoContext(ctx, "game started",
		"instance_id", instanceID,
		"pairs", e.state.TotalPairs)
	e.emitLocked(ctx, EventGameStarted)

	return e.state.Clone()
}

// SelectCard registers a click on cardID. Clicks that the rules ignore are
// not errors; only an unknown card id is.
func (e *Engine) SelectCard(ctx context.Context, cardID int) (match.GameState, error) {
	e.mu.Lock()

	next, res, err := match.Select(e.state, cardID)
	if err != nil {
		state := e.state.Clone()
		e.mu.Unlock()
		return state, fmt.Errorf("%w: %d: %w", ErrInvalidCard, cardID, err)
	}
	if res.Outcome == match.OutcomeIgnored && res.Interrupted == nil {
		state := e.state.Clone()
		e.mu.Unlock()
		return state, nil
	}

	e.state = next
	completed := false

	if res.Interrupted != nil {
		// The pending pair was settled early; its scheduled resolution is obsolete.
		e.cancelPendingLocked()
		completed = e.afterResolveLocked(ctx, *res.Interrupted)
	}

	switch res.Outcome {
	case match.OutcomeSelected:
		e.emitLocked(ctx, EventCardSelected)
	case match.OutcomePairMatched, match.OutcomePairMismatched:
		delay := e.timing.MismatchDelay
		if res.Outcome == match.OutcomePairMatched {
			delay = e.timing.MatchDelay
		}
		e.pendingSeq++
		instanceID, seq, pair := e.state.InstanceID, e.pendingSeq, res.Pair
		e.cancelPending = e.scheduler.AfterFunc(delay, func() { e.resolve(instanceID, seq, pair) })
		e.emitLocked(ctx, EventCardSelected)
	}

	state := e.state.Clone()
	onDone := e.onDone
	e.mu.Unlock()

	if completed && onDone != nil {
		onDone(e.id, state)
	}
	return state, nil
}

// Stop tears the game down: every timer is cancelled and later callbacks
// become inert. The state is left as it was.
func (e *Engine) Stop(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelTimersLocked()
	// A fresh instance id invalidates callbacks already in flight.
	e.state.InstanceID = uuid.New()
	e.emitLocked(ctx, EventGameStopped)
}

// resolve is the delayed pair resolution scheduled by SelectCard.
func (e *Engine) resolve(instanceID uuid.UUID, seq uint64, pair match.Pair) {
	ctx := context.Background()

	e.mu.Lock()
	if e.state.InstanceID != instanceID || e.pendingSeq != seq {
		e.mu.Unlock()
		return
	}

	next, res, ok := match.Resolve(e.state, pair)
	if !ok {
		e.mu.Unlock()
		return
	}
	e.state = next
	e.cancelPending = nil
	completed := e.afterResolveLocked(ctx, res)

	state := e.state.Clone()
	onDone := e.onDone
	e.mu.Unlock()

	if completed && onDone != nil {
		onDone(e.id, state)
	}
}

// afterResolveLocked emits the events of a resolved pair and finishes the
// game when it was the last one. It reports whether the game completed.
func (e *Engine) afterResolveLocked(ctx context.Context, res match.Resolution) bool {
	if !res.Matched {
		e.emitLocked(ctx, EventPairMismatched)
		return false
	}

	e.emitLocked(ctx, EventPairMatched)
	if !res.Completed {
		return false
	}

	e.cancelTimersLocked()
	e.logger.InfoContext(ctx, "game completed",
		"instance_id", e.state.InstanceID,
		"elapsed_seconds", e.state.ElapsedSeconds)
	e.emitLocked(ctx, EventGameCompleted)
	return true
}

// tick is the periodic clock callback.
func (e *Engine) tick(instanceID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.InstanceID != instanceID {
		return
	}
	next, ok := match.Tick(e.state)
	if !ok {
		return
	}
	e.state = next
	e.emitLocked(context.Background(), EventTick)
}

func (e *Engine) cancelPendingLocked() {
	if e.cancelPending != nil {
		e.cancelPending()
		e.cancelPending = nil
	}
	e.pendingSeq++
}

func (e *Engine) cancelTimersLocked() {
	e.cancelPendingLocked()
	if e.cancelTick != nil {
		e.cancelTick()
		e.cancelTick = nil
	}
}

func (e *Engine) emitLocked(ctx context.Context, eventType string) {
	event, err := events.NewGameEvent(eventType, e.id, e.state)
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to create game event", "error", err, "event_type", eventType)
		return
	}
	if err := e.emitter.EmitEvent(ctx, event); err != nil {
		e.logger.WarnContext(ctx, "game event not delivered", "error", err, "event_type", eventType)
	}
}

func validateQuestions(questions []domain.Question) error {
	if len(questions) == 0 {
		return ErrNoQuestions
	}
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("%w: questions[%d]: %w", ErrInvalidQuestions, i, err)
		}
	}
	return nil
}
