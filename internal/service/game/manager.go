package game

import (
	"context"
	"log/slog"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/phrazzld/pdfstudy-api/internal/config"
	"github.com/phrazzld/pdfstudy-api/internal/domain"
	"github.com/phrazzld/pdfstudy-api/internal/domain/match"
	"github.com/phrazzld/pdfstudy-api/internal/events"
)

// Manager owns the live games of the process.
type Manager struct {
	timing      Timing
	maxGames    int
	idleTimeout time.Duration
	scheduler   Scheduler
	emitter     events.EventEmitter
	logger      *slog.Logger
	baseLogger  *slog.Logger

	now        func() time.Time
	newID      func() (string, error)
	shuffle    match.Shuffler
	onComplete CompletionFunc

	mu          sync.Mutex
	games       map[string]*entry
	stopJanitor Cancel
}

type entry struct {
	engine     *Engine
	lastActive time.Time
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithClock sets the clock used for idle tracking.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator sets the generator of public game ids.
func WithIDGenerator(newID func() (string, error)) ManagerOption {
	return func(m *Manager) { m.newID = newID }
}

// WithShuffler sets the deck shuffler of every new game.
func WithShuffler(shuffle match.Shuffler) ManagerOption {
	return func(m *Manager) { m.shuffle = shuffle }
}

// WithCompletionHook registers a function called when any game completes.
func WithCompletionHook(fn CompletionFunc) ManagerOption {
	return func(m *Manager) { m.onComplete = fn }
}

// NewManager creates a Manager and starts its idle-game janitor.
func NewManager(
	cfg config.GameConfig,
	scheduler Scheduler,
	emitter events.EventEmitter,
	logger *slog.Logger,
	opts ...ManagerOption,
) (*Manager, error) {
	if scheduler == nil {
		return nil, &GameServiceError{Operation: "create_manager", Message: "scheduler cannot be nil"}
	}
	if emitter == nil {
		return nil, &GameServiceError{Operation: "create_manager", Message: "emitter cannot be nil"}
	}
	if cfg.MaxGames <= 0 || cfg.IdleTimeout <= 0 {
		return nil, &GameServiceError{Operation: "create_manager", Message: "max games and idle timeout must be positive"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		timing:      TimingFromConfig(cfg),
		maxGames:    cfg.MaxGames,
		idleTimeout: cfg.IdleTimeout,
		scheduler:   scheduler,
		emitter:     emitter,
		logger:      logger.With("component", "game_manager"),
		baseLogger:  logger,
		now:         time.Now,
		newID:       func() (string, error) { return gonanoid.New() },
		games:       make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.stopJanitor = scheduler.Every(m.idleTimeout, func() { m.EvictIdle(context.Background()) })
	return m, nil
}

// Create starts a new game with questions and returns its id and state.
func (m *Manager) Create(ctx context.Context, questions []domain.Question) (string, match.GameState, error) {
	if err := validateQuestions(questions); err != nil {
		return "", match.GameState{}, err
	}

	m.EvictIdle(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.games) >= m.maxGames {
		m.logger.WarnContext(ctx, "game capacity reached", "max_games", m.maxGames)
		return "", match.GameState{}, ErrTooManyGames
	}

	id, err := m.newID()
	if err != nil {
		return "", match.GameState{}, NewGameServiceError("create_game", "failed to generate game id", err)
	}

	engine, err := NewEngine(id, m.timing, m.scheduler, m.emitter, m.baseLogger)
	if err != nil {
		return "", match.GameState{}, NewGameServiceError("create_game", "failed to create engine", err)
	}
	if m.shuffle != nil {
		engine.SetShuffler(m.shuffle)
	}
	if m.onComplete != nil {
		engine.OnComplete(m.onComplete)
	}

	state, err := engine.Start(ctx, questions)
	if err != nil {
		return "", match.GameState{}, err
	}

	m.games[id] = &entry{engine: engine, lastActive: m.now()}
	m.logger.InfoContext(ctx, "game created", "game_id", id, "active_games", len(m.games))
	return id, state, nil
}

// get returns the engine for id and marks it active.
func (m *Manager) get(id string) (*Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	e.lastActive = m.now()
	return e.engine, nil
}

// State returns the current state of game id.
func (m *Manager) State(ctx context.Context, id string) (match.GameState, error) {
	engine, err := m.get(id)
	if err != nil {
		return match.GameState{}, err
	}
	return engine.State(), nil
}

// Observe runs fn with the current state of game id; see Engine.Observe.
func (m *Manager) Observe(ctx context.Context, id string, fn func(match.GameState) error) error {
	engine, err := m.get(id)
	if err != nil {
		return err
	}
	return engine.Observe(fn)
}

// Restart starts game id again with the same questions.
func (m *Manager) Restart(ctx context.Context, id string) (match.GameState, error) {
	engine, err := m.get(id)
	if err != nil {
		return match.GameState{}, err
	}
	return engine.Restart(ctx)
}

// SelectCard registers a click on cardID in game id.
func (m *Manager) SelectCard(ctx context.Context, id string, cardID int) (match.GameState, error) {
	engine, err := m.get(id)
	if err != nil {
		return match.GameState{}, err
	}
	return engine.SelectCard(ctx, cardID)
}

// Delete stops and removes game id.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.games[id]
	delete(m.games, id)
	m.mu.Unlock()

	if !ok {
		return ErrGameNotFound
	}
	e.engine.Stop(ctx)
	m.logger.InfoContext(ctx, "game deleted", "game_id", id)
	return nil
}

// Exists reports whether game id is live.
func (m *Manager) Exists(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.games[id]
	return ok
}

// Len returns the number of live games.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.games)
}

// EvictIdle stops and removes games untouched for longer than the idle
// timeout. It returns the number of games removed.
func (m *Manager) EvictIdle(ctx context.Context) int {
	cutoff := m.now().Add(-m.idleTimeout)

	m.mu.Lock()
	var idle []*Engine
	for id, e := range m.games {
		if e.lastActive.Before(cutoff) {
			idle = append(idle, e.engine)
			delete(m.games, id)
		}
	}
	m.mu.Unlock()

	for _, engine := range idle {
		engine.Stop(ctx)
	}
	if len(idle) > 0 {
		m.logger.InfoContext(ctx, "evicted idle games", "count", len(idle))
	}
	return len(idle)
}

// Shutdown stops every game and the janitor.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	games := m.games
	m.games = make(map[string]*entry)
	stop := m.stopJanitor
	m.stopJanitor = nil
	m.mu.Unlock()

	if stop != nil {
		stop()
	}
	for _, e := range games {
		e.engine.Stop(ctx)
	}
	m.logger.InfoContext(ctx, "game manager stopped", "stopped_games", len(games))
}
