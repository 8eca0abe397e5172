package game

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/pdfstudy-api/internal/domain"
	"github.com/phrazzld/pdfstudy-api/internal/domain/match"
	"github.com/phrazzld/pdfstudy-api/internal/events"
	"github.com/stretchr/testify/require"
)

var testTiming = Timing{
	MatchDelay:    500 * time.Millisecond,
	MismatchDelay: time.Second,
	TickInterval:  time.Second,
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingEmitter captures emitted events in order.
type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.GameEvent
}

func (r *recordingEmitter) EmitEvent(ctx context.Context, event *events.GameEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEmitter) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

func (r *recordingEmitter) Count(eventType string) int {
	n := 0
	for _, t := range r.Types() {
		if t == eventType {
			n++
		}
	}
	return n
}

func (r *recordingEmitter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func testQuestions(n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{
			Term:       "term " + string(rune('A'+i)),
			Definition: "definition " + string(rune('A'+i)),
		}
	}
	return qs
}

// identity leaves the deck in creation order: question card 2i and answer
// card 2i+1 belong to question i.
func identity(int, func(i, j int)) {}

func newTestEngine(t *testing.T) (*Engine, *ManualScheduler, *recordingEmitter) {
	t.Helper()
	sched := NewManualScheduler()
	emitter := &recordingEmitter{}
	e, err := NewEngine("game-1", testTiming, sched, emitter, discardLogger())
	require.NoError(t, err)
	e.SetShuffler(identity)
	return e, sched, emitter
}

func pairOf(s match.GameState, matchID int) (int, int) {
	q, a := -1, -1
	for _, c := range s.Cards {
		if c.MatchID == matchID {
			if c.Type == match.CardTypeQuestion {
				q = c.ID
			} else {
				a = c.ID
			}
		}
	}
	return q, a
}
