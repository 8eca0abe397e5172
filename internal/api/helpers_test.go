package api

import (
	"context"
	"encoding/base64"
	"iter"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/pdfstudy-api/internal/domain"
	"github.com/phrazzld/pdfstudy-api/internal/domain/match"
	"github.com/phrazzld/pdfstudy-api/internal/events"
	"github.com/phrazzld/pdfstudy-api/internal/generation"
)

// fakeGenerator implements Generator with overridable behavior.
type fakeGenerator struct {
	ValidateFn func(req generation.Request) error
	GenerateFn func(ctx context.Context, req generation.Request) iter.Seq2[generation.Increment, error]

	requests []generation.Request
}

func (f *fakeGenerator) Validate(req generation.Request) error {
	if f.ValidateFn != nil {
		return f.ValidateFn(req)
	}
	return nil
}

func (f *fakeGenerator) Generate(ctx context.Context, req generation.Request) iter.Seq2[generation.Increment, error] {
	f.requests = append(f.requests, req)
	return f.GenerateFn(ctx, req)
}

// step is one item yielded by a fake generation stream.
type step struct {
	inc generation.Increment
	err error
}

func stream(steps ...step) func(context.Context, generation.Request) iter.Seq2[generation.Increment, error] {
	return func(context.Context, generation.Request) iter.Seq2[generation.Increment, error] {
		return func(yield func(generation.Increment, error) bool) {
			for _, s := range steps {
				if !yield(s.inc, s.err) {
					return
				}
			}
		}
	}
}

// fakeGameService implements GameService with overridable behavior.
type fakeGameService struct {
	CreateFn     func(ctx context.Context, questions []domain.Question) (string, match.GameState, error)
	StateFn      func(ctx context.Context, id string) (match.GameState, error)
	RestartFn    func(ctx context.Context, id string) (match.GameState, error)
	SelectCardFn func(ctx context.Context, id string, cardID int) (match.GameState, error)
	DeleteFn     func(ctx context.Context, id string) error
	ObserveFn    func(ctx context.Context, id string, fn func(match.GameState) error) error
}

func (f *fakeGameService) Create(ctx context.Context, questions []domain.Question) (string, match.GameState, error) {
	return f.CreateFn(ctx, questions)
}

func (f *fakeGameService) State(ctx context.Context, id string) (match.GameState, error) {
	return f.StateFn(ctx, id)
}

func (f *fakeGameService) Restart(ctx context.Context, id string) (match.GameState, error) {
	return f.RestartFn(ctx, id)
}

func (f *fakeGameService) SelectCard(ctx context.Context, id string, cardID int) (match.GameState, error) {
	return f.SelectCardFn(ctx, id, cardID)
}

func (f *fakeGameService) Delete(ctx context.Context, id string) error {
	return f.DeleteFn(ctx, id)
}

func (f *fakeGameService) Observe(ctx context.Context, id string, fn func(match.GameState) error) error {
	return f.ObserveFn(ctx, id, fn)
}

// fakeStreamer records Serve calls and the message passed to attach.
type fakeStreamer struct {
	gameID  string
	initial *events.GameEvent
	err     error
	// onAttach runs when the handler attaches the connection.
	onAttach func()
}

func (f *fakeStreamer) Serve(
	w http.ResponseWriter,
	r *http.Request,
	gameID string,
	subscribe func(attach func(initial *events.GameEvent) error) error,
) error {
	f.gameID = gameID
	w.WriteHeader(http.StatusSwitchingProtocols)
	f.err = subscribe(func(initial *events.GameEvent) error {
		f.initial = initial
		if f.onAttach != nil {
			f.onAttach()
		}
		return nil
	})
	return f.err
}

func sampleQuestions(n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{
			Term:       "term " + string(rune('A'+i)),
			Definition: "definition " + string(rune('A'+i)),
		}
	}
	return qs
}

func encodedPDF() string {
	return base64.StdEncoding.EncodeToString([]byte("%PDF-1.4\n%test document\n"))
}

// withURLParams attaches chi route parameters to r.
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
