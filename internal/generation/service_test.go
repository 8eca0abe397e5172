package generation

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/pdfstudy-api/internal/config"
	"github.com/phrazzld/pdfstudy-api/internal/domain"
	"github.com/phrazzld/pdfstudy-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocument() Document {
	return Document{Name: "notes.pdf", MIMEType: PDFMIMEType, Data: []byte("%PDF-1.7 test document")}
}

func newTestService(t *testing.T, provider Provider, timeout time.Duration) *Service {
	t.Helper()
	svc, err := NewService(provider, nil, config.LLMConfig{RequestTimeout: timeout})
	require.NoError(t, err)
	return svc
}

// collect drains a generation stream.
func collect(seq iter.Seq2[Increment, error]) ([]Increment, error) {
	var incs []Increment
	for inc, err := range seq {
		if err != nil {
			return incs, err
		}
		incs = append(incs, inc)
	}
	return incs, nil
}

func TestNewService(t *testing.T) {
	t.Parallel()

	_, err := NewService(nil, nil, config.LLMConfig{})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewService(&fakeProvider{}, nil, config.LLMConfig{RequestTimeout: -time.Second})
	require.ErrorIs(t, err, ErrInvalidConfig)

	svc, err := NewService(&fakeProvider{}, nil, config.LLMConfig{})
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, svc.timeout)
}

func TestGenerateStreamsIncrements(t *testing.T) {
	t.Parallel()

	chunks := splitEvery(flashcardResult, 40)
	provider := &fakeProvider{SubmitFn: streamChunks(chunks...)}
	svc := newTestService(t, provider, time.Minute)

	incs, err := collect(svc.Generate(context.Background(), Request{
		Documents: []Document{testDocument()},
		Mode:      domain.ModeFlashcards,
	}))
	require.NoError(t, err)
	require.Len(t, incs, len(chunks)+1)

	var text strings.Builder
	prev := 0
	for _, inc := range incs[:len(incs)-1] {
		assert.False(t, inc.Done)
		text.WriteString(inc.Delta)
		assert.GreaterOrEqual(t, len(inc.Questions), prev, "questions only grow")
		prev = len(inc.Questions)
	}
	assert.Equal(t, flashcardResult, text.String())

	final := incs[len(incs)-1]
	assert.True(t, final.Done)
	assert.Empty(t, final.Delta)
	require.Len(t, final.Questions, 4)
	assert.Equal(t, "What is photosynthesis?", final.Questions[0].Term)
}

func TestGenerateBuildsProviderRequest(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{SubmitFn: streamChunks(quizResult)}
	svc := newTestService(t, provider, time.Minute)

	other := testDocument()
	other.Name = "ignored.pdf"
	doc := testDocument()
	doc.MIMEType = ""

	_, err := collect(svc.Generate(context.Background(), Request{
		Documents: []Document{doc, other},
		Mode:      domain.ModeQuiz,
	}))
	require.NoError(t, err)

	reqs := provider.Requests()
	require.Len(t, reqs, 1, "exactly one upstream request")
	req := reqs[0]
	assert.Equal(t, quizInstruction, req.SystemInstruction)
	assert.Equal(t, UserPrompt, req.Prompt)
	assert.Equal(t, "notes.pdf", req.Document.Name, "only the first document is sent")
	assert.Equal(t, PDFMIMEType, req.Document.MIMEType)
	assert.Equal(t, QuestionArraySchema(), req.Schema)
}

func TestGenerateQuizResultCarriesChoices(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &fakeProvider{SubmitFn: streamChunks(splitEvery(quizResult, 11)...)}, time.Minute)

	incs, err := collect(svc.Generate(context.Background(), Request{
		Documents: []Document{testDocument()},
		Mode:      domain.ModeQuiz,
	}))
	require.NoError(t, err)

	final := incs[len(incs)-1]
	require.True(t, final.Done)
	for _, q := range final.Questions {
		assert.Len(t, q.Options, 4)
		assert.Contains(t, domain.Answers, q.Answer)
	}
}

func TestGenerateRejectsInvalidInputWithoutUpstreamCall(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{name: "no documents", req: Request{Mode: domain.ModeQuiz}, wantErr: ErrInvalidInput},
		{name: "empty document", req: Request{Documents: []Document{{Name: "x.pdf"}}, Mode: domain.ModeQuiz}, wantErr: ErrInvalidInput},
		{name: "unknown mode", req: Request{Documents: []Document{testDocument()}, Mode: "essay"}, wantErr: ErrUnsupportedMode},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			provider := &fakeProvider{SubmitFn: streamChunks(flashcardResult)}
			svc := newTestService(t, provider, time.Minute)

			incs, err := collect(svc.Generate(context.Background(), tc.req))
			require.ErrorIs(t, err, tc.wantErr)
			assert.Empty(t, incs)
			assert.Empty(t, provider.Requests())
		})
	}
}

func TestGenerateSchemaValidationFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mode   domain.Mode
		output string
	}{
		{
			name:   "too few questions",
			mode:   domain.ModeFlashcards,
			output: `[{"term":"a","definition":"b"},{"term":"c","definition":"d"}]`,
		},
		{
			name: "missing definition",
			mode: domain.ModeFlashcards,
			output: `[{"term":"a","definition":"b"},{"term":"c","definition":"d"},` +
				`{"term":"e","definition":"f"},{"term":"g"}]`,
		},
		{
			name:   "quiz question without options",
			mode:   domain.ModeQuiz,
			output: flashcardResult,
		},
		{
			name:   "truncated output",
			mode:   domain.ModeFlashcards,
			output: flashcardResult[:len(flashcardResult)/2],
		},
		{
			name:   "not an array",
			mode:   domain.ModeFlashcards,
			output: `{"questions": []}`,
		},
		{
			name:   "wrong field type",
			mode:   domain.ModeFlashcards,
			output: `[{"term": 1, "definition": "x"}]`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(t, &fakeProvider{SubmitFn: streamChunks(tc.output)}, time.Minute)

			incs, err := collect(svc.Generate(context.Background(), Request{
				Documents: []Document{testDocument()},
				Mode:      tc.mode,
			}))
			require.ErrorIs(t, err, ErrSchemaValidation)
			for _, inc := range incs {
				assert.False(t, inc.Done, "no partial success")
			}
		})
	}
}

func TestGenerateUpstreamFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	provider := &fakeProvider{SubmitFn: func(ctx context.Context, _ ProviderRequest) iter.Seq2[string, error] {
		return func(yield func(string, error) bool) {
			if !yield(`[{"term":"a",`, nil) {
				return
			}
			yield("", boom)
		}
	}}
	svc := newTestService(t, provider, time.Minute)

	incs, err := collect(svc.Generate(context.Background(), Request{
		Documents: []Document{testDocument()},
		Mode:      domain.ModeFlashcards,
	}))
	require.ErrorIs(t, err, ErrUpstreamFailure)
	require.ErrorIs(t, err, boom)
	assert.Len(t, incs, 1)
}

func TestGenerateKeepsProviderClassification(t *testing.T) {
	t.Parallel()

	blocked := errors.Join(ErrUpstreamFailure, ErrContentBlocked)
	provider := &fakeProvider{SubmitFn: func(ctx context.Context, _ ProviderRequest) iter.Seq2[string, error] {
		return func(yield func(string, error) bool) { yield("", blocked) }
	}}
	svc := newTestService(t, provider, time.Minute)

	_, err := collect(svc.Generate(context.Background(), Request{
		Documents: []Document{testDocument()},
		Mode:      domain.ModeFlashcards,
	}))
	require.ErrorIs(t, err, ErrContentBlocked)
	require.ErrorIs(t, err, ErrUpstreamFailure)
}

func TestGenerateTimeout(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{SubmitFn: func(ctx context.Context, _ ProviderRequest) iter.Seq2[string, error] {
		return func(yield func(string, error) bool) {
			if !yield("[", nil) {
				return
			}
			<-ctx.Done()
			yield("", ctx.Err())
		}
	}}
	svc := newTestService(t, provider, 20*time.Millisecond)

	_, err := collect(svc.Generate(context.Background(), Request{
		Documents: []Document{testDocument()},
		Mode:      domain.ModeFlashcards,
	}))
	require.ErrorIs(t, err, ErrTimeout)
	require.ErrorIs(t, err, ErrUpstreamFailure)
}

func TestGenerateCallerCancellation(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{SubmitFn: func(ctx context.Context, _ ProviderRequest) iter.Seq2[string, error] {
		return func(yield func(string, error) bool) {
			<-ctx.Done()
		}
	}}
	svc := newTestService(t, provider, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := collect(svc.Generate(ctx, Request{
		Documents: []Document{testDocument()},
		Mode:      domain.ModeFlashcards,
	}))
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestGenerateStopsProviderWhenCallerBreaks(t *testing.T) {
	t.Parallel()

	produced := 0
	provider := &fakeProvider{SubmitFn: func(ctx context.Context, _ ProviderRequest) iter.Seq2[string, error] {
		return func(yield func(string, error) bool) {
			for _, c := range splitEvery(flashcardResult, 5) {
				produced++
				if !yield(c, nil) {
					return
				}
			}
		}
	}}
	svc := newTestService(t, provider, time.Minute)

	received := 0
	for _, err := range svc.Generate(context.Background(), Request{
		Documents: []Document{testDocument()},
		Mode:      domain.ModeFlashcards,
	}) {
		require.NoError(t, err)
		received++
		if received == 3 {
			break
		}
	}

	assert.Equal(t, 3, produced, "provider stops once the caller stops")
}

func TestGenerateLogsCompletion(t *testing.T) {
	buf, log := logger.SetupTestLogger(t)

	svc, err := NewService(&fakeProvider{SubmitFn: streamChunks(flashcardResult)}, log, config.LLMConfig{})
	require.NoError(t, err)

	_, err = collect(svc.Generate(context.Background(), Request{
		Documents: []Document{testDocument()},
		Mode:      domain.ModeMatch,
	}))
	require.NoError(t, err)

	logger.AssertLogContains(t, buf, "generation complete")
	logger.AssertLogNotContains(t, buf, "%PDF-1.7")
}
