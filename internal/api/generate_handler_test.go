package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/phrazzld/pdfstudy-api/internal/api/shared"
	"github.com/phrazzld/pdfstudy-api/internal/domain"
	"github.com/phrazzld/pdfstudy-api/internal/generation"
	"github.com/phrazzld/pdfstudy-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateBody(mode string) string {
	return fmt.Sprintf(`{"files":[{"name":"notes.pdf","type":"application/pdf","data":%q}],"mode":%q}`,
		encodedPDF(), mode)
}

func newGenerateRequest(body, accept string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return req
}

func decodeNDJSON(t *testing.T, body string) []StreamEvent {
	t.Helper()
	var out []StreamEvent
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		var ev StreamEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev), "line %q", sc.Text())
		out = append(out, ev)
	}
	return out
}

func TestGenerateStreamsText(t *testing.T) {
	_, log := logger.SetupTestLogger(t)
	qs := sampleQuestions(4)
	gen := &fakeGenerator{GenerateFn: stream(
		step{inc: generation.Increment{Delta: `[{"term":"term A",`}},
		step{inc: generation.Increment{Delta: `"definition":"definition A"}]`, Questions: qs[:1]}},
		step{inc: generation.Increment{Questions: qs, Done: true}},
	)}
	h := NewGenerateHandler(gen, 1<<20, log)

	rr := httptest.NewRecorder()
	h.Generate(rr, newGenerateRequest(generateBody("flashcards"), ""))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, `[{"term":"term A","definition":"definition A"}]`, rr.Body.String())
	assert.True(t, rr.Flushed)

	require.Len(t, gen.requests, 1)
	req := gen.requests[0]
	assert.Equal(t, domain.ModeFlashcards, req.Mode)
	require.Len(t, req.Documents, 1)
	assert.Equal(t, "notes.pdf", req.Documents[0].Name)
	assert.Equal(t, "application/pdf", req.Documents[0].MIMEType)
	assert.True(t, strings.HasPrefix(string(req.Documents[0].Data), "%PDF-"))
}

func TestGenerateUsesOnlyFirstFile(t *testing.T) {
	logBuf, log := logger.SetupTestLogger(t)
	gen := &fakeGenerator{GenerateFn: stream(
		step{inc: generation.Increment{Delta: `[]`}},
		step{inc: generation.Increment{Questions: sampleQuestions(4), Done: true}},
	)}
	h := NewGenerateHandler(gen, 1<<20, log)

	body := fmt.Sprintf(`{"files":[
		{"name":"notes.pdf","type":"application/pdf","data":%q},
		{"name":"scan.pdf","type":"application/pdf","data":"!!!not base64!!!"},
		{"name":"empty.pdf","data":""}
	],"mode":"quiz"}`, encodedPDF())

	rr := httptest.NewRecorder()
	h.Generate(rr, newGenerateRequest(body, ""))

	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, gen.requests, 1)
	require.Len(t, gen.requests[0].Documents, 1)
	assert.Equal(t, "notes.pdf", gen.requests[0].Documents[0].Name)
	logger.AssertLogContains(t, logBuf, "only the first document is used")
	logger.AssertLogContains(t, logBuf, `"ignored_documents":2`)
}

func TestGenerateStreamsNDJSON(t *testing.T) {
	_, log := logger.SetupTestLogger(t)
	qs := sampleQuestions(4)
	gen := &fakeGenerator{GenerateFn: stream(
		step{inc: generation.Increment{Delta: `[{"term"`}},
		step{inc: generation.Increment{Delta: `...`, Questions: qs[:1]}},
		step{inc: generation.Increment{Delta: `...`, Questions: qs[:1]}},
		step{inc: generation.Increment{Delta: `...`, Questions: qs[:3]}},
		step{inc: generation.Increment{Questions: qs, Done: true}},
	)}
	h := NewGenerateHandler(gen, 1<<20, log)

	rr := httptest.NewRecorder()
	h.Generate(rr, newGenerateRequest(generateBody("match"), "application/x-ndjson, application/json;q=0.5"))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, NDJSONContentType, rr.Header().Get("Content-Type"))

	evs := decodeNDJSON(t, rr.Body.String())
	require.Len(t, evs, 3, "partial events only when new questions complete")
	assert.Equal(t, StreamEventPartial, evs[0].Type)
	assert.Len(t, evs[0].Questions, 1)
	assert.Equal(t, StreamEventPartial, evs[1].Type)
	assert.Len(t, evs[1].Questions, 3)
	assert.Equal(t, StreamEventComplete, evs[2].Type)
	assert.Equal(t, qs, evs[2].Questions)
}

func TestGenerateRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		validate   error
		wantStatus int
		wantError  string
	}{
		{
			name:       "malformed json",
			body:       `{"files":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request format",
		},
		{
			name:       "no files",
			body:       `{"files":[],"mode":"quiz"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "files must contain at least 1 item(s)",
		},
		{
			name:       "missing mode",
			body:       fmt.Sprintf(`{"files":[{"name":"a.pdf","data":%q}]}`, encodedPDF()),
			wantStatus: http.StatusBadRequest,
			wantError:  "mode is required",
		},
		{
			name:       "unsupported mode",
			body:       generateBody("essay"),
			wantStatus: http.StatusBadRequest,
			wantError:  "Unsupported learning mode",
		},
		{
			name:       "invalid base64",
			body:       `{"files":[{"name":"a.pdf","data":"!!not base64!!"}],"mode":"quiz"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid document: a non-empty PDF file is required",
		},
		{
			name:       "document rejected by the generator",
			body:       generateBody("quiz"),
			validate:   fmt.Errorf("%w: 30 pages exceeds the 20 page limit", generation.ErrDocumentTooLarge),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantError:  "Document is too large",
		},
		{
			name:       "body over the limit",
			body:       `{"files":[{"name":"a.pdf","data":"` + strings.Repeat("A", 200<<10) + `"}],"mode":"quiz"}`,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantError:  "Request body is too large",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, log := logger.SetupTestLogger(t)
			gen := &fakeGenerator{
				ValidateFn: func(generation.Request) error { return tc.validate },
				GenerateFn: stream(),
			}
			h := NewGenerateHandler(gen, 1024, log)

			req := newGenerateRequest(tc.body, "")
			req = req.WithContext(shared.WithTraceID(req.Context(), "trace-gen"))
			rr := httptest.NewRecorder()
			h.Generate(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			var resp shared.ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Contains(t, resp.Error, tc.wantError)
			assert.Equal(t, "trace-gen", resp.TraceID)
			assert.Empty(t, gen.requests, "no generation for rejected requests")
		})
	}
}

func TestGenerateErrorBeforeFirstChunk(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"upstream failure", fmt.Errorf("%w: 500 INTERNAL", generation.ErrUpstreamFailure), http.StatusBadGateway},
		{"timeout", fmt.Errorf("%w: %w", generation.ErrUpstreamFailure, generation.ErrTimeout), http.StatusGatewayTimeout},
		{"schema validation", generation.ErrSchemaValidation, http.StatusBadGateway},
	}

	for _, tc := range tests {
		for format, accept := range map[string]string{"text": "", "ndjson": NDJSONContentType} {
			t.Run(tc.name+" "+format, func(t *testing.T) {
				_, log := logger.SetupTestLogger(t)
				gen := &fakeGenerator{GenerateFn: stream(step{err: tc.err})}
				h := NewGenerateHandler(gen, 1<<20, log)

				rr := httptest.NewRecorder()
				h.Generate(rr, newGenerateRequest(generateBody("quiz"), accept))

				assert.Equal(t, tc.wantStatus, rr.Code)
				assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			})
		}
	}
}

func TestGenerateTextStreamAbortsOnMidStreamError(t *testing.T) {
	_, log := logger.SetupTestLogger(t)
	gen := &fakeGenerator{GenerateFn: stream(
		step{inc: generation.Increment{Delta: `[{"term":`}},
		step{err: fmt.Errorf("%w: connection reset", generation.ErrUpstreamFailure)},
	)}
	h := NewGenerateHandler(gen, 1<<20, log)

	rr := httptest.NewRecorder()
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.Generate(rr, newGenerateRequest(generateBody("quiz"), ""))
	})
	assert.Equal(t, `[{"term":`, rr.Body.String())
}

func TestGenerateNDJSONReportsMidStreamError(t *testing.T) {
	logBuf, log := logger.SetupTestLogger(t)
	secret := "AIza" + strings.Repeat("k", 35)
	gen := &fakeGenerator{GenerateFn: stream(
		step{inc: generation.Increment{Delta: `[...`, Questions: sampleQuestions(1)}},
		step{err: fmt.Errorf("%w: key %s", generation.ErrSchemaValidation, secret)},
	)}
	h := NewGenerateHandler(gen, 1<<20, log)

	rr := httptest.NewRecorder()
	h.Generate(rr, newGenerateRequest(generateBody("flashcards"), NDJSONContentType))

	assert.Equal(t, http.StatusOK, rr.Code)
	evs := decodeNDJSON(t, rr.Body.String())
	require.Len(t, evs, 2)
	assert.Equal(t, StreamEventPartial, evs[0].Type)
	assert.Equal(t, StreamEventError, evs[1].Type)
	assert.Equal(t, "Generated content was invalid, please try again", evs[1].Error)
	assert.NotContains(t, rr.Body.String(), secret)
	logger.AssertLogContains(t, logBuf, "generation failed mid-stream")
}

func TestGenerateClientGone(t *testing.T) {
	_, log := logger.SetupTestLogger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &fakeGenerator{GenerateFn: stream(step{err: context.Canceled})}
	h := NewGenerateHandler(gen, 1<<20, log)

	rr := httptest.NewRecorder()
	h.Generate(rr, newGenerateRequest(generateBody("quiz"), "").WithContext(ctx))

	assert.Empty(t, rr.Body.String(), "nothing is written for a departed client")
}

func TestNewGenerateHandlerPanicsOnNilLogger(t *testing.T) {
	assert.Panics(t, func() { NewGenerateHandler(&fakeGenerator{}, 0, nil) })
}
