package api

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/phrazzld/pdfstudy-api/internal/api/shared"
	"github.com/phrazzld/pdfstudy-api/internal/domain"
	"github.com/phrazzld/pdfstudy-api/internal/generation"
	"github.com/phrazzld/pdfstudy-api/internal/platform/logger"
)

// NDJSONContentType selects the event stream response of the generation
// endpoint.
const NDJSONContentType = "application/x-ndjson"

// Generator produces study questions from documents.
type Generator interface {
	Validate(req generation.Request) error
	Generate(ctx context.Context, req generation.Request) iter.Seq2[generation.Increment, error]
}

// GenerateHandler handles document upload and streamed question generation.
type GenerateHandler struct {
	generator    Generator
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewGenerateHandler creates a new GenerateHandler. maxDocumentBytes is the
// largest decoded document accepted. Only the first uploaded file is used, so
// the request body limit covers one base64 document plus a small allowance
// for the JSON envelope and any ignored extra files.
func NewGenerateHandler(generator Generator, maxDocumentBytes int64, logger *slog.Logger) *GenerateHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for GenerateHandler")
	}

	var maxBody int64
	if maxDocumentBytes > 0 {
		maxBody = maxDocumentBytes/3*4 + 64<<10
	}

	return &GenerateHandler{
		generator:    generator,
		maxBodyBytes: maxBody,
		logger:       logger.With(slog.String("component", "generate_handler")),
	}
}

// Generate handles POST /api/generate requests.
//
// Request errors are answered with a JSON error and a mapped status code.
// Once validation has passed, the result is streamed: as raw model text by
// default, or as NDJSON StreamEvents when the client accepts
// application/x-ndjson.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var body GenerateRequest
	if err := shared.DecodeJSON(w, r, &body, h.maxBodyBytes); err != nil {
		HandleAPIError(w, r, err, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&body); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, shared.DescribeValidationError(err), err)
		return
	}

	req, err := toGenerationRequest(body)
	if err != nil {
		HandleAPIError(w, r, err, "Invalid request")
		return
	}
	if ignored := len(body.Files) - 1; ignored > 0 {
		log.Info("only the first document is used",
			slog.Int("ignored_documents", ignored))
	}
	if err := h.generator.Validate(req); err != nil {
		HandleAPIError(w, r, err, "Invalid request")
		return
	}

	log.Info("generation requested",
		slog.String("mode", req.Mode.String()),
		slog.Int("documents", len(req.Documents)),
		slog.Int("document_bytes", len(req.Documents[0].Data)))

	if acceptsNDJSON(r) {
		h.streamEvents(w, r, req)
		return
	}
	h.streamText(w, r, req)
}

// streamText writes the raw model output. A failure after the first byte
// aborts the response so the client sees an incomplete stream rather than a
// truncated success.
func (h *GenerateHandler) streamText(w http.ResponseWriter, r *http.Request, req generation.Request) {
	rc := http.NewResponseController(w)
	started := false

	for inc, err := range h.generator.Generate(r.Context(), req) {
		if err != nil {
			if r.Context().Err() != nil {
				h.logger.Debug("client went away during generation", slog.String("error", err.Error()))
				return
			}
			if !started {
				HandleAPIError(w, r, err, "Generation failed")
				return
			}
			h.logAbort(r, err)
			// ALLOW-PANIC: net/http aborts the response without logging
			panic(http.ErrAbortHandler)
		}
		if inc.Delta == "" {
			continue
		}

		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := w.Write([]byte(inc.Delta)); err != nil {
			h.logger.Debug("client went away during generation", slog.String("error", err.Error()))
			return
		}
		_ = rc.Flush()
	}
}

// streamEvents writes one StreamEvent per line: a partial event whenever new
// questions are complete, then a complete or error event.
func (h *GenerateHandler) streamEvents(w http.ResponseWriter, r *http.Request, req generation.Request) {
	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)
	started := false
	sent := 0

	write := func(ev StreamEvent) bool {
		if !started {
			w.Header().Set("Content-Type", NDJSONContentType)
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if err := enc.Encode(ev); err != nil {
			h.logger.Debug("client went away during generation", slog.String("error", err.Error()))
			return false
		}
		_ = rc.Flush()
		return true
	}

	for inc, err := range h.generator.Generate(r.Context(), req) {
		if err != nil {
			if r.Context().Err() != nil {
				h.logger.Debug("client went away during generation", slog.String("error", err.Error()))
				return
			}
			if !started {
				HandleAPIError(w, r, err, "Generation failed")
				return
			}
			h.logAbort(r, err)
			write(StreamEvent{
				Type:    StreamEventError,
				Error:   GetSafeErrorMessage(err),
				TraceID: shared.GetTraceID(r.Context()),
			})
			return
		}

		switch {
		case inc.Done:
			write(StreamEvent{Type: StreamEventComplete, Questions: inc.Questions})
			return
		case len(inc.Questions) > sent:
			sent = len(inc.Questions)
			if !write(StreamEvent{Type: StreamEventPartial, Questions: inc.Questions}) {
				return
			}
		}
	}
}

func (h *GenerateHandler) logAbort(r *http.Request, err error) {
	logger.FromContext(r.Context()).Error("generation failed mid-stream",
		slog.Int("status_code", MapErrorToStatusCode(err)),
		slog.String("error", err.Error()))
}

// toGenerationRequest decodes the mode and the first uploaded file. Later
// files are never inspected.
func toGenerationRequest(body GenerateRequest) (generation.Request, error) {
	mode, err := domain.ParseMode(body.Mode)
	if err != nil {
		return generation.Request{}, err
	}

	f := body.Files[0]
	data, urlType, err := generation.DecodeData(f.Data)
	if err != nil {
		return generation.Request{}, fmt.Errorf("files[0]: %w", err)
	}
	mimeType := f.Type
	if mimeType == "" {
		mimeType = urlType
	}

	doc := generation.Document{Name: f.Name, MIMEType: mimeType, Data: data}
	return generation.Request{Documents: []generation.Document{doc}, Mode: mode}, nil
}

func acceptsNDJSON(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mediaType == NDJSONContentType {
			return true
		}
	}
	return false
}
