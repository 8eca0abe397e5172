package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/phrazzld/pdfstudy-api/internal/config"
	"github.com/phrazzld/pdfstudy-api/internal/domain"
)

// DefaultTimeout bounds a generation when the configuration leaves it unset.
const DefaultTimeout = 60 * time.Second

// Request is a generation request as received from a client.
type Request struct {
	// Documents holds the uploaded files. Only the first one is used.
	Documents []Document
	Mode      domain.Mode
}

// Increment is one step of a generation stream.
type Increment struct {
	// Delta is the raw text received from the provider in this step.
	Delta string
	// Questions holds every array element completed so far. The final
	// increment carries the full validated set.
	Questions []domain.Question
	// Done marks the final increment.
	Done bool
}

// Service generates study questions from documents.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	provider Provider
	logger   *slog.Logger
	timeout  time.Duration
	maxBytes int64
	maxPages int
}

// NewService creates a Service backed by provider. Limits and the request
// timeout are taken from cfg.
func NewService(provider Provider, logger *slog.Logger, cfg config.LLMConfig) (*Service, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: provider cannot be nil", ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestTimeout < 0 {
		return nil, fmt.Errorf("%w: request timeout cannot be negative", ErrInvalidConfig)
	}
	if cfg.MaxDocumentPages < 0 || cfg.MaxDocumentBytes < 0 {
		return nil, fmt.Errorf("%w: document limits cannot be negative", ErrInvalidConfig)
	}

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Service{
		provider: provider,
		logger:   logger.With(slog.String("component", "generation_service")),
		timeout:  timeout,
		maxBytes: cfg.MaxDocumentBytes,
		maxPages: cfg.MaxDocumentPages,
	}, nil
}

// Validate performs every check that happens before the provider is called.
func (s *Service) Validate(req Request) error {
	_, err := s.prepare(req)
	return err
}

func (s *Service) prepare(req Request) (ProviderRequest, error) {
	instruction, err := SystemInstruction(req.Mode)
	if err != nil {
		return ProviderRequest{}, err
	}
	if len(req.Documents) == 0 {
		return ProviderRequest{}, fmt.Errorf("%w: no document supplied", ErrInvalidInput)
	}

	doc := req.Documents[0]
	if err := s.checkDocument(doc); err != nil {
		return ProviderRequest{}, err
	}
	doc.MIMEType = PDFMIMEType

	return ProviderRequest{
		SystemInstruction: instruction,
		Prompt:            UserPrompt,
		Document:          doc,
		Schema:            QuestionArraySchema(),
	}, nil
}

// Generate streams the questions generated for req.
//
// Validation failures are yielded before any upstream call. Otherwise one
// Increment is yielded per provider chunk, followed by a final Increment with
// Done set once the complete result has passed validation. Any error ends
// the sequence. The whole operation is bounded by the configured timeout;
// exceeding it yields an error matching both ErrUpstreamFailure and
// ErrTimeout.
func (s *Service) Generate(ctx context.Context, req Request) iter.Seq2[Increment, error] {
	return func(yield func(Increment, error) bool) {
		preq, err := s.prepare(req)
		if err != nil {
			s.logger.WarnContext(ctx, "generation request rejected",
				slog.String("mode", string(req.Mode)),
				slog.String("error", err.Error()))
			yield(Increment{}, err)
			return
		}

		if len(req.Documents) > 1 {
			s.logger.InfoContext(ctx, "only the first document is processed",
				slog.Int("documents", len(req.Documents)))
		}

		ctx, cancel := context.WithTimeoutCause(ctx, s.timeout, ErrTimeout)
		defer cancel()

		start := time.Now()
		s.logger.DebugContext(ctx, "starting generation",
			slog.String("mode", string(req.Mode)),
			slog.String("document", preq.Document.Name),
			slog.Int("document_bytes", len(preq.Document.Data)))

		var (
			scanner   elementScanner
			text      strings.Builder
			questions []domain.Question
		)

		for chunk, err := range s.provider.Submit(ctx, preq) {
			if err != nil {
				yield(Increment{}, s.upstreamError(ctx, err))
				return
			}

			text.WriteString(chunk)
			elements, err := scanner.Feed([]byte(chunk))
			if err != nil {
				yield(Increment{}, fmt.Errorf("%w: %v", ErrSchemaValidation, err))
				return
			}
			for _, raw := range elements {
				var q domain.Question
				if err := json.Unmarshal(raw, &q); err != nil {
					yield(Increment{}, fmt.Errorf("%w: questions[%d]: %v", ErrSchemaValidation, len(questions), err))
					return
				}
				questions = append(questions, q)
			}

			if !yield(Increment{Delta: chunk, Questions: slices.Clip(questions)}, nil) {
				s.logger.DebugContext(ctx, "generation abandoned by caller")
				return
			}
		}

		// A provider may end its sequence quietly when ctx is done.
		if ctx.Err() != nil {
			yield(Increment{}, s.upstreamError(ctx, ctx.Err()))
			return
		}

		final, err := decodeResult(text.String(), req.Mode)
		if err != nil {
			s.logger.WarnContext(ctx, "generated content failed validation",
				slog.String("error", err.Error()),
				slog.Int("bytes", text.Len()))
			yield(Increment{}, err)
			return
		}

		s.logger.InfoContext(ctx, "generation complete",
			slog.String("mode", string(req.Mode)),
			slog.Int("questions", len(final)),
			slog.Duration("duration", time.Since(start)))

		yield(Increment{Questions: final, Done: true}, nil)
	}
}

// upstreamError classifies a provider failure. Timeouts of the service's own
// deadline become ErrTimeout; cancellation by the caller is passed through.
func (s *Service) upstreamError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		if errors.Is(context.Cause(ctx), ErrTimeout) {
			s.logger.WarnContext(ctx, "generation timed out", slog.Duration("timeout", s.timeout))
			return fmt.Errorf("%w: %w after %s", ErrUpstreamFailure, ErrTimeout, s.timeout)
		}
		return ctx.Err()
	}

	s.logger.ErrorContext(ctx, "provider failed", slog.String("error", err.Error()))
	if errors.Is(err, ErrUpstreamFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
}

// decodeResult strictly decodes and validates the complete provider output.
func decodeResult(text string, mode domain.Mode) ([]domain.Question, error) {
	var questions []domain.Question
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &questions); err != nil {
		return nil, fmt.Errorf("%w: result is not a JSON array of questions: %v", ErrSchemaValidation, err)
	}
	if err := domain.ValidateQuestions(questions, mode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaValidation, err)
	}
	return questions, nil
}
