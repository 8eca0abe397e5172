package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/phrazzld/pdfstudy-api/internal/config"
	"github.com/phrazzld/pdfstudy-api/internal/generation"
	"google.golang.org/genai"
)

// Provider implements the generation.Provider interface using
// Google's Gemini API.
type Provider struct {
	// logger is used for structured logging
	logger *slog.Logger

	// client is the Gemini API client for making requests
	client *genai.Client

	// model is the name of the Gemini model to use
	model string

	temperature float32
}

var _ generation.Provider = (*Provider)(nil)

// NewProvider creates a new Provider with the provided dependencies.
//
// Parameters:
//   - ctx: Context for the operation, which can be used for cancellation
//   - logger: A structured logger for operation logging
//   - cfg: LLM configuration containing API key, model name, and other settings
//
// Returns:
//   - A properly initialized Provider or an error if initialization fails
func NewProvider(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Provider, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	logger.InfoContext(ctx, "Gemini provider initialized", "model", cfg.ModelName)

	return &Provider{
		logger:      logger.With("component", "gemini_provider"),
		client:      client,
		model:       cfg.ModelName,
		temperature: cfg.Temperature,
	}, nil
}

// Submit streams a structured generation for req.
//
// The request is sent when the returned sequence is first iterated. Each
// element is a text fragment of the JSON document constrained by req.Schema.
// The sequence ends after the last fragment or after the first error.
func (p *Provider) Submit(ctx context.Context, req generation.ProviderRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		contents := []*genai.Content{buildContent(req)}
		genConfig := p.buildConfig(req)

		p.logger.DebugContext(ctx, "Making Gemini API call",
			"document_bytes", len(req.Document.Data),
			"mime_type", req.Document.MIMEType)

		produced := 0
		for resp, err := range p.client.Models.GenerateContentStream(ctx, p.model, contents, genConfig) {
			if err != nil {
				if ctx.Err() != nil {
					yield("", ctx.Err())
					return
				}
				p.logger.ErrorContext(ctx, "Gemini API call failed", "error", err)
				yield("", wrapAPIError(err))
				return
			}

			text, err := extractText(resp)
			if err != nil {
				p.logger.WarnContext(ctx, "Gemini response rejected", "error", err)
				yield("", err)
				return
			}
			if text == "" {
				continue
			}

			produced += len(text)
			if !yield(text, nil) {
				return
			}
		}

		if produced == 0 {
			yield("", fmt.Errorf("%w: %w", generation.ErrUpstreamFailure, ErrEmptyResponse))
			return
		}

		p.logger.DebugContext(ctx, "Gemini stream finished", "response_bytes", produced)
	}
}

// buildContent assembles the user turn: prompt text followed by the document.
func buildContent(req generation.ProviderRequest) *genai.Content {
	parts := []*genai.Part{{Text: req.Prompt}}
	if len(req.Document.Data) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: req.Document.MIMEType,
				Data:     req.Document.Data,
			},
		})
	}
	return &genai.Content{Role: "user", Parts: parts}
}

func (p *Provider) buildConfig(req generation.ProviderRequest) *genai.GenerateContentConfig {
	temperature := p.temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
		ResponseSchema:   toGenaiSchema(req.Schema),
	}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemInstruction}},
		}
	}
	return cfg
}

// extractText returns the text carried by one streamed response, or an
// error when the prompt or the candidate was blocked.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", nil
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", blockedError(fmt.Sprintf("prompt blocked: %s", fb.BlockReason))
	}

	if len(resp.Candidates) == 0 {
		return "", nil
	}

	cand := resp.Candidates[0]
	switch cand.FinishReason {
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist:
		return "", blockedError(fmt.Sprintf("response blocked: %s", cand.FinishReason))
	}

	if cand.Content == nil {
		return "", nil
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}
