package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/pdfstudy-api/internal/api/middleware"
	"github.com/phrazzld/pdfstudy-api/internal/api/shared"
	"github.com/phrazzld/pdfstudy-api/internal/domain"
	"github.com/phrazzld/pdfstudy-api/internal/generation"
	"github.com/phrazzld/pdfstudy-api/internal/service/game"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Request size errors
	case errors.Is(err, generation.ErrDocumentTooLarge),
		errors.Is(err, shared.ErrRequestTooLarge):
		return http.StatusRequestEntityTooLarge

	// Upstream errors come first: schema failures wrap domain validation
	// errors and a timeout also matches ErrUpstreamFailure
	case errors.Is(err, generation.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, generation.ErrUpstreamFailure),
		errors.Is(err, generation.ErrSchemaValidation):
		return http.StatusBadGateway

	// Bad request errors
	case errors.Is(err, generation.ErrInvalidInput),
		errors.Is(err, generation.ErrUnsupportedMode),
		errors.Is(err, domain.ErrUnsupportedMode),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, shared.ErrInvalidJSON),
		errors.Is(err, game.ErrInvalidCard),
		errors.Is(err, game.ErrNoQuestions),
		errors.Is(err, game.ErrInvalidQuestions):
		return http.StatusBadRequest

	// Not found errors
	case errors.Is(err, game.ErrGameNotFound):
		return http.StatusNotFound

	// Capacity errors
	case errors.Is(err, middleware.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, game.ErrTooManyGames):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	// Handle nil error
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, generation.ErrTimeout):
		return "Generation timed out"
	case errors.Is(err, generation.ErrContentBlocked):
		return "The document was blocked by content safety filters"
	case errors.Is(err, generation.ErrSchemaValidation):
		return "Generated content was invalid, please try again"
	case errors.Is(err, generation.ErrUpstreamFailure):
		return "Generation failed, please try again"

	case errors.Is(err, generation.ErrDocumentTooLarge):
		return "Document is too large"
	case errors.Is(err, shared.ErrRequestTooLarge):
		return "Request body is too large"
	case errors.Is(err, shared.ErrInvalidJSON):
		return "Invalid request format"

	case errors.Is(err, generation.ErrUnsupportedMode),
		errors.Is(err, domain.ErrUnsupportedMode):
		return "Unsupported learning mode"
	case errors.Is(err, generation.ErrInvalidInput):
		return "Invalid document: a non-empty PDF file is required"

	case errors.Is(err, game.ErrGameNotFound):
		return "Game not found"
	case errors.Is(err, game.ErrInvalidCard):
		return "Invalid card"
	case errors.Is(err, game.ErrNoQuestions):
		return "At least one question is required"
	case errors.Is(err, game.ErrInvalidQuestions),
		errors.Is(err, domain.ErrValidation):
		return "Every question needs a term and a definition"
	case errors.Is(err, game.ErrTooManyGames):
		return "Too many active games, try again later"

	case errors.Is(err, middleware.ErrRateLimited):
		return "Too many requests"

	// Default case for unknown errors
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps err to a status code and safe message and writes the
// error response. The full error is only logged, after redaction.
// A non-empty defaultMsg replaces the generic message for unmapped errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		msg = defaultMsg
	}

	var opts []shared.ResponseOption
	if status == http.StatusRequestEntityTooLarge || status == http.StatusServiceUnavailable {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, msg, err, opts...)
}
