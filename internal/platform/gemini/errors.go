package gemini

import (
	"errors"
	"fmt"

	"github.com/phrazzld/pdfstudy-api/internal/generation"
	"google.golang.org/genai"
)

// Error definitions for the gemini package.
var (
	// ErrEmptyResponse is returned when the stream ends without any text.
	ErrEmptyResponse = errors.New("model returned no content")
)

// wrapAPIError classifies an error returned by the genai client.
func wrapAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: gemini API error %d %s: %s",
			generation.ErrUpstreamFailure, apiErr.Code, apiErr.Status, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return fmt.Errorf("%w: gemini API error %d %s: %s",
			generation.ErrUpstreamFailure, apiErrPtr.Code, apiErrPtr.Status, apiErrPtr.Message)
	}
	return fmt.Errorf("%w: %w", generation.ErrUpstreamFailure, err)
}

// blockedError reports a response stopped by safety filters.
func blockedError(reason string) error {
	return fmt.Errorf("%w: %w: %s", generation.ErrUpstreamFailure, generation.ErrContentBlocked, reason)
}
