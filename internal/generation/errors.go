package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrInvalidInput is returned when a request is rejected before any
	// upstream call, e.g. no document or a document that is not a PDF
	ErrInvalidInput = errors.New("invalid generation input")

	// ErrUnsupportedMode is returned when the learning mode has no instruction template
	ErrUnsupportedMode = errors.New("unsupported generation mode")

	// ErrDocumentTooLarge is returned when a document exceeds the size or page limit
	ErrDocumentTooLarge = errors.New("document too large")

	// ErrUpstreamFailure is returned when the language model provider fails
	ErrUpstreamFailure = errors.New("upstream generation failed")

	// ErrContentBlocked is returned when the provider blocks the content due to safety filters.
	// It is always wrapped together with ErrUpstreamFailure.
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTimeout is returned when generation exceeds the configured time limit.
	// It is always wrapped together with ErrUpstreamFailure.
	ErrTimeout = errors.New("generation timed out")

	// ErrSchemaValidation is returned when the completed result does not match
	// the question schema
	ErrSchemaValidation = errors.New("generated content failed schema validation")

	// ErrInvalidConfig is returned when the service or a provider is misconfigured
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
