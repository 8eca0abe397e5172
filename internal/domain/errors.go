// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrUnsupportedMode is returned when a learning mode is not recognised.
	ErrUnsupportedMode = errors.New("unsupported learning mode")

	// ErrTooFewQuestions is returned when a question set is smaller than MinQuestions.
	ErrTooFewQuestions = errors.New("too few questions")

	// ErrMissingChoices is returned when a quiz question lacks options or an answer.
	ErrMissingChoices = errors.New("quiz question requires options and answer")
)
