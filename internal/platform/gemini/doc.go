// Package gemini provides an implementation of the generation.Provider interface
// that uses Google's Gemini API for structured content generation.
//
// This package is an infrastructure adapter in the hexagonal architecture,
// connecting the application's generation service to Google's external Gemini
// AI service without exposing the details of the external API to the core.
//
// Key components:
//
// 1. Provider:
//   - Implements the generation.Provider interface
//   - Sends the system instruction, user prompt and PDF as inline data
//   - Streams the JSON text produced by the model chunk by chunk
//
// 2. Schema translation:
//   - Converts the provider-neutral generation.Schema into a genai.Schema
//   - Requests application/json output constrained by that schema
//
// 3. Error Handling:
//   - Translates safety blocks into generation.ErrContentBlocked
//   - Wraps API and transport failures in generation.ErrUpstreamFailure
//   - Performs no retries; clients re-submit failed requests
//
// The package depends on the google.golang.org/genai client library.
package gemini
