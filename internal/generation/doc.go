// Package generation turns an uploaded PDF into study questions by way of a
// streaming structured-output language model.
//
// The package owns everything that does not depend on a particular vendor:
// the request and document checks, the instruction templates for each
// learning mode, the provider-neutral response Schema, incremental decoding
// of the streamed JSON array, and the strict validation of the completed
// result. Vendors plug in through the narrow Provider interface; the Gemini
// implementation lives in internal/platform/gemini.
//
// Service.Generate returns a range-over-func iterator. Each Increment carries
// the raw text chunk received from the provider and the questions completed
// so far, so callers can forward text as it arrives or render questions one
// by one. The final Increment has Done set and contains the validated set.
package generation
