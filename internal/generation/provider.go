package generation

import (
	"context"
	"iter"
)

// PDFMIMEType is the only document type accepted for generation.
const PDFMIMEType = "application/pdf"

// Document is a binary attachment submitted for generation.
type Document struct {
	Name     string
	MIMEType string
	Data     []byte
}

// ProviderRequest is a single structured-generation call.
type ProviderRequest struct {
	// SystemInstruction selects the kind of content to produce.
	SystemInstruction string
	// Prompt is the user instruction sent alongside the document.
	Prompt   string
	Document Document
	// Schema constrains the shape of the generated JSON.
	Schema *Schema
}

// Provider is the boundary to an external language model.
//
// Submit issues one request and returns a lazy sequence of raw text chunks
// which, concatenated, form a JSON document matching req.Schema. The request
// starts when the sequence is first iterated. A non-nil error ends the
// sequence; stopping iteration early or cancelling ctx abandons the request.
type Provider interface {
	Submit(ctx context.Context, req ProviderRequest) iter.Seq2[string, error]
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, req ProviderRequest) iter.Seq2[string, error]

// Submit calls f(ctx, req).
func (f ProviderFunc) Submit(ctx context.Context, req ProviderRequest) iter.Seq2[string, error] {
	return f(ctx, req)
}
