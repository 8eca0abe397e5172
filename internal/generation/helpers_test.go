package generation

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"
)

// fakeProvider is a Provider whose behavior is set per test.
type fakeProvider struct {
	mu       sync.Mutex
	SubmitFn func(ctx context.Context, req ProviderRequest) iter.Seq2[string, error]
	requests []ProviderRequest
}

func (f *fakeProvider) Submit(ctx context.Context, req ProviderRequest) iter.Seq2[string, error] {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.SubmitFn(ctx, req)
}

func (f *fakeProvider) Requests() []ProviderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ProviderRequest(nil), f.requests...)
}

// streamChunks returns a Submit function that yields chunks in order.
func streamChunks(chunks ...string) func(context.Context, ProviderRequest) iter.Seq2[string, error] {
	return func(ctx context.Context, _ ProviderRequest) iter.Seq2[string, error] {
		return func(yield func(string, error) bool) {
			for _, c := range chunks {
				if !yield(c, nil) {
					return
				}
			}
		}
	}
}

// splitEvery cuts s into pieces of n bytes.
func splitEvery(s string, n int) []string {
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	return append(out, s)
}

// buildPDF writes a minimal but well-formed PDF with the given page count.
func buildPDF(pages int) []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")

	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages),
	}
	for range pages {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return b.Bytes()
}

const flashcardResult = `[
  {"term": "What is photosynthesis?", "definition": "Conversion of light into chemical energy."},
  {"term": "Where does photosynthesis happen?", "definition": "In the chloroplasts."},
  {"term": "What pigment absorbs light?", "definition": "Chlorophyll."},
  {"term": "What gas is released?", "definition": "Oxygen, from splitting water {H2O}."}
]`

const quizResult = `[
  {"term": "Q1", "definition": "D1", "options": ["a", "b", "c", "d"], "answer": "A"},
  {"term": "Q2", "definition": "D2", "options": ["a", "b", "c", "d"], "answer": "B"},
  {"term": "Q3", "definition": "D3", "options": ["a", "b", "c", "d"], "answer": "C"},
  {"term": "Q4", "definition": "D4", "options": ["a", "b", "c", "d"], "answer": "D"}
]`
