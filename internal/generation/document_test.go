package generation

import (
	"encoding/base64"
	"testing"

	"github.com/phrazzld/pdfstudy-api/internal/config"
	"github.com/phrazzld/pdfstudy-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeData(t *testing.T) {
	t.Parallel()

	payload := []byte("%PDF-1.4 body")
	encoded := base64.StdEncoding.EncodeToString(payload)

	tests := []struct {
		name     string
		input    string
		wantMIME string
		wantErr  bool
	}{
		{name: "plain base64", input: encoded},
		{name: "data URL", input: "data:application/pdf;base64," + encoded, wantMIME: "application/pdf"},
		{name: "unpadded", input: base64.RawStdEncoding.EncodeToString(payload)},
		{name: "surrounding whitespace", input: "  " + encoded + "\n"},
		{name: "not base64", input: "%%%not-base64%%%", wantErr: true},
		{name: "data URL without comma", input: "data:application/pdf;base64", wantErr: true},
		{name: "data URL not base64", input: "data:text/plain,hello", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, mimeType, err := DecodeData(tc.input)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, payload, data)
			assert.Equal(t, tc.wantMIME, mimeType)
		})
	}
}

func TestCountPages(t *testing.T) {
	t.Parallel()

	for _, pages := range []int{1, 3, 12} {
		n, err := CountPages(buildPDF(pages))
		require.NoError(t, err)
		assert.Equal(t, pages, n)
	}

	_, err := CountPages([]byte("%PDF-1.4 truncated"))
	require.Error(t, err)
}

func TestCheckDocument(t *testing.T) {
	t.Parallel()

	svc, err := NewService(&fakeProvider{}, nil, config.LLMConfig{
		MaxDocumentBytes: 4096,
		MaxDocumentPages: 3,
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		doc     Document
		wantErr error
	}{
		{name: "valid", doc: Document{Name: "a.pdf", MIMEType: PDFMIMEType, Data: buildPDF(2)}},
		{name: "missing type is accepted", doc: Document{Name: "a.pdf", Data: buildPDF(1)}},
		{name: "empty", doc: Document{Name: "a.pdf"}, wantErr: ErrInvalidInput},
		{name: "wrong type", doc: Document{Name: "a.png", MIMEType: "image/png", Data: buildPDF(1)}, wantErr: ErrInvalidInput},
		{name: "not a pdf", doc: Document{Name: "a.pdf", Data: []byte("hello")}, wantErr: ErrInvalidInput},
		{name: "too many bytes", doc: Document{Name: "a.pdf", Data: append(buildPDF(1), make([]byte, 5000)...)}, wantErr: ErrDocumentTooLarge},
		{name: "too many pages", doc: Document{Name: "a.pdf", Data: buildPDF(4)}, wantErr: ErrDocumentTooLarge},
		{name: "unreadable", doc: Document{Name: "a.pdf", Data: []byte("%PDF-1.4 garbage")}, wantErr: ErrInvalidInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Validate(Request{Documents: []Document{tc.doc}, Mode: domain.ModeFlashcards})
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}
