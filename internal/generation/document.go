package generation

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var pdfMagic = []byte("%PDF-")

// DecodeData decodes a base64 document payload. Both plain base64 and data
// URLs ("data:application/pdf;base64,...") are accepted. The MIME type of a
// data URL is returned when present.
func DecodeData(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	var mimeType string

	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", fmt.Errorf("%w: malformed data URL", ErrInvalidInput)
		}
		if !strings.HasSuffix(header, ";base64") {
			return nil, "", fmt.Errorf("%w: data URL is not base64 encoded", ErrInvalidInput)
		}
		mimeType = strings.TrimSuffix(header, ";base64")
		s = payload
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Browsers occasionally strip padding.
		var rawErr error
		data, rawErr = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
		if rawErr != nil {
			return nil, "", fmt.Errorf("%w: document is not valid base64: %v", ErrInvalidInput, err)
		}
	}
	return data, mimeType, nil
}

// CountPages returns the number of pages in a PDF document.
func CountPages(data []byte) (n int, err error) {
	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("unreadable PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("unreadable PDF: %w", err)
	}
	return r.NumPage(), nil
}

// checkDocument rejects documents that cannot be sent upstream.
func (s *Service) checkDocument(doc Document) error {
	if len(doc.Data) == 0 {
		return fmt.Errorf("%w: document %q is empty", ErrInvalidInput, doc.Name)
	}
	if doc.MIMEType != "" && !strings.EqualFold(doc.MIMEType, PDFMIMEType) {
		return fmt.Errorf("%w: document type %q is not supported, expected %s",
			ErrInvalidInput, doc.MIMEType, PDFMIMEType)
	}
	if !bytes.HasPrefix(doc.Data, pdfMagic) {
		return fmt.Errorf("%w: document %q is not a PDF", ErrInvalidInput, doc.Name)
	}
	if s.maxBytes > 0 && int64(len(doc.Data)) > s.maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds the limit of %d", ErrDocumentTooLarge, len(doc.Data), s.maxBytes)
	}

	if s.maxPages > 0 {
		pages, err := CountPages(doc.Data)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if pages > s.maxPages {
			return fmt.Errorf("%w: %d pages exceeds the limit of %d", ErrDocumentTooLarge, pages, s.maxPages)
		}
	}
	return nil
}
