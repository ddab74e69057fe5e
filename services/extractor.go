package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextExtractor extracts plain text from the supported document formats
// (PDF via ledongthuc/pdf, plain text and markdown by direct read).
type TextExtractor struct{}

// NewTextExtractor creates a text extractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// ExtractText returns the plain text of the file at path. Unreadable or
// garbled documents come back as *MalformedDocumentError so the index
// builder can skip them without aborting the rebuild.
func (e *TextExtractor) ExtractText(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := filepath.Base(path)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err := e.extractPDF(path)
		if err != nil {
			return "", &MalformedDocumentError{Name: name, Err: err}
		}
		return text, nil
	case ".txt", ".md":
		content, err := os.ReadFile(path)
		if err != nil {
			return "", &MalformedDocumentError{Name: name, Err: err}
		}
		return string(content), nil
	default:
		return "", &MalformedDocumentError{Name: name, Err: fmt.Errorf("unsupported format")}
	}
}

func (e *TextExtractor) extractPDF(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF file: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var textBuilder strings.Builder
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			// A single broken page should not discard the rest.
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	extracted := textBuilder.String()
	if !qualityOK(extracted) {
		return "", fmt.Errorf("extracted text failed quality check")
	}

	return extracted, nil
}

// qualityOK rejects extractions that are empty or dominated by
// replacement/control characters, a common symptom of scanned or
// corrupted PDFs.
func qualityOK(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) == 0 {
		return false
	}

	var printable, corrupted int
	for _, r := range trimmed {
		switch {
		case r == '�':
			corrupted++
		case r >= 32 || r == '\n' || r == '\t' || r == '\r':
			printable++
		default:
			corrupted++
		}
	}

	total := printable + corrupted
	return total > 0 && float64(corrupted)/float64(total) < 0.2
}
