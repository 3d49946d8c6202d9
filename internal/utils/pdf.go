package utils

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

var pdfMagic = []byte("%PDF-")

// HasPDFHeader reports whether data starts with the PDF signature.
func HasPDFHeader(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// PDFInfo describes a resume PDF before upload.
type PDFInfo struct {
	Pages     int
	TextChars int
	Excerpt   string
}

// InspectPDF parses data and extracts its plain text. Scanned resumes with
// no text layer are reported as an error since the analyzer scores text only.
func InspectPDF(data []byte) (info *PDFInfo, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			info, err = nil, fmt.Errorf("cannot parse PDF: %v", r)
		}
	}()

	if !HasPDFHeader(data) {
		return nil, fmt.Errorf("not a PDF document")
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("cannot parse PDF: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("cannot extract PDF text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return nil, fmt.Errorf("cannot extract PDF text: %w", err)
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return nil, fmt.Errorf("PDF has no extractable text (scanned image?)")
	}

	excerpt := strings.Join(strings.Fields(text), " ")
	if runes := []rune(excerpt); len(runes) > 120 {
		excerpt = string(runes[:120])
	}

	return &PDFInfo{
		Pages:     reader.NumPage(),
		TextChars: len([]rune(text)),
		Excerpt:   excerpt,
	}, nil
}
