package services

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

type PDFParserService interface {
	ExtractText(filepath string) (string, error)
}

type pdfParserService struct{}

func NewPDFParserService() PDFParserService {
	return &pdfParserService{}
}

var multiNewline = regexp.MustCompile(`\n{3,}`)

// ExtractText pulls plain text out of a PDF, page by page. Pages that fail
// to decode are skipped; a PDF yielding no text at all is an error so a
// document is never stored with an empty body by accident.
func (p *pdfParserService) ExtractText(filePath string) (string, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return "", fmt.Errorf("file does not exist: %s", filePath)
	}

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	text := CleanExtractedText(textBuilder.String())
	if text == "" {
		return "", fmt.Errorf("no text content found in PDF")
	}

	return text, nil
}

// CleanExtractedText normalizes extraction output: control characters go
// away (Postgres rejects NUL in TEXT columns) and runs of blank lines
// collapse to one paragraph break, which the chunker relies on.
func CleanExtractedText(text string) string {
	cleaned := SanitizeContent(text)
	cleaned = multiNewline.ReplaceAllString(cleaned, "\n\n")

	return strings.TrimSpace(cleaned)
}
