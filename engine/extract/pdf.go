package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/vihdutta/CollegeLabMatch/engine/domain"
)

// extractPDF concatenates page-level text with single space separators, in
// page order. Pages yielding no text contribute an empty segment.
func extractPDF(data []byte) (text string, err error) {
	// The pdf library panics on some malformed streams; treat any panic as a
	// corrupt document.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: pdf: %v", domain.ErrExtraction, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: pdf: %v", domain.ErrExtraction, err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			// A page without a decodable text layer yields an empty segment.
			pages = append(pages, "")
			continue
		}
		pages = append(pages, content)
	}
	return strings.TrimSpace(strings.Join(pages, " ")), nil
}
