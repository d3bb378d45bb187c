// Package extract converts raw document bytes (plain text, PDF, DOCX) into a
// flat text string and provides the whitespace normalizer applied before
// embedding. Extraction is a pure function of its inputs.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vihdutta/CollegeLabMatch/engine/domain"
)

// binaryFormats are declared formats known to carry no extractable text.
var binaryFormats = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "bmp": true,
	"zip": true, "tar": true, "gz": true, "exe": true, "bin": true,
	"mp3": true, "mp4": true, "wav": true,
}

// FormatFromFilename derives the declared format tag from a filename
// extension. Files without an extension are treated as plain text.
func FormatFromFilename(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return "txt"
	}
	return ext
}

// Extract dispatches on the declared format and returns flat text.
// PDF pages and DOCX paragraphs are joined with single spaces in document
// order; empty pages/paragraphs are not an error. Unknown formats are decoded
// permissively as UTF-8, dropping undecodable bytes. A byte stream that cannot
// be parsed as its declared format fails with domain.ErrExtraction.
func Extract(data []byte, format string) (string, error) {
	switch strings.ToLower(format) {
	case "pdf":
		return extractPDF(data)
	case "docx", "doc":
		return extractDOCX(data)
	default:
		if binaryFormats[strings.ToLower(format)] {
			return "", domain.NewValidationError("format", format, domain.ErrUnsupportedFormat)
		}
		return strings.ToValidUTF8(string(data), ""), nil
	}
}

// ExtractFile extracts using the format derived from the filename.
func ExtractFile(data []byte, filename string) (string, error) {
	text, err := Extract(data, FormatFromFilename(filename))
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", filename, err)
	}
	return text, nil
}
