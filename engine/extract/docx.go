package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/vihdutta/CollegeLabMatch/engine/domain"
)

// extractDOCX concatenates paragraph text in document order with single space
// separators. A DOCX file is a zip archive whose word/document.xml holds the
// body; paragraph text lives in <w:t> runs inside <w:p> elements.
func extractDOCX(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: docx: %v", domain.ErrExtraction, err)
	}

	var doc io.ReadCloser
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			doc, err = f.Open()
			if err != nil {
				return "", fmt.Errorf("%w: docx: %v", domain.ErrExtraction, err)
			}
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("%w: docx: missing word/document.xml", domain.ErrExtraction)
	}
	defer doc.Close()

	paragraphs, err := readParagraphs(doc)
	if err != nil {
		return "", fmt.Errorf("%w: docx: %v", domain.ErrExtraction, err)
	}
	return strings.TrimSpace(strings.Join(paragraphs, " ")), nil
}

// readParagraphs walks the document XML token stream, collecting the text of
// each <w:p> paragraph in order.
func readParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var paragraphs []string
	var current strings.Builder
	inParagraph := false
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				inText = inParagraph
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if inParagraph {
					paragraphs = append(paragraphs, current.String())
					inParagraph = false
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	return paragraphs, nil
}
