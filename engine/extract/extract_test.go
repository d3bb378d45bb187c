package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/vihdutta/CollegeLabMatch/engine/domain"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hello   world  ", "hello world"},
		{"", ""},
		{"   \t\n ", ""},
		{"one\ntwo\t three", "one two three"},
		{"Punctuation, Case and UTF-8 stay: Ω!", "Punctuation, Case and UTF-8 stay: Ω!"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatFromFilename(t *testing.T) {
	tests := []struct {
		name, want string
	}{
		{"resume.PDF", "pdf"},
		{"cv.docx", "docx"},
		{"notes.txt", "txt"},
		{"README", "txt"},
		{"archive.tar.gz", "gz"},
	}
	for _, tt := range tests {
		if got := FormatFromFilename(tt.name); got != tt.want {
			t.Errorf("FormatFromFilename(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestExtract_PlainText(t *testing.T) {
	got, err := Extract([]byte("interests: robotics and vision"), "txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "interests: robotics and vision" {
		t.Errorf("unexpected text %q", got)
	}
}

func TestExtract_PlainTextDropsInvalidBytes(t *testing.T) {
	in := append([]byte("abc"), 0xff, 0xfe)
	in = append(in, []byte("def")...)
	got, err := Extract(in, "md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "abcdef" {
		t.Errorf("expected undecodable bytes dropped, got %q", got)
	}
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	_, err := Extract([]byte{0x89, 0x50, 0x4e, 0x47}, "png")
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

// minimalPDF builds a valid one-page PDF with no text layer, computing the
// cross-reference offsets from the assembled objects.
func minimalPDF() []byte {
	var b bytes.Buffer
	var offsets []int
	b.WriteString("%PDF-1.4\n")
	for _, obj := range []string{
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n",
		"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n",
		"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>\nendobj\n",
	} {
		offsets = append(offsets, b.Len())
		b.WriteString(obj)
	}
	xref := b.Len()
	b.WriteString("xref\n0 4\n0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size 4 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref)
	return b.Bytes()
}

func TestExtract_EmptyPDF(t *testing.T) {
	text, err := Extract(minimalPDF(), "pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "" {
		t.Fatalf("text = %q, want empty", text)
	}
}

func TestExtract_CorruptPDF(t *testing.T) {
	_, err := Extract([]byte("%PDF-1.4 truncated garbage"), "pdf")
	if !errors.Is(err, domain.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestExtract_CorruptDOCX(t *testing.T) {
	_, err := Extract([]byte("not a zip archive"), "docx")
	if !errors.Is(err, domain.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestExtract_DOCXMissingDocument(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/other.xml")
	w.Write([]byte("<x/>"))
	zw.Close()

	_, err := Extract(buf.Bytes(), "docx")
	if !errors.Is(err, domain.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtract_DOCXParagraphOrder(t *testing.T) {
	doc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`
	got, err := Extract(buildDOCX(t, doc), "docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "First paragraph.  Second paragraph." {
		t.Errorf("unexpected text %q", got)
	}
}

func TestExtract_DOCXEmptyBody(t *testing.T) {
	doc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body></w:body></w:document>`
	got, err := Extract(buildDOCX(t, doc), "docx")
	if err != nil {
		t.Fatalf("empty content is not an error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}
