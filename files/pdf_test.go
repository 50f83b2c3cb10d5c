package files

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtractTextPlain(t *testing.T) {
	got := ExtractText("notes.TXT", []byte("Patient Name: Rex\nSpecies: dog"))
	if got != "Patient Name: Rex\nSpecies: dog" {
		t.Fatalf("got %q", got)
	}
	if got := ExtractText("scan.docx", []byte("ignored")); got != "" {
		t.Fatalf("unsupported extension returned %q", got)
	}
}

func TestExtractTextBrokenPDF(t *testing.T) {
	if got := ExtractText("report.pdf", []byte("%PDF-1.4\n%EOF\n")); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	s := strings.Repeat("ñ", 10) // 2 bytes each
	got := truncate(s, 5)
	if !utf8.ValidString(got) || len(got) != 4 {
		t.Fatalf("got %q (%d bytes)", got, len(got))
	}
	if truncate("short", 100) != "short" {
		t.Fatal("short string changed")
	}
}
