package files

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	pdf "rsc.io/pdf"
)

// DefaultMaxChars bounds extracted text, roughly 3k tokens.
const DefaultMaxChars = 12000

// ExtractText returns the plain text of an uploaded document, dispatching on the file
// extension. Unsupported or unreadable files yield "".
func ExtractText(filename string, data []byte) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return truncate(strings.ToValidUTF8(string(data), ""), DefaultMaxChars)
	case ".pdf":
		tmp, err := os.CreateTemp("", "upload-*.pdf")
		if err != nil {
			log.Printf("[files][pdf] temp file err=%v", err)
			return ""
		}
		defer os.Remove(tmp.Name())
		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			log.Printf("[files][pdf] write err=%v", err)
			return ""
		}
		tmp.Close()
		text, err := ExtractPDFText(tmp.Name(), DefaultMaxChars)
		if err != nil {
			log.Printf("[files][pdf] extract file=%s err=%v", filename, err)
			return ""
		}
		return text
	}
	return ""
}

// ExtractPDFText opens a PDF at filePath and returns its text layer up to maxChars.
// PDFs without a text layer return "".
func ExtractPDFText(filePath string, maxChars int) (string, error) {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, t := range p.Content().Text {
			buf.WriteString(t.S)
		}
		buf.WriteString("\n\n")
		if buf.Len() >= maxChars {
			break
		}
	}
	return truncate(strings.TrimSpace(buf.String()), maxChars), nil
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
