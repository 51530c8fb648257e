package stage

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"regexp"
)

// pdfTextExtractor is a minimal, stdlib-only PDF text extractor: it walks
// each "stream ... endstream" content object, inflates FlateDecode
// streams where present, and pulls the literal string operands of the
// Tj/TJ text-showing operators. It treats one content stream as one
// page, emitting "=== PAGE n ===" ahead of each so downstream section
// detection can fence pages. It is not a general-purpose PDF renderer:
// it has no knowledge of fonts, encodings, or layout, and returns
// best-effort text only.
type pdfTextExtractor struct{}

var (
	streamRe      = regexp.MustCompile(`(?s)stream\r?\n(.*?)endstream`)
	textOperandRe = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*T[jJ]`)
	tjArrayRe     = regexp.MustCompile(`\[(.*?)\]\s*TJ`)
	escapeRe      = regexp.MustCompile(`\\(.)`)
)

func (pdfTextExtractor) Extract(data []byte) (string, bool) {
	matches := streamRe.FindAllSubmatch(data, -1)
	if len(matches) == 0 {
		return "", false
	}

	var out bytes.Buffer
	page := 0
	for _, m := range matches {
		raw := m[1]
		text := extractStreamText(raw)
		if text == "" {
			continue
		}
		page++
		fmt.Fprintf(&out, "=== PAGE %d ===\n", page)
		out.WriteString(text)
		out.WriteString("\n\n")
	}
	if page == 0 {
		return "", false
	}
	return out.String(), true
}

// extractStreamText inflates raw if it looks zlib-compressed, then scans
// the (possibly binary) content stream for text-showing operators.
func extractStreamText(raw []byte) string {
	content := raw
	if r, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
		if inflated, err := io.ReadAll(r); err == nil {
			content = inflated
		}
		r.Close()
	}

	var out bytes.Buffer
	for _, m := range textOperandRe.FindAllSubmatch(content, -1) {
		out.Write(unescapePDFString(m[1]))
		out.WriteByte(' ')
	}
	for _, m := range tjArrayRe.FindAllSubmatch(content, -1) {
		for _, inner := range textOperandRe.FindAllSubmatch(m[1], -1) {
			out.Write(unescapePDFString(inner[1]))
			out.WriteByte(' ')
		}
	}
	return out.String()
}

func unescapePDFString(b []byte) []byte {
	return escapeRe.ReplaceAll(b, []byte("$1"))
}
