package chunk

import "strings"

// splitFixedSize cuts text into uniform token-sized windows with overlap,
// ignoring any structural boundary. This is the fallback strategy and the
// one the content analyzer assigns to TypeGeneral.
func splitFixedSize(text string, sections map[int]string, opt Options) []Piece {
	approxChars := opt.MaxTokens * 4
	overlapChars := opt.Overlap * 4
	step := approxChars - overlapChars
	if step < 1 {
		step = 1
	}

	var pieces []Piece
	start := 0
	for start < len(text) {
		end := start + approxChars
		if end > len(text) {
			end = len(text)
		}
		raw := text[start:end]
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			pieces = append(pieces, Piece{
				Text:            trimmed,
				Section:         sectionAt(text, start, sections),
				EndsMidSentence: endsMidSentence(trimmed),
			})
		}
		start += step
		if end >= len(text) {
			break
		}
	}
	return pieces
}
