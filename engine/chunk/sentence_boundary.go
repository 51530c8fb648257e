package chunk

import (
	"strings"
	"unicode"
)

// splitSentences breaks text into sentences on terminal punctuation or
// hard newlines.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if r == '\n' || i == len(text)-1 || (i+1 < len(text) && unicode.IsSpace(rune(text[i+1]))) {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// splitSentenceBoundary groups whole sentences into windows close to
// MaxTokens, overlapping by trailing sentences worth ~Overlap tokens.
func splitSentenceBoundary(text string, sections map[int]string, opt Options) []Piece {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var pieces []Piece
	start := 0
	for start < len(sentences) {
		var buf strings.Builder
		tokens := 0
		end := start

		for end < len(sentences) {
			t := EstimateTokens(sentences[end])
			if tokens+t > opt.MaxTokens && tokens > 0 {
				break
			}
			if buf.Len() > 0 {
				buf.WriteRune(' ')
			}
			buf.WriteString(sentences[end])
			tokens += t
			end++
		}

		body := buf.String()
		off := strings.Index(text, sentences[start])
		if off < 0 {
			off = 0
		}
		pieces = append(pieces, Piece{
			Text:            body,
			Section:         sectionAt(text, off, sections),
			EndsMidSentence: false,
		})

		overlapTokens := 0
		newStart := end
		for newStart > start && overlapTokens < opt.Overlap {
			newStart--
			overlapTokens += EstimateTokens(sentences[newStart])
		}
		if newStart == start {
			start = end
		} else {
			start = newStart
		}
	}
	return pieces
}
