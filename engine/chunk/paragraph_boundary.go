package chunk

import (
	"regexp"
	"strings"
)

var blankLineSplit = regexp.MustCompile(`\n\s*\n+`)

// splitParagraphBoundary groups whole paragraphs (blank-line delimited)
// into windows close to MaxTokens, overlapping by trailing paragraphs. A
// single paragraph larger than MaxTokens is split on its own with the
// fixed-size strategy so no piece silently exceeds the window size.
func splitParagraphBoundary(text string, sections map[int]string, opt Options) []Piece {
	paras := blankLineSplit.Split(text, -1)
	var nonEmpty []string
	for _, p := range paras {
		if t := strings.TrimSpace(p); t != "" {
			nonEmpty = append(nonEmpty, t)
		}
	}
	if len(nonEmpty) == 0 {
		return nil
	}

	var pieces []Piece
	start := 0
	for start < len(nonEmpty) {
		var buf strings.Builder
		tokens := 0
		end := start

		for end < len(nonEmpty) {
			t := EstimateTokens(nonEmpty[end])
			if t > opt.MaxTokens && tokens == 0 {
				break
			}
			if tokens+t > opt.MaxTokens && tokens > 0 {
				break
			}
			if buf.Len() > 0 {
				buf.WriteString("\n\n")
			}
			buf.WriteString(nonEmpty[end])
			tokens += t
			end++
		}

		if end == start {
			// A single paragraph exceeds MaxTokens on its own; fall back
			// to fixed-size splitting for just that paragraph.
			sub := splitFixedSize(nonEmpty[start], nil, opt)
			for i := range sub {
				sub[i].Section = sectionAt(text, strings.Index(text, nonEmpty[start]), sections)
			}
			pieces = append(pieces, sub...)
			end = start + 1
		} else {
			body := buf.String()
			off := strings.Index(text, nonEmpty[start])
			if off < 0 {
				off = 0
			}
			pieces = append(pieces, Piece{
				Text:            body,
				Section:         sectionAt(text, off, sections),
				EndsMidSentence: endsMidSentence(body),
			})
		}

		overlapTokens := 0
		newStart := end
		for newStart > start && overlapTokens < opt.Overlap {
			newStart--
			overlapTokens += EstimateTokens(nonEmpty[newStart])
		}
		if newStart == start {
			start = end
		} else {
			start = newStart
		}
	}
	return pieces
}
