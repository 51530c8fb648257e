package chunk

import "strings"

// separatorTiers is tried in order: the splitter prefers the coarsest
// separator that still produces pieces within MaxTokens, falling through
// to finer separators only where a span is too large to fit whole.
var separatorTiers = []string{"\n\n", "\n", ". ", " "}

// splitRecursive is the strategy the content analyzer assigns to code:
// it tries to keep structural units (blank-line blocks, then lines, then
// sentences, then words) intact, recursing into a tier only when the
// current span doesn't fit within MaxTokens.
func splitRecursive(text string, sections map[int]string, opt Options) []Piece {
	spans := recursiveSplit(text, opt.MaxTokens, 0)

	var pieces []Piece
	var window []string
	tokens := 0
	flush := func() {
		if len(window) == 0 {
			return
		}
		body := strings.Join(window, "")
		off := strings.Index(text, strings.TrimSpace(window[0]))
		if off < 0 {
			off = 0
		}
		pieces = append(pieces, Piece{
			Text:            strings.TrimSpace(body),
			Section:         sectionAt(text, off, sections),
			EndsMidSentence: endsMidSentence(body),
		})
	}

	for _, s := range spans {
		t := EstimateTokens(s)
		if tokens+t > opt.MaxTokens && tokens > 0 {
			flush()
			window = nil
			tokens = 0
		}
		window = append(window, s)
		tokens += t
	}
	flush()

	return applyOverlap(pieces, opt)
}

// recursiveSplit breaks text on the coarsest separator tier first,
// descending to finer tiers only for spans that still exceed maxTokens.
func recursiveSplit(text string, maxTokens, tier int) []string {
	if EstimateTokens(text) <= maxTokens || tier >= len(separatorTiers) {
		return []string{text}
	}
	sep := separatorTiers[tier]
	parts := strings.SplitAfter(text, sep)

	var out []string
	for _, p := range parts {
		if p == "" {
			continue
		}
		if EstimateTokens(p) > maxTokens {
			out = append(out, recursiveSplit(p, maxTokens, tier+1)...)
		} else {
			out = append(out, p)
		}
	}
	return out
}

// applyOverlap re-derives trailing context between adjacent pieces so
// recursive chunking gets the same overlap guarantee as the other
// strategies, without re-running the separator walk.
func applyOverlap(pieces []Piece, opt Options) []Piece {
	if opt.Overlap <= 0 || len(pieces) < 2 {
		return pieces
	}
	overlapChars := opt.Overlap * 4
	out := make([]Piece, len(pieces))
	copy(out, pieces)
	for i := 1; i < len(out); i++ {
		prev := pieces[i-1].Text
		if len(prev) <= overlapChars {
			out[i].Text = prev + " " + out[i].Text
			continue
		}
		out[i].Text = prev[len(prev)-overlapChars:] + " " + out[i].Text
	}
	return out
}
