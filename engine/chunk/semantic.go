package chunk

import "strings"

// semanticSimilarityFloor is the Jaccard word-overlap below which two
// adjacent sentences are considered a topic break. No embedding model is
// available at preprocess time (embeddings are produced downstream, in
// the indexing stage), so semantic boundaries are approximated lexically.
const semanticSimilarityFloor = 0.12

// splitSemantic groups sentences into a chunk until either MaxTokens is
// reached or consecutive sentences' word overlap drops below the
// similarity floor, whichever comes first.
func splitSemantic(text string, sections map[int]string, opt Options) []Piece {
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
		var prevWords map[string]bool

		for end < len(sentences) {
			t := EstimateTokens(sentences[end])
			words := wordSet(sentences[end])
			if end > start {
				if tokens+t > opt.MaxTokens {
					break
				}
				if jaccard(prevWords, words) < semanticSimilarityFloor && tokens >= opt.MinTokens {
					break
				}
			}
			if buf.Len() > 0 {
				buf.WriteRune(' ')
			}
			buf.WriteString(sentences[end])
			tokens += t
			prevWords = words
			end++
		}
		if end == start {
			end = start + 1
			buf.WriteString(sentences[start])
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

func wordSet(s string) map[string]bool {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.Trim(w, ".,!?;:\"'()")] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var intersection int
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
