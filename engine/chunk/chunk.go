// Package chunk splits normalized document text into the overlapping
// windows the preprocess stage emits as ProcessedChunkRecords, honoring
// one of five boundary strategies.
package chunk

import (
	"fmt"
	"strings"

	"github.com/primedata-ai/aird/engine/domain"
)

// Options bounds and configures a single chunking pass. Sizes and overlap
// are in estimated tokens (~4 chars/token, matching the content analyzer's
// own convention).
type Options struct {
	Strategy  domain.ChunkingStrategy
	MaxTokens int
	Overlap   int
	MinTokens int
	MaxHard   int
}

// Piece is one chunk boundary before it is wrapped into a
// domain.ProcessedChunkRecord — it carries the boundary-detection flag the
// preprocess stage uses to compute mid_sentence_boundary_rate.
type Piece struct {
	Text            string
	Section         string
	Page            int
	EndsMidSentence bool
}

// EstimateTokens approximates token count as ~4 chars/token, matching the
// convention used throughout the pipeline (content analyzer, indexing).
func EstimateTokens(s string) int {
	n := len(s) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// Split dispatches to the named strategy and returns ordered pieces. text
// is already normalized and section-tagged line-by-line via sections
// (same length as the line count of text split on "\n"); callers that
// haven't run section detection may pass a nil sections map, in which
// case every piece gets section "".
func Split(text string, sections map[int]string, opt Options) ([]Piece, error) {
	if opt.MaxTokens <= 0 {
		return nil, fmt.Errorf("chunk: max_tokens must be positive, got %d", opt.MaxTokens)
	}
	if opt.Overlap < 0 {
		opt.Overlap = 0
	}
	if opt.Overlap >= opt.MaxTokens {
		opt.Overlap = opt.MaxTokens - 1
	}
	text = strings.TrimRight(text, "\n")
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	switch opt.Strategy {
	case domain.StrategyFixedSize:
		return splitFixedSize(text, sections, opt), nil
	case domain.StrategyRecursive:
		return splitRecursive(text, sections, opt), nil
	case domain.StrategySentenceBoundary:
		return splitSentenceBoundary(text, sections, opt), nil
	case domain.StrategyParagraphBoundary:
		return splitParagraphBoundary(text, sections, opt), nil
	case domain.StrategySemantic:
		return splitSemantic(text, sections, opt), nil
	default:
		return splitFixedSize(text, sections, opt), nil
	}
}

// withinBounds reports whether a piece's token estimate lies inside the
// MinTokens/MaxHard bounds; a bound left at zero is not checked. It only
// reports, it does not trim or drop anything.
func withinBounds(tokens int, opt Options) bool {
	if opt.MinTokens > 0 && tokens < opt.MinTokens {
		return false
	}
	if opt.MaxHard > 0 && tokens > opt.MaxHard {
		return false
	}
	return true
}

// sectionAt returns the section label covering byte offset off in text,
// given the line->section map built by section detection. Falls back to
// "" when sections is nil or the offset has no recorded line.
func sectionAt(text string, off int, sections map[int]string) string {
	if sections == nil {
		return ""
	}
	line := strings.Count(text[:off], "\n")
	return sections[line]
}

// endsMidSentence reports whether s's trailing rune is not a sentence
// terminator, used to compute mid_sentence_boundary_rate.
func endsMidSentence(s string) bool {
	s = strings.TrimRight(s, " \t\n")
	if s == "" {
		return false
	}
	last := s[len(s)-1]
	return last != '.' && last != '!' && last != '?'
}
