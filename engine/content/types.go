// Package content implements the content analyzer: given raw
// text, a filename, and an optional playbook hint, it detects a content
// type and returns the chunking configuration that type calls for, adjusted
// for the text's own sentence length and overall size.
package content

import "github.com/primedata-ai/aird/engine/domain"

// Type is a detected content domain.
type Type string

const (
	TypeLegal          Type = "legal"
	TypeRegulatory     Type = "regulatory"
	TypeFinanceBanking Type = "finance_banking"
	TypeCode           Type = "code"
	TypeDocumentation  Type = "documentation"
	TypeConversation   Type = "conversation"
	TypeAcademic       Type = "academic"
	TypeTechnical      Type = "technical"
	TypeGeneral        Type = "general"
)

// Config is the chunking configuration the analyzer recommends, plus the
// evidence behind the recommendation.
type Config struct {
	ChunkSize    int                     `json:"chunk_size"`
	ChunkOverlap int                     `json:"chunk_overlap"`
	MinChunkSize int                     `json:"min_chunk_size"`
	MaxChunkSize int                     `json:"max_chunk_size"`
	Strategy     domain.ChunkingStrategy `json:"strategy"`
	ContentType  Type                    `json:"content_type"`
	Confidence   float64                 `json:"confidence"`
	Reasoning    string                  `json:"reasoning"`
	Evidence     Evidence                `json:"evidence"`
}

// Evidence records why a content type was chosen, for UI display and for
// debugging a misclassification.
type Evidence struct {
	MatchedPatterns   []string           `json:"matched_patterns"`
	HintApplied       bool               `json:"hint_applied"`
	HintType          string             `json:"hint_type,omitempty"`
	HintBoost         float64            `json:"hint_boost"`
	FilenameExtension string             `json:"filename_extension,omitempty"`
	AllScores         map[string]float64 `json:"all_scores"`
	FinalType         string             `json:"final_type"`
	FinalConfidence   float64            `json:"final_confidence"`
}

// baseConfig is one row of the optimal_configs table, before adjustment.
type baseConfig struct {
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int
	MaxChunkSize int
	Strategy     domain.ChunkingStrategy
	Reasoning    string
}
