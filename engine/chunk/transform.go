package chunk

import (
	"strconv"

	"github.com/primedata-ai/aird/engine/domain"
)

// Stats summarizes a completed split pass for the preprocess stage's
// metrics (sections, chunks, mid_sentence_boundary_rate).
type Stats struct {
	TotalChunks           int
	MidSentenceBoundaries int
}

// MidSentenceBoundaryRate is the fraction of pieces that end without
// terminal punctuation, used by the fingerprint stage's Chunk Boundary
// Quality subscore.
func (s Stats) MidSentenceBoundaryRate() float64 {
	if s.TotalChunks == 0 {
		return 0
	}
	return float64(s.MidSentenceBoundaries) / float64(s.TotalChunks)
}

// ToRecords converts split Pieces into ProcessedChunkRecords, assigning
// stable chunk ids scoped to documentID, and tallies Stats as it goes.
func ToRecords(documentID string, pieces []Piece) ([]domain.ProcessedChunkRecord, Stats) {
	records := make([]domain.ProcessedChunkRecord, 0, len(pieces))
	var stats Stats
	for i, p := range pieces {
		section := p.Section
		if section == "" {
			section = "general"
		}
		records = append(records, domain.ProcessedChunkRecord{
			ChunkID:    chunkID(documentID, i),
			Text:       p.Text,
			Section:    section,
			Page:       p.Page,
			DocumentID: documentID,
			TokenEst:   EstimateTokens(p.Text),
		})
		stats.TotalChunks++
		if p.EndsMidSentence {
			stats.MidSentenceBoundaries++
		}
	}
	return records, stats
}

func chunkID(documentID string, index int) string {
	return documentID + "::" + strconv.Itoa(index)
}
