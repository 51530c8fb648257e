package stage

import "github.com/primedata-ai/aird/engine/domain"

// ScoreLookup joins processed chunks with their scoring metrics through
// four fallback levels: (file, chunk_id) → chunk_id → (file, section) →
// file max.
type ScoreLookup struct {
	byFileChunk   map[[2]string]float64
	byChunk       map[string]float64
	byFileSection map[[2]string]float64
	fileMax       map[string]float64
}

// NewScoreLookup indexes metrics.json entries for the four-level lookup.
func NewScoreLookup(records []domain.PerChunkMetricRecord) *ScoreLookup {
	l := &ScoreLookup{
		byFileChunk:   map[[2]string]float64{},
		byChunk:       map[string]float64{},
		byFileSection: map[[2]string]float64{},
		fileMax:       map[string]float64{},
	}
	for _, r := range records {
		l.byFileChunk[[2]string{r.File, r.ChunkID}] = r.AITrustScore
		if _, seen := l.byChunk[r.ChunkID]; !seen {
			l.byChunk[r.ChunkID] = r.AITrustScore
		}
		key := [2]string{r.File, r.Section}
		if r.AITrustScore > l.byFileSection[key] {
			l.byFileSection[key] = r.AITrustScore
		}
		if r.AITrustScore > l.fileMax[r.File] {
			l.fileMax[r.File] = r.AITrustScore
		}
	}
	return l
}

// Score resolves the trust score for one processed record; an entry
// missing at every level scores zero.
func (l *ScoreLookup) Score(file string, rec domain.ProcessedChunkRecord) float64 {
	if s, ok := l.byFileChunk[[2]string{file, rec.ChunkID}]; ok {
		return s
	}
	if s, ok := l.byChunk[rec.ChunkID]; ok {
		return s
	}
	if s, ok := l.byFileSection[[2]string{file, rec.Section}]; ok {
		return s
	}
	return l.fileMax[file]
}
