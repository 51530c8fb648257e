package content

import "strings"

// ChunkPreview is one simulated chunk boundary.
type ChunkPreview struct {
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
	StartChar  int    `json:"start_char"`
	EndChar    int    `json:"end_char"`
	Size       int    `json:"size"`
}

// Preview is the result of simulating a chunking config against one text,
// without running the real chunker — used by the UI to show a config's
// effect before committing to it.
type Preview struct {
	TotalChunks               int            `json:"total_chunks"`
	AvgChunkSize              float64        `json:"avg_chunk_size"`
	MinChunkSize              int            `json:"min_chunk_size"`
	MaxChunkSize              int            `json:"max_chunk_size"`
	Chunks                    []ChunkPreview `json:"chunks"`
	EstimatedRetrievalQuality string         `json:"estimated_retrieval_quality"`
}

// PreviewChunking simulates chunking text with cfg and summarizes the
// result. 1 token is approximated as 4 characters, matching the
// preprocess stage's own convention.
func PreviewChunking(text string, cfg Config) Preview {
	chunks := simulateChunking(text, cfg)

	preview := Preview{TotalChunks: len(chunks)}
	if len(chunks) == 0 {
		preview.EstimatedRetrievalQuality = "unknown"
		return preview
	}

	var total int
	preview.MinChunkSize = chunks[0].Size
	preview.MaxChunkSize = chunks[0].Size
	for _, c := range chunks {
		total += c.Size
		if c.Size < preview.MinChunkSize {
			preview.MinChunkSize = c.Size
		}
		if c.Size > preview.MaxChunkSize {
			preview.MaxChunkSize = c.Size
		}
	}
	preview.AvgChunkSize = float64(total) / float64(len(chunks))
	preview.Chunks = firstNChunks(chunks, 5)
	preview.EstimatedRetrievalQuality = estimateRetrievalQuality(chunks, cfg)
	return preview
}

func simulateChunking(text string, cfg Config) []ChunkPreview {
	var chunks []ChunkPreview
	approxChars := cfg.ChunkSize * 4
	approxOverlapChars := cfg.ChunkOverlap * 4

	start := 0
	idx := 0
	for start < len(text) {
		end := start + approxChars
		if end > len(text) {
			end = len(text)
		}
		chunkText := strings.TrimSpace(text[start:end])
		if chunkText == "" {
			break
		}
		chunks = append(chunks, ChunkPreview{
			ChunkIndex: idx,
			Text:       chunkText,
			StartChar:  start,
			EndChar:    end,
			Size:       len(chunkText),
		})
		idx++
		step := approxChars - approxOverlapChars
		if step < 1 {
			step = 1
		}
		start += step
		if start >= len(text) {
			break
		}
	}
	return chunks
}

func estimateRetrievalQuality(chunks []ChunkPreview, cfg Config) string {
	if len(chunks) == 0 {
		return "unknown"
	}
	var total float64
	for _, c := range chunks {
		total += float64(c.Size)
	}
	avg := total / float64(len(chunks))

	var variance float64
	for _, c := range chunks {
		d := float64(c.Size) - avg
		variance += d * d
	}
	variance /= float64(len(chunks))

	minChars := float64(cfg.MinChunkSize * 4)
	maxChars := float64(cfg.MaxChunkSize * 4)

	switch {
	case avg >= minChars && avg <= maxChars && variance < (avg*0.3)*(avg*0.3):
		return "high"
	case avg >= minChars*0.8 && avg <= maxChars*1.2:
		return "medium"
	default:
		return "low"
	}
}

func firstNChunks(in []ChunkPreview, n int) []ChunkPreview {
	if len(in) <= n {
		return in
	}
	return in[:n]
}
