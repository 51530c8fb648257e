package stage

import (
	"context"
	"strings"

	"github.com/primedata-ai/aird/engine/domain"
	"github.com/primedata-ai/aird/engine/vectorstore"
)

// RAGMetrics holds the self-retrieval evaluation results: each chunk's
// first sentence is used as a query against the collection it was just
// indexed into, and the chunk counts as a hit if it comes back in the
// top K.
type RAGMetrics struct {
	QueriesRun int
	Hits       int
	TopK       int
	HitRateAtK float64
	MAPAtK     float64
}

// Map flattens the metrics into the stage result's metrics contract.
func (m RAGMetrics) Map() map[string]any {
	return map[string]any{
		"rag_queries_run":        m.QueriesRun,
		"rag_hits":               m.Hits,
		"rag_top_k":              m.TopK,
		"Retrieval_Recall_At_K":  m.HitRateAtK,
		"Average_Precision_At_K": m.MAPAtK,
	}
}

// firstSentence extracts the leading sentence of text if it is at least
// 10 characters long, else "".
func firstSentence(text string) string {
	trimmed := strings.TrimSpace(text)
	end := strings.IndexAny(trimmed, ".!?")
	sentence := trimmed
	if end >= 0 {
		sentence = trimmed[:end+1]
	}
	sentence = strings.TrimSpace(sentence)
	if len(sentence) < 10 {
		return ""
	}
	return sentence
}

// selfRetrieval runs the self-retrieval evaluation over up to MaxQueries
// chunks. Chunks whose embedding failed are skipped.
func (ix *Indexing) selfRetrieval(ctx context.Context, collection string, records []domain.ProcessedChunkRecord, vectors [][]float32) RAGMetrics {
	topK := ix.retrieval.TopK
	if topK <= 0 {
		topK = 5
	}
	maxQueries := ix.retrieval.MaxQueries
	if maxQueries <= 0 {
		maxQueries = 20
	}

	m := RAGMetrics{TopK: topK}
	var rankSum float64

	for i, rec := range records {
		if m.QueriesRun >= maxQueries {
			break
		}
		if vectors[i] == nil {
			continue
		}
		query := firstSentence(rec.Text)
		if query == "" {
			continue
		}
		qv, err := ix.generator.Embed(ctx, query)
		if err != nil {
			continue
		}
		var hits []vectorstore.SearchHit
		err = ix.breaker.Call(ctx, func(ctx context.Context) error {
			var searchErr error
			hits, searchErr = ix.vectors.SearchPoints(ctx, collection, qv, topK, nil, nil)
			return searchErr
		})
		if err != nil {
			continue
		}
		m.QueriesRun++

		wantID := PointID(ix.product.ID, rec.ChunkID, ix.product.CurrentVersion)
		for rank, hit := range hits {
			if hit.ID == wantID {
				m.Hits++
				rankSum += 1.0 / float64(rank+1)
				break
			}
		}
	}

	if m.QueriesRun > 0 {
		m.HitRateAtK = 100 * float64(m.Hits) / float64(m.QueriesRun)
		m.MAPAtK = 100 * rankSum / float64(m.QueriesRun)
	}
	return m
}
