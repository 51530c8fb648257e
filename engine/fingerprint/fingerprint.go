// Package fingerprint aggregates per-chunk metrics into the
// product-level readiness fingerprint.
package fingerprint

import "github.com/primedata-ai/aird/engine/domain"

// Aggregate computes the weighted-mean-by-token_est fingerprint across
// every chunk metric in a run, clamped to [0,100] per dimension. If
// boundaryRate is non-negative it is folded in as the Chunk Boundary
// Quality subscore (100 at a 0% mid-sentence rate, 0 at 100%).
func Aggregate(records []domain.PerChunkMetricRecord, boundaryRate float64) domain.Fingerprint {
	if len(records) == 0 {
		return domain.Fingerprint{}
	}

	var totalWeight float64
	var trust, completeness, quality, secure, metadata, kbReady float64

	for _, r := range records {
		weight := float64(r.TokenEst)
		if weight <= 0 {
			weight = 1
		}
		totalWeight += weight
		trust += r.AITrustScore * weight
		completeness += r.Completeness * weight
		quality += r.Quality * weight
		secure += r.Secure * weight
		metadata += r.MetadataPresence * weight
		kbReady += r.KBReady * weight
	}

	fp := domain.Fingerprint{
		AITrustScore:     clamp(trust / totalWeight),
		Completeness:     clamp(completeness / totalWeight),
		Quality:          clamp(quality / totalWeight),
		Secure:           clamp(secure / totalWeight),
		MetadataPresence: clamp(metadata / totalWeight),
		KBReady:          clamp(kbReady / totalWeight),
	}

	if boundaryRate >= 0 {
		fp.ChunkBoundaryQuality = clamp(100 * (1 - boundaryRate))
	}

	return fp
}

// MergeEmbeddingMetrics layers the indexing stage's vector-quality
// dimensions onto an already-aggregated fingerprint — the fingerprint
// row is the single place both preprocessing-derived and
// indexing-derived scores land.
func MergeEmbeddingMetrics(fp domain.Fingerprint, dimConsistency, successRate, vqs, modelHealth, semanticReadiness, recallAtK, mapAtK float64) domain.Fingerprint {
	fp.EmbeddingDimensionConsistency = clamp(dimConsistency)
	fp.EmbeddingSuccessRate = clamp(successRate)
	fp.VectorQualityScore = clamp(vqs)
	fp.EmbeddingModelHealth = clamp(modelHealth)
	fp.SemanticSearchReadiness = clamp(semanticReadiness)
	fp.RetrievalRecallAtK = clamp(recallAtK)
	fp.AveragePrecisionAtK = clamp(mapAtK)
	return fp
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
