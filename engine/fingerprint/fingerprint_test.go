package fingerprint

import (
	"testing"

	"github.com/primedata-ai/aird/engine/domain"
)

func TestAggregateEmptyRecords(t *testing.T) {
	fp := Aggregate(nil, 0)
	if !fp.IsEmpty() {
		t.Fatalf("expected empty fingerprint, got %+v", fp)
	}
}

func TestAggregateWeightedMean(t *testing.T) {
	records := []domain.PerChunkMetricRecord{
		{AITrustScore: 100, Completeness: 100, Quality: 100, Secure: 100, MetadataPresence: 100, KBReady: 100, TokenEst: 10},
		{AITrustScore: 0, Completeness: 0, Quality: 0, Secure: 0, MetadataPresence: 0, KBReady: 0, TokenEst: 90},
	}
	fp := Aggregate(records, -1)
	if fp.AITrustScore != 10 {
		t.Fatalf("expected weighted mean of 10, got %v", fp.AITrustScore)
	}
}

func TestAggregateClampsToBounds(t *testing.T) {
	records := []domain.PerChunkMetricRecord{
		{AITrustScore: 150, Completeness: -20, TokenEst: 1},
	}
	fp := Aggregate(records, -1)
	if fp.AITrustScore != 100 {
		t.Fatalf("expected clamp to 100, got %v", fp.AITrustScore)
	}
	if fp.Completeness != 0 {
		t.Fatalf("expected clamp to 0, got %v", fp.Completeness)
	}
}

func TestAggregateIncludesBoundaryQualityWhenProvided(t *testing.T) {
	records := []domain.PerChunkMetricRecord{{AITrustScore: 50, TokenEst: 1}}
	fp := Aggregate(records, 0.2)
	if fp.ChunkBoundaryQuality != 80 {
		t.Fatalf("expected boundary quality of 80 for a 20%% mid-sentence rate, got %v", fp.ChunkBoundaryQuality)
	}
}

func TestAggregateOmitsBoundaryQualityWhenNegative(t *testing.T) {
	records := []domain.PerChunkMetricRecord{{AITrustScore: 50, TokenEst: 1}}
	fp := Aggregate(records, -1)
	if fp.ChunkBoundaryQuality != 0 {
		t.Fatalf("expected zero-value boundary quality when not provided, got %v", fp.ChunkBoundaryQuality)
	}
}

func TestAggregateZeroTokenEstUsesUnitWeight(t *testing.T) {
	records := []domain.PerChunkMetricRecord{
		{AITrustScore: 100, TokenEst: 0},
		{AITrustScore: 0, TokenEst: 0},
	}
	fp := Aggregate(records, -1)
	if fp.AITrustScore != 50 {
		t.Fatalf("expected equal unit weights to average to 50, got %v", fp.AITrustScore)
	}
}

func TestMergeEmbeddingMetricsClamps(t *testing.T) {
	fp := MergeEmbeddingMetrics(domain.Fingerprint{}, 120, -5, 90, 90, 90, 90, 90)
	if fp.EmbeddingDimensionConsistency != 100 {
		t.Fatalf("expected clamp to 100, got %v", fp.EmbeddingDimensionConsistency)
	}
	if fp.EmbeddingSuccessRate != 0 {
		t.Fatalf("expected clamp to 0, got %v", fp.EmbeddingSuccessRate)
	}
}
