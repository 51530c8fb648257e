package stage

import (
	"context"
	"math"
	"sort"

	"github.com/primedata-ai/aird/engine/embedding"
)

// VectorMetrics grades the vectors an indexing run produced. All score
// fields are on a 0–100 scale so they can be merged into the
// fingerprint directly.
type VectorMetrics struct {
	DimensionConsistency float64
	SuccessRate          float64
	ValidRate            float64
	NonZeroRate          float64
	NormMedian           float64
	NormMean             float64
	NormStd              float64
	NormOutlierRate      float64
	VectorQualityScore   float64
	ModelHealthScore     float64
	SemanticReadiness    float64
	ResponseConsistency  float64
	FallbackMode         bool
}

// Map flattens the metrics into the stage result's metrics contract.
func (m VectorMetrics) Map() map[string]any {
	return map[string]any{
		"Embedding_Dimension_Consistency": m.DimensionConsistency,
		"Embedding_Success_Rate":          m.SuccessRate,
		"vector_valid_rate":               m.ValidRate,
		"vector_non_zero_rate":            m.NonZeroRate,
		"vector_norm_median":              m.NormMedian,
		"vector_norm_mean":                m.NormMean,
		"vector_norm_std":                 m.NormStd,
		"vector_norm_outlier_rate":        m.NormOutlierRate,
		"Vector_Quality_Score":            m.VectorQualityScore,
		"Embedding_Model_Health":          m.ModelHealthScore,
		"Semantic_Search_Readiness":       m.SemanticReadiness,
		"response_consistency":            m.ResponseConsistency,
	}
}

// ComputeVectorMetrics analyzes the produced vectors. A nil entry counts
// as an attempted-but-failed embedding. The generator is probed once with
// a double-embed of a sample text to estimate response consistency —
// API-backed models are treated as deterministic for identical input.
func ComputeVectorMetrics(ctx context.Context, vectors [][]float32, expectedDim int, g *embedding.Generator) VectorMetrics {
	attempted := len(vectors)
	var produced, dimMatch, valid, nonZero int
	var norms []float64

	for _, v := range vectors {
		if v == nil {
			continue
		}
		produced++
		if len(v) == expectedDim {
			dimMatch++
		}
		finite := true
		zero := true
		var sum float64
		for _, x := range v {
			f := float64(x)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				finite = false
			}
			if x != 0 {
				zero = false
			}
			sum += f * f
		}
		if finite {
			valid++
			norms = append(norms, math.Sqrt(sum))
		}
		if !zero {
			nonZero++
		}
	}

	m := VectorMetrics{FallbackMode: g != nil && g.FallbackMode}
	if attempted > 0 {
		m.SuccessRate = 100 * float64(produced) / float64(attempted)
	}
	if produced > 0 {
		m.DimensionConsistency = 100 * float64(dimMatch) / float64(produced)
		m.ValidRate = 100 * float64(valid) / float64(produced)
		m.NonZeroRate = 100 * float64(nonZero) / float64(produced)
	}

	normHealth := normStats(norms, &m)

	// Vector Quality Score: valid 0.40, non-zero 0.30, norm_health 0.30.
	m.VectorQualityScore = 0.40*m.ValidRate + 0.30*m.NonZeroRate + 0.30*normHealth*100

	m.ResponseConsistency = responseConsistency(ctx, g)

	// Model Health Score: 1−api_error_rate 0.30, 1−fallback_rate 0.25,
	// 1−dim_mismatch_rate 0.20, norm_health 0.15, response_consistency 0.10.
	apiErrorRate := 0.0
	if attempted > 0 {
		apiErrorRate = float64(attempted-produced) / float64(attempted)
	}
	fallbackRate := 0.0
	if g != nil && g.FallbackMode {
		fallbackRate = 1.0
	}
	dimMismatchRate := 0.0
	if produced > 0 {
		dimMismatchRate = float64(produced-dimMatch) / float64(produced)
	}
	m.ModelHealthScore = 100 * (0.30*(1-apiErrorRate) +
		0.25*(1-fallbackRate) +
		0.20*(1-dimMismatchRate) +
		0.15*normHealth +
		0.10*m.ResponseConsistency/100)

	// Semantic Search Readiness: 0.25·dim + 0.35·VQS + 0.25·health + 0.15·success.
	m.SemanticReadiness = 0.25*m.DimensionConsistency +
		0.35*m.VectorQualityScore +
		0.25*m.ModelHealthScore +
		0.15*m.SuccessRate

	return m
}

// normStats fills the L2-norm distribution fields and returns norm_health
// in [0,1] — the fraction of norms within 3σ of the mean.
func normStats(norms []float64, m *VectorMetrics) float64 {
	if len(norms) == 0 {
		return 0
	}
	sorted := append([]float64(nil), norms...)
	sort.Float64s(sorted)
	m.NormMedian = sorted[len(sorted)/2]

	var sum float64
	for _, n := range norms {
		sum += n
	}
	m.NormMean = sum / float64(len(norms))

	var varSum float64
	for _, n := range norms {
		d := n - m.NormMean
		varSum += d * d
	}
	m.NormStd = math.Sqrt(varSum / float64(len(norms)))

	outliers := 0
	for _, n := range norms {
		if math.Abs(n-m.NormMean) > 3*m.NormStd && m.NormStd > 0 {
			outliers++
		}
	}
	m.NormOutlierRate = float64(outliers) / float64(len(norms))
	return 1 - m.NormOutlierRate
}

// responseConsistency embeds a probe text twice and compares; identical
// input should produce matching vectors within tolerance.
func responseConsistency(ctx context.Context, g *embedding.Generator) float64 {
	if g == nil {
		return 0
	}
	const probe = "embedding determinism probe"
	a, err := g.Embed(ctx, probe)
	if err != nil {
		return 0
	}
	b, err := g.Embed(ctx, probe)
	if err != nil {
		return 0
	}
	if len(a) != len(b) {
		return 0
	}
	for i := range a {
		if math.Abs(float64(a[i])-float64(b[i])) > 1e-5 {
			return 0
		}
	}
	return 100
}
