package stage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/primedata-ai/aird/engine/domain"
	"github.com/primedata-ai/aird/engine/fingerprint"
)

// FingerprintSink persists an aggregated fingerprint onto the product row.
type FingerprintSink interface {
	SetFingerprint(ctx context.Context, productID string, fp domain.Fingerprint) error
}

// Fingerprint aggregates metrics.json across chunks into the
// product-level readiness fingerprint, writes it alongside the metrics,
// and stamps it onto the product row.
type Fingerprint struct {
	storage *Storage
	sink    FingerprintSink
	product domain.Product

	// boundaryRate is the preprocess stage's mid_sentence_boundary_rate;
	// negative means preprocessing stats were unavailable and the Chunk
	// Boundary Quality subscore is omitted.
	boundaryRate float64
}

func NewFingerprint(storage *Storage, sink FingerprintSink, product domain.Product, boundaryRate float64) *Fingerprint {
	return &Fingerprint{storage: storage, sink: sink, product: product, boundaryRate: boundaryRate}
}

// FingerprintArtifactName is the artifact fingerprint.json is registered
// under, read back by the policy and reporting stages.
const FingerprintArtifactName = "fingerprint.json"

func (f *Fingerprint) Name() Name { return NameFingerprint }

func (f *Fingerprint) Execute(ctx context.Context) Result {
	return run(NameFingerprint, f.product.ID, f.product.CurrentVersion, func() (Status, map[string]any, map[string]string, error) {
		records, err := f.storage.GetMetricsJSON(ctx)
		if err != nil {
			return StatusSkipped, map[string]any{"reason": "metrics.json missing"}, nil, nil
		}
		if len(records) == 0 {
			return StatusSkipped, map[string]any{"reason": "metrics.json empty"}, nil, nil
		}

		fp := fingerprint.Aggregate(records, f.boundaryRate)

		data, err := json.Marshal(fp)
		if err != nil {
			return StatusFailed, nil, nil, fmt.Errorf("fingerprint: marshal: %w", err)
		}
		key, err := f.storage.PutArtifact(ctx, FingerprintArtifactName, data, "application/json")
		if err != nil {
			return StatusFailed, nil, nil, fmt.Errorf("fingerprint: write artifact: %w", err)
		}
		if err := f.sink.SetFingerprint(ctx, f.product.ID, fp); err != nil {
			return StatusFailed, nil, nil, fmt.Errorf("fingerprint: persist: %w", err)
		}

		metrics := map[string]any{
			"AI_Trust_Score":      fp.AITrustScore,
			"Completeness":        fp.Completeness,
			"Quality":             fp.Quality,
			"Secure":              fp.Secure,
			"Metadata_Presence":   fp.MetadataPresence,
			"KnowledgeBase_Ready": fp.KBReady,
			"chunks_aggregated":   len(records),
		}
		if f.boundaryRate >= 0 {
			metrics["Chunk_Boundary_Quality"] = fp.ChunkBoundaryQuality
		}
		return StatusSucceeded, metrics, map[string]string{FingerprintArtifactName: key}, nil
	})
}

// LoadFingerprint reads fingerprint.json back from storage, for the
// stages downstream of fingerprint that consume it.
func LoadFingerprint(ctx context.Context, storage *Storage) (domain.Fingerprint, error) {
	data, err := storage.GetArtifact(ctx, FingerprintArtifactName)
	if err != nil {
		return domain.Fingerprint{}, fmt.Errorf("%w: %s", domain.ErrInputMissing, FingerprintArtifactName)
	}
	var fp domain.Fingerprint
	if err := json.Unmarshal(data, &fp); err != nil {
		return domain.Fingerprint{}, fmt.Errorf("parse %s: %w", FingerprintArtifactName, domain.ErrIntegrity)
	}
	return fp, nil
}
