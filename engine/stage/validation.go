package stage

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/primedata-ai/aird/engine/domain"
)

// ValidationArtifactName is the CSV summary the validation stage emits.
const ValidationArtifactName = "validation_summary.csv"

// Validation emits the CSV summary: one row per chunk with its trust
// score and a pass/fail verdict against the configured threshold.
type Validation struct {
	storage   *Storage
	product   domain.Product
	threshold float64
}

func NewValidation(storage *Storage, product domain.Product, threshold float64) *Validation {
	return &Validation{storage: storage, product: product, threshold: threshold}
}

func (v *Validation) Name() Name { return NameValidation }

func (v *Validation) Execute(ctx context.Context) Result {
	return run(NameValidation, v.product.ID, v.product.CurrentVersion, func() (Status, map[string]any, map[string]string, error) {
		records, err := v.storage.GetMetricsJSON(ctx)
		if err != nil {
			return StatusSkipped, map[string]any{"reason": "metrics.json missing"}, nil, nil
		}
		if len(records) == 0 {
			return StatusSkipped, map[string]any{"reason": "metrics.json empty"}, nil, nil
		}

		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write([]string{"file", "chunk_id", "section", "ai_trust_score", "result"}); err != nil {
			return StatusFailed, nil, nil, fmt.Errorf("validation: write header: %w", err)
		}

		passed := 0
		for _, r := range records {
			verdict := "fail"
			if r.AITrustScore >= v.threshold {
				verdict = "pass"
				passed++
			}
			row := []string{
				r.File,
				r.ChunkID,
				r.Section,
				strconv.FormatFloat(r.AITrustScore, 'f', 2, 64),
				verdict,
			}
			if err := w.Write(row); err != nil {
				return StatusFailed, nil, nil, fmt.Errorf("validation: write row: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return StatusFailed, nil, nil, fmt.Errorf("validation: flush csv: %w", err)
		}

		key, err := v.storage.PutArtifact(ctx, ValidationArtifactName, buf.Bytes(), "text/csv")
		if err != nil {
			return StatusFailed, nil, nil, fmt.Errorf("validation: write artifact: %w", err)
		}

		metrics := map[string]any{
			"rows":      len(records),
			"passed":    passed,
			"failed":    len(records) - passed,
			"pass_rate": float64(passed) / float64(len(records)),
			"threshold": v.threshold,
		}
		return StatusSucceeded, metrics, map[string]string{ValidationArtifactName: key}, nil
	})
}
