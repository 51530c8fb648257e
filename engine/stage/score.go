package stage

import (
	"context"
	"fmt"

	"github.com/primedata-ai/aird/engine/domain"
	"github.com/primedata-ai/aird/engine/playbook"
	"github.com/primedata-ai/aird/engine/scoring"
)

// Score reads each processed JSONL file back, computes per-chunk
// quality metrics, and writes metrics.json. The processed file list is
// handed over from the preprocess stage's result metrics — stages
// exchange data only through the object store and the run row.
type Score struct {
	storage   *Storage
	playbooks *playbook.Router
	product   domain.Product
	files     []string
	weights   scoring.Weights
}

func NewScore(storage *Storage, playbooks *playbook.Router, product domain.Product, files []string, weights scoring.Weights) *Score {
	return &Score{storage: storage, playbooks: playbooks, product: product, files: files, weights: weights}
}

func (s *Score) Name() Name { return NameScore }

func (s *Score) Execute(ctx context.Context) Result {
	return run(NameScore, s.product.ID, s.product.CurrentVersion, func() (Status, map[string]any, map[string]string, error) {
		if len(s.files) == 0 {
			return StatusSkipped, map[string]any{"reason": "no processed files"}, nil, nil
		}

		pb, err := s.playbooks.Resolve(s.product.PlaybookID)
		if err != nil {
			return StatusFailed, nil, nil, fmt.Errorf("score: resolve playbook: %w", err)
		}

		var all []domain.PerChunkMetricRecord
		var trustSum float64
		for _, stem := range s.files {
			records, err := s.storage.GetProcessedJSONL(ctx, stem)
			if err != nil {
				return StatusFailed, nil, nil, fmt.Errorf("score: read processed %s: %w", stem, err)
			}
			for _, rec := range records {
				m := scoring.Score(scoring.Input{
					Record:     rec,
					Playbook:   pb,
					HasHeading: rec.Section != "" && rec.Section != "general",
				}, s.weights)
				m.File = stem
				all = append(all, m)
				trustSum += m.AITrustScore
			}
		}

		if len(all) == 0 {
			return StatusSkipped, map[string]any{"reason": "no chunks to score"}, nil, nil
		}

		if err := s.storage.PutMetricsJSON(ctx, all); err != nil {
			return StatusFailed, nil, nil, fmt.Errorf("score: write metrics.json: %w", err)
		}

		metrics := map[string]any{
			"scored_chunks":   len(all),
			"scored_files":    len(s.files),
			"avg_trust_score": trustSum / float64(len(all)),
		}
		artifacts := map[string]string{"metrics.json": s.storage.Scope().MetricsJSONKey()}
		return StatusSucceeded, metrics, artifacts, nil
	})
}
