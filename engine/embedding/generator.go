package embedding

import (
	"context"

	"github.com/primedata-ai/aird/pkg/resilience"
)

// Generator is constructed per (model, dimension, workspace) and serves
// both single and batch embedding calls. Every call to the backing model
// goes through a circuit breaker, so a dead embedding backend fails fast
// instead of timing out once per chunk.
type Generator struct {
	workspaceID  string
	modelName    string
	adapter      ModelAdapter
	breaker      *resilience.Breaker
	FallbackMode bool
}

// NewGenerator resolves modelName to an adapter via reg and reports
// whether it degraded to the hash fallback.
func NewGenerator(reg *Registry, workspaceID, modelName string) *Generator {
	adapter, fellBack := reg.Build(workspaceID, modelName)
	return &Generator{
		workspaceID:  workspaceID,
		modelName:    modelName,
		adapter:      adapter,
		breaker:      resilience.NewBreaker(resilience.DefaultBreakerOpts),
		FallbackMode: fellBack,
	}
}

// Dimension reports the adapter's output width.
func (g *Generator) Dimension() int { return g.adapter.Dimension() }

// ModelName reports the model this generator was resolved for.
func (g *Generator) ModelName() string { return g.modelName }

// Embed produces a single vector for text.
func (g *Generator) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		v, err := g.adapter.Embed(ctx, text)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BatchSize auto-tunes the per-call batch size by embedding dimension:
// d>=1024 -> 3, 768<=d<1024 -> 15, else 100.
func BatchSize(dimension int) int {
	switch {
	case dimension >= 1024:
		return 3
	case dimension >= 768:
		return 15
	default:
		return 100
	}
}

// EmbedBatch embeds texts in sequential batches sized by BatchSize
// (unless batchSize overrides it). A batch that fails falls back to
// per-text embedding; a single text that still fails yields a nil
// vector at its index so the indexing stage can skip that chunk without
// losing the rest of the run.
func (g *Generator) EmbedBatch(ctx context.Context, texts []string, batchSize int) [][]float32 {
	if batchSize <= 0 {
		batchSize = BatchSize(g.Dimension())
	}

	out := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		g.embedBatchRange(ctx, texts, start, end, out)
	}
	return out
}

func (g *Generator) embedBatchRange(ctx context.Context, texts []string, start, end int, out [][]float32) {
	ok := true
	for i := start; i < end; i++ {
		v, err := g.Embed(ctx, texts[i])
		if err != nil {
			ok = false
			break
		}
		out[i] = v
	}
	if ok {
		return
	}

	// Batch-level failure: retry this range one text at a time, letting
	// any individual failure degrade to a nil entry instead of failing
	// the whole range.
	for i := start; i < end; i++ {
		v, err := g.Embed(ctx, texts[i])
		if err != nil {
			out[i] = nil
			continue
		}
		out[i] = v
	}
}
