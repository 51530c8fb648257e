package embedding

import (
	"context"
	"fmt"

	"github.com/primedata-ai/aird/pkg/ollama"
)

// httpAdapter serves a local sentence_transformers-equivalent model via an
// Ollama-compatible HTTP backend (POST {baseURL}/api/embeddings).
type httpAdapter struct {
	client    *ollama.EmbedClient
	dimension int
}

func newHTTPAdapter(d ModelDescriptor) *httpAdapter {
	return &httpAdapter{
		client:    ollama.NewEmbedClient(d.LocalPath, d.ID),
		dimension: d.Dimension,
	}
}

func (a *httpAdapter) Dimension() int { return a.dimension }

func (a *httpAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := a.client.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding: local backend: %w", err)
	}
	return out, nil
}
