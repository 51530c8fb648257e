package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// hostedAdapter serves an openai- or huggingface-shaped hosted embedding
// API. Both speak an OpenAI-compatible {"input"} request with a bearer
// token; the custom adapter slot reuses the same shape until a real
// third provider is registered. Calls are throttled client-side so a
// large indexing batch never trips the provider's rate limit.
type hostedAdapter struct {
	endpoint  string
	model     string
	dimension int
	apiKey    string
	client    *http.Client
	limiter   *rate.Limiter
}

const hostedRequestsPerSecond = 20

func newHostedAdapter(d ModelDescriptor, apiKey string) *hostedAdapter {
	endpoint := "https://api.openai.com/v1/embeddings"
	if d.Type == TypeHuggingFace {
		endpoint = fmt.Sprintf("https://api-inference.huggingface.co/models/%s", d.HostedName)
	}
	return &hostedAdapter{
		endpoint:  endpoint,
		model:     d.HostedName,
		dimension: d.Dimension,
		apiKey:    apiKey,
		client:    &http.Client{},
		limiter:   rate.NewLimiter(rate.Limit(hostedRequestsPerSecond), hostedRequestsPerSecond),
	}
}

func (a *hostedAdapter) Dimension() int { return a.dimension }

type hostedEmbedReq struct {
	Model string `json:"model,omitempty"`
	Input string `json:"input"`
}

type hostedEmbedResp struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (a *hostedAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	body, err := json.Marshal(hostedEmbedReq{Model: a.model, Input: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: hosted backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding: hosted backend: status %d", resp.StatusCode)
	}

	var result hostedEmbedResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embedding: hosted backend decode: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("embedding: hosted backend returned no embeddings")
	}

	raw := result.Data[0].Embedding
	out := make([]float32, len(raw))
	for i, v := range raw {
		out[i] = float32(v)
	}
	return out, nil
}
