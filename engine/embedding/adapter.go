package embedding

import "context"

// ModelAdapter is the uniform surface every registered model family
// implements.
type ModelAdapter interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
