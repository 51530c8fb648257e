package acl

import (
	"context"
	"fmt"

	"github.com/primedata-ai/aird/engine/domain"
	"github.com/primedata-ai/aird/engine/vectorstore"
)

// Scroller is the subset of vectorstore.Store the playground query layer
// needs: full-collection enumeration and filtered k-NN search.
type Scroller interface {
	ScrollPoints(ctx context.Context, name string, limit int, offset uint64, filter *vectorstore.Filter, withVector bool) (vectorstore.ScrollPage, error)
	SearchPoints(ctx context.Context, name string, query []float32, limit int, scoreThreshold *float32, filter *vectorstore.Filter) ([]vectorstore.SearchHit, error)
}

const scrollPageSize = 256

// Playground is the ACL-aware query layer a product's search UI goes
// through: every query is scoped by (product, version) and ACL-filtered
// before the vector similarity search ever runs, so a caller can never
// retrieve a chunk outside their grant.
type Playground struct {
	store Scroller
}

// NewPlayground wires a Playground against a vector store.
func NewPlayground(store Scroller) *Playground {
	return &Playground{store: store}
}

// Query scrolls the full collection restricted to (productID, version),
// applies userACLs via ApplyFilter, builds a chunk_id-IN filter from what
// survives, then issues the k-NN search bound to that filter — so the
// similarity search itself can never surface a chunk the ACL pass dropped.
func (p *Playground) Query(ctx context.Context, collection string, productID string, version int, userACLs []domain.ACL, queryVector []float32, topK int) ([]vectorstore.SearchHit, error) {
	allowedChunkIDs, err := p.allowedChunkIDs(ctx, collection, productID, version, userACLs)
	if err != nil {
		return nil, err
	}
	if len(allowedChunkIDs) == 0 {
		return nil, nil
	}

	filter := &vectorstore.Filter{
		Must: []vectorstore.FieldCondition{
			{Key: "chunk_id", In: allowedChunkIDs},
		},
	}
	hits, err := p.store.SearchPoints(ctx, collection, queryVector, topK, nil, filter)
	if err != nil {
		return nil, fmt.Errorf("acl: search within ACL filter: %w", err)
	}
	return hits, nil
}

// allowedChunkIDs scrolls the full (product, version)-scoped collection
// and returns the chunk_id set that survives ApplyFilter.
func (p *Playground) allowedChunkIDs(ctx context.Context, collection, productID string, version int, userACLs []domain.ACL) ([]string, error) {
	scope := &vectorstore.Filter{
		Must: []vectorstore.FieldCondition{
			{Key: "product_id", Value: productID},
			{Key: "version", Value: fmt.Sprintf("%d", version)},
		},
	}

	var payloads []domain.VectorPayload
	var offset uint64
	for {
		page, err := p.store.ScrollPoints(ctx, collection, scrollPageSize, offset, scope, false)
		if err != nil {
			return nil, fmt.Errorf("acl: scroll collection: %w", err)
		}
		for _, pt := range page.Points {
			payloads = append(payloads, pt.Payload)
		}
		if !page.HasMore {
			break
		}
		offset = page.NextOffset
	}

	filtered := ApplyFilter(payloads, userACLs, productID)
	ids := make([]string, 0, len(filtered))
	for _, p := range filtered {
		ids = append(ids, p.ChunkID)
	}
	return ids, nil
}
