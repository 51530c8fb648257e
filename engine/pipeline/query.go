package pipeline

import (
	"context"
	"fmt"

	"github.com/primedata-ai/aird/engine/acl"
	"github.com/primedata-ai/aird/engine/domain"
	"github.com/primedata-ai/aird/engine/embedding"
	"github.com/primedata-ai/aird/engine/vectorstore"
)

// QueryOptions shapes one playground query.
type QueryOptions struct {
	// UseProd targets the promoted collection via the production alias
	// instead of the current version's collection.
	UseProd bool
	// Strict makes an embedding-dimension mismatch between product
	// config and collection a conflict instead of a logged compat
	// fallback.
	Strict bool
	TopK   int
}

// QueryResult is a playground answer plus the ACL bookkeeping callers
// surface to the UI.
type QueryResult struct {
	Hits       []vectorstore.SearchHit
	ACLApplied bool
	Collection string
}

// PlaygroundQuery answers a user's free-text query against a product's
// collection: resolve the collection (alias or versioned name), verify
// the embedding dimension, embed the query, and run the ACL-filtered
// search. An empty ACL list yields no results, never "all".
func (r *Runner) PlaygroundQuery(ctx context.Context, productID, userID, query string, opts QueryOptions) (QueryResult, error) {
	product, err := r.catalog.GetProduct(ctx, productID)
	if err != nil {
		return QueryResult{}, fmt.Errorf("pipeline: load product: %w", err)
	}

	version := product.CurrentVersion
	var collection string
	if opts.UseProd {
		collection, err = r.vectors.GetProdAliasCollection(ctx, product.WorkspaceID, product.Name)
		if err != nil || collection == "" {
			return QueryResult{}, fmt.Errorf("pipeline: no production alias for %s: %w", product.Name, domain.ErrInputMissing)
		}
		version = product.PromotedVersion
	} else {
		collection = vectorstore.CollectionName(product.WorkspaceID, product.Name, version)
	}

	// Dimension negotiation happens before any embedding is computed: a
	// strict-mode conflict must not spend an API call.
	dim, err := r.CheckQueryDimension(ctx, product, collection, opts.Strict)
	if err != nil {
		return QueryResult{}, err
	}

	modelName := product.Embedding.ModelName
	if dim != product.Embedding.Dimension {
		if m, ok := r.models.ModelForDimension(dim); ok {
			modelName = m
		}
	}
	generator := embedding.NewGenerator(r.models, product.WorkspaceID, modelName)
	qv, err := generator.Embed(ctx, query)
	if err != nil {
		return QueryResult{}, fmt.Errorf("pipeline: embed query: %w", domain.ErrExternalService)
	}

	acls, err := r.catalog.ListACLsForUser(ctx, userID)
	if err != nil {
		return QueryResult{}, fmt.Errorf("pipeline: load ACLs: %w", err)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = 10
	}
	playground := acl.NewPlayground(r.vectors)
	hits, err := playground.Query(ctx, collection, product.ID, version, acls, qv, topK)
	if err != nil {
		return QueryResult{}, err
	}
	return QueryResult{Hits: hits, ACLApplied: true, Collection: collection}, nil
}
