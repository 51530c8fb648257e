package acl

import (
	"context"
	"testing"

	"github.com/primedata-ai/aird/engine/domain"
	"github.com/primedata-ai/aird/engine/vectorstore"
)

func payload(chunkID, productID, documentID, fieldName string) domain.VectorPayload {
	return domain.VectorPayload{
		ChunkID:    chunkID,
		ProductID:  productID,
		DocumentID: documentID,
		FieldName:  fieldName,
	}
}

func TestApplyFilterFullAccessAdmitsEverything(t *testing.T) {
	payloads := []domain.VectorPayload{payload("c1", "p1", "d1", "name"), payload("c2", "p9", "d9", "other")}
	acls := []domain.ACL{{AccessType: domain.ACLFull}}

	got := ApplyFilter(payloads, acls, "p1")
	if len(got) != 2 {
		t.Fatalf("expected both payloads admitted, got %d", len(got))
	}
}

func TestApplyFilterIndexScopeMatchesProductID(t *testing.T) {
	payloads := []domain.VectorPayload{payload("c1", "p1", "d1", "name"), payload("c2", "p2", "d2", "name")}
	acls := []domain.ACL{{AccessType: domain.ACLIndex, IndexScope: "p1"}}

	got := ApplyFilter(payloads, acls, "p1")
	if len(got) != 1 || got[0].ChunkID != "c1" {
		t.Fatalf("expected only c1 admitted, got %v", got)
	}
}

func TestApplyFilterDocumentScope(t *testing.T) {
	payloads := []domain.VectorPayload{payload("c1", "p1", "doc-a", "name"), payload("c2", "p1", "doc-b", "name")}
	acls := []domain.ACL{{AccessType: domain.ACLDocument, DocScope: "doc-a,doc-c"}}

	got := ApplyFilter(payloads, acls, "p1")
	if len(got) != 1 || got[0].ChunkID != "c1" {
		t.Fatalf("expected only c1 admitted, got %v", got)
	}
}

func TestApplyFilterFieldScopeSubstringOverlap(t *testing.T) {
	payloads := []domain.VectorPayload{
		payload("c1", "p1", "d1", "customer_email"),
		payload("c2", "p1", "d1", "shipping_address"),
	}
	acls := []domain.ACL{{AccessType: domain.ACLField, FieldScope: "email"}}

	got := ApplyFilter(payloads, acls, "p1")
	if len(got) != 1 || got[0].ChunkID != "c1" {
		t.Fatalf("expected only c1 admitted via substring overlap, got %v", got)
	}
}

func TestApplyFilterFirstMatchWins(t *testing.T) {
	payloads := []domain.VectorPayload{payload("c1", "p1", "d1", "name")}
	acls := []domain.ACL{
		{AccessType: domain.ACLDocument, DocScope: "nonexistent"},
		{AccessType: domain.ACLFull},
	}

	got := ApplyFilter(payloads, acls, "p1")
	if len(got) != 1 {
		t.Fatalf("expected full-access ACL later in the list to still admit, got %v", got)
	}
}

func TestApplyFilterDedupesByChunkID(t *testing.T) {
	payloads := []domain.VectorPayload{payload("c1", "p1", "d1", "name"), payload("c1", "p1", "d1", "name")}
	acls := []domain.ACL{{AccessType: domain.ACLFull}}

	got := ApplyFilter(payloads, acls, "p1")
	if len(got) != 1 {
		t.Fatalf("expected dedup by chunk_id, got %d entries", len(got))
	}
}

func TestApplyFilterNoMatchingACLDrops(t *testing.T) {
	payloads := []domain.VectorPayload{payload("c1", "p1", "d1", "name")}
	acls := []domain.ACL{{AccessType: domain.ACLIndex, IndexScope: "other-product"}}

	got := ApplyFilter(payloads, acls, "p1")
	if len(got) != 0 {
		t.Fatalf("expected no admission, got %v", got)
	}
}

func TestApplyFilterEmptyACLsAdmitsNothing(t *testing.T) {
	payloads := []domain.VectorPayload{payload("c1", "p1", "d1", "name")}
	got := ApplyFilter(payloads, nil, "p1")
	if len(got) != 0 {
		t.Fatalf("expected no ACLs to admit nothing, got %v", got)
	}
}

// fakeScroller is a Scroller double that serves one page of points and
// records the search filter it was called with.
type fakeScroller struct {
	pages        []vectorstore.ScrollPage
	scrollCalls  int
	searchFilter *vectorstore.Filter
	searchHits   []vectorstore.SearchHit
}

func (f *fakeScroller) ScrollPoints(ctx context.Context, name string, limit int, offset uint64, filter *vectorstore.Filter, withVector bool) (vectorstore.ScrollPage, error) {
	page := f.pages[f.scrollCalls]
	f.scrollCalls++
	return page, nil
}

func (f *fakeScroller) SearchPoints(ctx context.Context, name string, query []float32, limit int, scoreThreshold *float32, filter *vectorstore.Filter) ([]vectorstore.SearchHit, error) {
	f.searchFilter = filter
	return f.searchHits, nil
}

func TestPlaygroundQueryBuildsChunkIDInFilter(t *testing.T) {
	scroller := &fakeScroller{
		pages: []vectorstore.ScrollPage{
			{
				Points: []vectorstore.ScrolledPoint{
					{Payload: payload("c1", "p1", "d1", "name")},
					{Payload: payload("c2", "p1", "d2", "name")},
				},
				HasMore: false,
			},
		},
		searchHits: []vectorstore.SearchHit{{ID: 1, Score: 0.9}},
	}
	pg := NewPlayground(scroller)

	acls := []domain.ACL{{AccessType: domain.ACLDocument, DocScope: "d1"}}
	hits, err := pg.Query(context.Background(), "coll", "p1", 3, acls, []float32{0.1, 0.2}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected search hits passed through, got %v", hits)
	}
	if scroller.searchFilter == nil || len(scroller.searchFilter.Must) != 1 {
		t.Fatalf("expected a single chunk_id IN condition, got %v", scroller.searchFilter)
	}
	cond := scroller.searchFilter.Must[0]
	if cond.Key != "chunk_id" || len(cond.In) != 1 || cond.In[0] != "c1" {
		t.Fatalf("expected filter scoped to the ACL-admitted chunk c1, got %+v", cond)
	}
}

func TestPlaygroundQueryPaginatesScroll(t *testing.T) {
	scroller := &fakeScroller{
		pages: []vectorstore.ScrollPage{
			{
				Points:     []vectorstore.ScrolledPoint{{Payload: payload("c1", "p1", "d1", "name")}},
				NextOffset: 1,
				HasMore:    true,
			},
			{
				Points:  []vectorstore.ScrolledPoint{{Payload: payload("c2", "p1", "d1", "name")}},
				HasMore: false,
			},
		},
		searchHits: []vectorstore.SearchHit{},
	}
	pg := NewPlayground(scroller)

	acls := []domain.ACL{{AccessType: domain.ACLFull}}
	if _, err := pg.Query(context.Background(), "coll", "p1", 1, acls, nil, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scroller.scrollCalls != 2 {
		t.Fatalf("expected scroll to paginate across both pages, got %d calls", scroller.scrollCalls)
	}
	if len(scroller.searchFilter.Must[0].In) != 2 {
		t.Fatalf("expected both pages' chunks admitted, got %v", scroller.searchFilter.Must[0].In)
	}
}

func TestPlaygroundQueryShortCircuitsWhenNothingAdmitted(t *testing.T) {
	scroller := &fakeScroller{
		pages: []vectorstore.ScrollPage{
			{Points: []vectorstore.ScrolledPoint{{Payload: payload("c1", "p1", "d1", "name")}}, HasMore: false},
		},
	}
	pg := NewPlayground(scroller)

	hits, err := pg.Query(context.Background(), "coll", "p1", 1, nil, nil, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits != nil {
		t.Fatalf("expected no search call and nil hits when no chunk is admitted, got %v", hits)
	}
	if scroller.searchFilter != nil {
		t.Fatal("expected SearchPoints never called when nothing survives ACL filtering")
	}
}
