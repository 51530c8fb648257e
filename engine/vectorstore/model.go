package vectorstore

import "github.com/primedata-ai/aird/engine/domain"

// SearchHit is one result of a k-NN search: the point id, its
// similarity score, and its payload — the payload is the sole metadata
// source; there is no shadow chunk catalog.
type SearchHit struct {
	ID      uint64
	Score   float32
	Payload domain.VectorPayload
}

// ScrollPage is one page of a scroll_points enumeration.
type ScrollPage struct {
	Points     []ScrolledPoint
	NextOffset uint64
	HasMore    bool
}

// ScrolledPoint is a point returned by scroll_points; vectors are omitted
// unless explicitly requested.
type ScrolledPoint struct {
	ID      uint64
	Payload domain.VectorPayload
	Vector  []float32
}

// CollectionInfo mirrors get_collection_info's documented return shape.
type CollectionInfo struct {
	PointsCount         uint64
	IndexedVectorsCount uint64
	VectorSize          uint64
	Distance            string
	SegmentsCount       uint64
}

// Filter is an AND of field conditions, including membership (IN) filters
// over a list of values — the shape search_points and scroll_points share.
type Filter struct {
	Must []FieldCondition
}

// FieldCondition matches one payload field. Exactly one of Value or
// In should be set: Value for an exact-match condition, In for a
// membership condition (chunk_id IN [...]).
type FieldCondition struct {
	Key   string
	Value string
	In    []string
}
