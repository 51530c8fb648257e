// Package vectorstore implements the vector store client:
// collection lifecycle, idempotent point upserts, filtered k-NN search,
// paginated scroll for ACL filtering, and production-alias management.
// Qdrant is the sole backend.
package vectorstore

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/primedata-ai/aird/engine/domain"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Store is the sole owner of all Qdrant operations for the pipeline.
type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
}

// New dials Qdrant at addr (host:grpc_port).
func New(addr string) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("vectorstore: dial qdrant %s: %w", addr, err)
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
	}, nil
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() error { return s.conn.Close() }

// EnsureCollection creates name with the given vector size and Cosine
// distance if it does not already exist.
func (s *Store) EnsureCollection(ctx context.Context, name string, size int) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("vectorstore: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == name {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(size),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("vectorstore: create collection %s: %w", name, err)
	}
	return nil
}

// DeleteCollection deletes name.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	_, err := s.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: name})
	if err != nil {
		return fmt.Errorf("vectorstore: delete collection %s: %w", name, err)
	}
	return nil
}

// GetCollectionInfo returns points_count/indexed_vectors_count/config.
func (s *Store) GetCollectionInfo(ctx context.Context, name string) (CollectionInfo, error) {
	resp, err := s.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: name})
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("vectorstore: get collection info %s: %w", name, err)
	}
	res := resp.GetResult()
	info := CollectionInfo{
		PointsCount:         res.GetPointsCount(),
		IndexedVectorsCount: res.GetIndexedVectorsCount(),
		SegmentsCount:       res.GetSegmentsCount(),
	}
	if params := res.GetConfig().GetParams().GetVectorsConfig().GetParams(); params != nil {
		info.VectorSize = params.GetSize()
		info.Distance = params.GetDistance().String()
	}
	return info, nil
}

// UpsertPoints writes points into name, idempotent by point id.
func (s *Store) UpsertPoints(ctx context.Context, name string, pts []domain.VectorPoint) error {
	if len(pts) == 0 {
		return nil
	}
	structs := make([]*pb.PointStruct, len(pts))
	for i, p := range pts {
		structs[i] = &pb.PointStruct{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: p.ID}},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: p.Vector}},
			},
			Payload: payloadToValues(p.Payload),
		}
	}
	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: name,
		Wait:           &wait,
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("vectorstore: upsert %d points into %s: %w", len(pts), name, err)
	}
	return nil
}

// SearchPoints runs a k-NN search with an optional AND filter and an
// optional minimum score threshold.
func (s *Store) SearchPoints(ctx context.Context, name string, query []float32, limit int, scoreThreshold *float32, filter *Filter) ([]SearchHit, error) {
	req := &pb.SearchPoints{
		CollectionName: name,
		Vector:         query,
		Limit:          uint64(limit),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		ScoreThreshold: scoreThreshold,
	}
	if filter != nil {
		req.Filter = toPBFilter(*filter)
	}
	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: search %s: %w", name, err)
	}
	hits := make([]SearchHit, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		hits[i] = SearchHit{
			ID:      r.GetId().GetNum(),
			Score:   r.GetScore(),
			Payload: payloadFromValues(r.GetPayload()),
		}
	}
	return hits, nil
}

// ScrollPoints paginates the full collection, optionally filtered — used
// by the ACL engine to enumerate candidate payloads before filtering.
func (s *Store) ScrollPoints(ctx context.Context, name string, limit int, offset uint64, filter *Filter, withVector bool) (ScrollPage, error) {
	req := &pb.ScrollPoints{
		CollectionName: name,
		Limit:          ptrUint32(uint32(limit)),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: withVector}},
	}
	if offset > 0 {
		req.Offset = &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: offset}}
	}
	if filter != nil {
		req.Filter = toPBFilter(*filter)
	}
	resp, err := s.points.Scroll(ctx, req)
	if err != nil {
		return ScrollPage{}, fmt.Errorf("vectorstore: scroll %s: %w", name, err)
	}
	page := ScrollPage{}
	for _, r := range resp.GetResult() {
		sp := ScrolledPoint{
			ID:      r.GetId().GetNum(),
			Payload: payloadFromValues(r.GetPayload()),
		}
		if withVector {
			sp.Vector = r.GetVectors().GetVector().GetData()
		}
		page.Points = append(page.Points, sp)
	}
	if next := resp.GetNextPageOffset(); next != nil {
		page.NextOffset = next.GetNum()
		page.HasMore = true
	}
	return page, nil
}

// SetProdAlias atomically swaps the production alias for (workspace,
// product) to point at the versioned collection, deleting any prior alias
// in the same batch. Errors if the target collection does not exist.
func (s *Store) SetProdAlias(ctx context.Context, workspaceID, productID, productName string, version int) error {
	collection := CollectionName(workspaceID, productName, version)
	if _, err := s.GetCollectionInfo(ctx, collection); err != nil {
		return fmt.Errorf("vectorstore: cannot promote to missing collection %s: %w", collection, err)
	}

	alias := ProdAliasName(workspaceID, productName)
	actions := []*pb.AliasOperations{
		{
			Action: &pb.AliasOperations_DeleteAlias{
				DeleteAlias: &pb.DeleteAlias{AliasName: alias},
			},
		},
		{
			Action: &pb.AliasOperations_CreateAlias{
				CreateAlias: &pb.CreateAlias{CollectionName: collection, AliasName: alias},
			},
		},
	}
	_, err := s.collections.UpdateAliases(ctx, &pb.ChangeAliases{Actions: actions})
	if err != nil {
		return fmt.Errorf("vectorstore: set prod alias %s -> %s: %w", alias, collection, err)
	}
	return nil
}

// GetProdAliasCollection resolves the production alias to its current
// collection name, or "" if no alias exists.
func (s *Store) GetProdAliasCollection(ctx context.Context, workspaceID, productName string) (string, error) {
	alias := ProdAliasName(workspaceID, productName)
	resp, err := s.collections.ListAliases(ctx, &pb.ListAliasesRequest{})
	if err != nil {
		return "", fmt.Errorf("vectorstore: list aliases: %w", err)
	}
	for _, a := range resp.GetAliases() {
		if a.GetAliasName() == alias {
			return a.GetCollectionName(), nil
		}
	}
	return "", nil
}

// FindCollectionName checks both the current name-based collection naming
// format and the legacy id-based one for backward compatibility, returning
// whichever exists.
func (s *Store) FindCollectionName(ctx context.Context, workspaceID, productID, productName string, version int) (string, error) {
	byName := CollectionName(workspaceID, productName, version)
	if _, err := s.GetCollectionInfo(ctx, byName); err == nil {
		return byName, nil
	}
	legacy := fmt.Sprintf("ws_%s__%s__v_%d", workspaceID, productID, version)
	if _, err := s.GetCollectionInfo(ctx, legacy); err == nil {
		return legacy, nil
	}
	return "", fmt.Errorf("vectorstore: no collection found for product %s version %d", productID, version)
}

var (
	nonAlnum    = regexp.MustCompile(`[^a-z0-9]+`)
	underscores = regexp.MustCompile(`_+`)
)

// SanitizeCollectionName lowercases, replaces non-[a-z0-9] with '_',
// collapses and trims underscores. Idempotent.
func SanitizeCollectionName(productName string) string {
	s := strings.ToLower(productName)
	s = nonAlnum.ReplaceAllString(s, "_")
	s = underscores.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		s = "product"
	}
	return s
}

// CollectionName builds ws_{workspace}__{sanitized_product_name}__v_{n}.
func CollectionName(workspaceID, productName string, version int) string {
	return fmt.Sprintf("ws_%s__%s__v_%d", workspaceID, SanitizeCollectionName(productName), version)
}

// ProdAliasName builds prod_ws_{workspace}__{sanitized_product_name}.
func ProdAliasName(workspaceID, productName string) string {
	return fmt.Sprintf("prod_ws_%s__%s", workspaceID, SanitizeCollectionName(productName))
}

func toPBFilter(f Filter) *pb.Filter {
	must := make([]*pb.Condition, 0, len(f.Must))
	for _, c := range f.Must {
		if len(c.In) > 0 {
			must = append(must, &pb.Condition{
				ConditionOneOf: &pb.Condition_Field{
					Field: &pb.FieldCondition{
						Key: c.Key,
						Match: &pb.Match{
							MatchValue: &pb.Match_Keywords{
								Keywords: &pb.RepeatedStrings{Strings: c.In},
							},
						},
					},
				},
			})
			continue
		}
		must = append(must, &pb.Condition{
			ConditionOneOf: &pb.Condition_Field{
				Field: &pb.FieldCondition{
					Key: c.Key,
					Match: &pb.Match{
						MatchValue: &pb.Match_Keyword{Keyword: c.Value},
					},
				},
			},
		})
	}
	return &pb.Filter{Must: must}
}

func payloadToValues(p domain.VectorPayload) map[string]*pb.Value {
	m := map[string]*pb.Value{
		"chunk_id":      strVal(p.ChunkID),
		"filename":      strVal(p.Filename),
		"source_file":   strVal(p.SourceFile),
		"document_id":   strVal(p.DocumentID),
		"section":       strVal(p.Section),
		"text":          strVal(p.Text),
		"product_id":    strVal(p.ProductID),
		"collection_id": strVal(p.CollectionID),
		"created_at":    strVal(p.CreatedAt),
		"version":       intVal(p.Version),
		"text_length":   intVal(p.TextLength),
		"score":         dblVal(p.Score),
	}
	if p.Page != 0 {
		m["page"] = intVal(p.Page)
	}
	if p.PageNumber != 0 {
		m["page_number"] = intVal(p.PageNumber)
	}
	if p.FieldName != "" {
		m["field_name"] = strVal(p.FieldName)
	}
	if p.DocScope != "" {
		m["doc_scope"] = strVal(p.DocScope)
	}
	if p.FieldScope != "" {
		m["field_scope"] = strVal(p.FieldScope)
	}
	if p.TokenEst != 0 {
		m["token_est"] = intVal(p.TokenEst)
	}
	if len(p.Tags) > 0 {
		m["tags"] = strVal(strings.Join(p.Tags, ","))
	}
	return m
}

func payloadFromValues(m map[string]*pb.Value) domain.VectorPayload {
	get := func(k string) string { return m[k].GetStringValue() }
	getInt := func(k string) int { return int(m[k].GetIntegerValue()) }
	p := domain.VectorPayload{
		ChunkID:      get("chunk_id"),
		Filename:     get("filename"),
		SourceFile:   get("source_file"),
		DocumentID:   get("document_id"),
		Section:      get("section"),
		FieldName:    get("field_name"),
		Text:         get("text"),
		ProductID:    get("product_id"),
		CollectionID: get("collection_id"),
		CreatedAt:    get("created_at"),
		DocScope:     get("doc_scope"),
		FieldScope:   get("field_scope"),
		Page:         getInt("page"),
		PageNumber:   getInt("page_number"),
		Version:      getInt("version"),
		TextLength:   getInt("text_length"),
		TokenEst:     getInt("token_est"),
		Score:        m["score"].GetDoubleValue(),
	}
	if tags := get("tags"); tags != "" {
		p.Tags = strings.Split(tags, ",")
	}
	return p
}

func strVal(v string) *pb.Value  { return &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}} }
func intVal(v int) *pb.Value     { return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(v)}} }
func dblVal(v float64) *pb.Value { return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: v}} }
func ptrUint32(v uint32) *uint32 { return &v }
