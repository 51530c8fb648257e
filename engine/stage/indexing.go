package stage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/primedata-ai/aird/engine/domain"
	"github.com/primedata-ai/aird/engine/embedding"
	"github.com/primedata-ai/aird/engine/vectorstore"
	"github.com/primedata-ai/aird/pkg/fn"
	"github.com/primedata-ai/aird/pkg/resilience"
)

// VectorIndex is the slice of vectorstore.Store the indexing stage and
// its self-retrieval evaluation depend on.
type VectorIndex interface {
	EnsureCollection(ctx context.Context, name string, size int) error
	UpsertPoints(ctx context.Context, name string, pts []domain.VectorPoint) error
	SearchPoints(ctx context.Context, name string, query []float32, limit int, scoreThreshold *float32, filter *vectorstore.Filter) ([]vectorstore.SearchHit, error)
	GetCollectionInfo(ctx context.Context, name string) (vectorstore.CollectionInfo, error)
}

// maxPayloadText caps the text stored on a point's payload; the full
// length is preserved in text_length.
const maxPayloadText = 50 * 1024

// upsertBatchSize bounds one upsert request; upserts are idempotent by
// point id, so a retried batch is harmless.
const upsertBatchSize = 128

// perBatchEstimate is the wall-clock guess per embedding batch used only
// for the ETA log line.
const perBatchEstimate = 2 * time.Second

// Indexing joins processed chunks with their scores, embeds them, and
// upserts into the versioned collection with the payload as single
// source of truth, then grades the produced vectors.
type Indexing struct {
	storage   *Storage
	vectors   VectorIndex
	generator *embedding.Generator
	product   domain.Product
	files     []string
	retrieval domain.RetrievalSettings
	logger    *slog.Logger

	// breaker guards the vector-store upserts and self-retrieval searches
	// so a dead backend fails the run fast instead of burning a retry per
	// batch.
	breaker *resilience.Breaker
}

func NewIndexing(storage *Storage, vectors VectorIndex, generator *embedding.Generator, product domain.Product, files []string, retrieval domain.RetrievalSettings, logger *slog.Logger) *Indexing {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexing{
		storage:   storage,
		vectors:   vectors,
		generator: generator,
		product:   product,
		files:     files,
		retrieval: retrieval,
		logger:    logger,
		breaker:   resilience.NewBreaker(resilience.DefaultBreakerOpts),
	}
}

func (ix *Indexing) Name() Name { return NameIndexing }

// PointID derives the deterministic point id: the 15 leftmost hex digits
// of md5("{product}_{chunk_id}_{version}") read as base-16.
func PointID(productID, chunkID string, version int) uint64 {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%s_%d", productID, chunkID, version)))
	id, _ := strconv.ParseUint(hex.EncodeToString(sum[:])[:15], 16, 64)
	return id
}

func (ix *Indexing) Execute(ctx context.Context) Result {
	return run(NameIndexing, ix.product.ID, ix.product.CurrentVersion, func() (Status, map[string]any, map[string]string, error) {
		records, sources := ix.loadRecords(ctx)
		if len(records) == 0 {
			return StatusSkipped, map[string]any{"reason": "no processed chunks"}, nil, nil
		}

		scores, err := ix.storage.GetMetricsJSON(ctx)
		if err != nil {
			scores = nil
		}
		lookup := NewScoreLookup(scores)

		dim, err := ix.resolveDimension(ctx)
		if err != nil {
			return StatusFailed, nil, nil, err
		}

		collection := vectorstore.CollectionName(ix.product.WorkspaceID, ix.product.Name, ix.product.CurrentVersion)
		if err := ix.vectors.EnsureCollection(ctx, collection, dim); err != nil {
			return StatusFailed, nil, nil, fmt.Errorf("indexing: ensure collection: %w", domain.ErrExternalService)
		}

		texts := make([]string, len(records))
		for i, rec := range records {
			texts[i] = rec.Text
		}
		batchSize := embedding.BatchSize(dim)
		batches := (len(texts) + batchSize - 1) / batchSize
		eta := time.Duration(batches) * perBatchEstimate
		ix.logger.Info("indexing: embedding chunks",
			"chunks", len(texts), "batches", batches, "batch_size", batchSize, "eta", eta.String())
		if eta > 60*time.Minute {
			ix.logger.Warn("indexing: embedding ETA exceeds 60 minutes", "eta", eta.String())
		}

		vectors := ix.generator.EmbedBatch(ctx, texts, 0)

		now := time.Now().UTC().Format(time.RFC3339)
		var points []domain.VectorPoint
		var trustSum float64
		for i, rec := range records {
			if vectors[i] == nil {
				continue
			}
			score := lookup.Score(sources[i], rec)
			trustSum += score
			points = append(points, ix.buildPoint(rec, sources[i], vectors[i], score, collection, now))
		}
		if len(points) == 0 {
			return StatusFailed, nil, nil, fmt.Errorf("indexing: every embedding failed: %w", domain.ErrExternalService)
		}

		if err := ix.upsertAll(ctx, collection, points); err != nil {
			return StatusFailed, nil, nil, err
		}

		vm := ComputeVectorMetrics(ctx, vectors, dim, ix.generator)
		rag := ix.selfRetrieval(ctx, collection, records, vectors)

		metrics := map[string]any{
			"collection_name":  collection,
			"points_indexed":   len(points),
			"chunks_attempted": len(records),
			"avg_trust_score":  trustSum / float64(len(points)),
			"embedding_model":  ix.generator.ModelName(),
			"fallback_mode":    ix.generator.FallbackMode,
		}
		for k, v := range vm.Map() {
			metrics[k] = v
		}
		for k, v := range rag.Map() {
			metrics[k] = v
		}
		artifacts := map[string]string{"collection": collection}
		return StatusSucceeded, metrics, artifacts, nil
	})
}

// loadRecords reads every processed JSONL file, tracking the source stem
// per record; unreadable files are skipped, mirroring preprocess's
// per-file error policy.
func (ix *Indexing) loadRecords(ctx context.Context) ([]domain.ProcessedChunkRecord, []string) {
	var records []domain.ProcessedChunkRecord
	var sources []string
	for _, stem := range ix.files {
		recs, err := ix.storage.GetProcessedJSONL(ctx, stem)
		if err != nil {
			ix.logger.Warn("indexing: skipping unreadable processed file", "stem", stem, "err", err)
			continue
		}
		for _, rec := range recs {
			records = append(records, rec)
			sources = append(sources, stem)
		}
	}
	return records, sources
}

// resolveDimension reconciles the generator's dimension with an existing
// collection's stored size. Indexing is strict at write time: a mismatch
// against an already-created collection is a config error, because
// upserting differently-sized vectors would corrupt the collection.
func (ix *Indexing) resolveDimension(ctx context.Context) (int, error) {
	dim := ix.generator.Dimension()
	if dim <= 0 {
		return 0, fmt.Errorf("indexing: embedding dimension %d: %w", dim, domain.ErrConfig)
	}
	collection := vectorstore.CollectionName(ix.product.WorkspaceID, ix.product.Name, ix.product.CurrentVersion)
	info, err := ix.vectors.GetCollectionInfo(ctx, collection)
	if err != nil {
		// Collection does not exist yet; it will be created at dim.
		return dim, nil
	}
	if info.VectorSize > 0 && int(info.VectorSize) != dim {
		return 0, fmt.Errorf("indexing: %w: %s", domain.ErrConfig, domain.NewConflictError(dim, int(info.VectorSize)))
	}
	return dim, nil
}

func (ix *Indexing) buildPoint(rec domain.ProcessedChunkRecord, source string, vector []float32, score float64, collection, createdAt string) domain.VectorPoint {
	text := rec.Text
	textLen := len(text)
	if textLen > maxPayloadText {
		text = text[:maxPayloadText]
	}
	return domain.VectorPoint{
		ID:     PointID(ix.product.ID, rec.ChunkID, ix.product.CurrentVersion),
		Vector: vector,
		Payload: domain.VectorPayload{
			ChunkID:      rec.ChunkID,
			Filename:     source,
			SourceFile:   source,
			DocumentID:   rec.DocumentID,
			Page:         rec.Page,
			PageNumber:   rec.Page,
			Section:      rec.Section,
			FieldName:    rec.FieldName,
			Score:        score,
			Text:         text,
			TextLength:   textLen,
			ProductID:    ix.product.ID,
			Version:      ix.product.CurrentVersion,
			CollectionID: collection,
			CreatedAt:    createdAt,
			DocScope:     rec.DocumentID,
			FieldScope:   rec.FieldName,
			Tags:         rec.Tags,
			TokenEst:     rec.TokenEst,
		},
	}
}

// upsertAll writes points in bounded batches, retrying each batch once
// with backoff before giving up, so cancellation keeps partial progress.
func (ix *Indexing) upsertAll(ctx context.Context, collection string, points []domain.VectorPoint) error {
	retry := fn.RetryOpts{MaxAttempts: 2, InitialWait: time.Second, MaxWait: 10 * time.Second, Jitter: true}
	for start := 0; start < len(points); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(points) {
			end = len(points)
		}
		batch := points[start:end]
		res := fn.Retry(ctx, retry, func(ctx context.Context) fn.Result[struct{}] {
			err := ix.breaker.Call(ctx, func(ctx context.Context) error {
				return ix.vectors.UpsertPoints(ctx, collection, batch)
			})
			if err != nil {
				return fn.Err[struct{}](err)
			}
			return fn.Ok(struct{}{})
		})
		if _, err := res.Unwrap(); err != nil {
			return fmt.Errorf("indexing: upsert batch at %d: %w: %v", start, domain.ErrExternalService, err)
		}
	}
	return nil
}
