// Package pipeline sequences the stage pipeline for one (product, version)
// run: preprocess → score → fingerprint → policy → (validation ∥
// reporting) → indexing. The Runner plays the role of the external DAG's
// per-run worker — it executes stages in order, records every outcome
// through the tracker, registers artifacts, and owns the run's terminal
// status.
package pipeline

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/primedata-ai/aird/engine/catalog"
	"github.com/primedata-ai/aird/engine/domain"
	"github.com/primedata-ai/aird/engine/embedding"
	"github.com/primedata-ai/aird/engine/fingerprint"
	"github.com/primedata-ai/aird/engine/objectstore"
	"github.com/primedata-ai/aird/engine/pathkey"
	"github.com/primedata-ai/aird/engine/playbook"
	"github.com/primedata-ai/aird/engine/scoring"
	"github.com/primedata-ai/aird/engine/stage"
	"github.com/primedata-ai/aird/engine/tracker"
	"github.com/primedata-ai/aird/engine/vectorstore"
)

// RunRequest is the message the external orchestrator publishes to
// trigger one pipeline run.
type RunRequest struct {
	ProductID string `json:"product_id"`
	DAGID     string `json:"dag_id,omitempty"`
}

// RunRequestSubject is the NATS subject cmd/aird serve consumes run
// requests from.
const RunRequestSubject = "aird.run.request"

// VectorStore is the vector-database surface the runner needs: the
// indexing slice plus alias management for promotion.
type VectorStore interface {
	stage.VectorIndex
	ScrollPoints(ctx context.Context, name string, limit int, offset uint64, filter *vectorstore.Filter, withVector bool) (vectorstore.ScrollPage, error)
	SetProdAlias(ctx context.Context, workspaceID, productID, productName string, version int) error
	GetProdAliasCollection(ctx context.Context, workspaceID, productName string) (string, error)
}

// ArtifactRegistrar catalogs stage outputs with lineage. A nil registrar
// disables registration (local development without Neo4j).
type ArtifactRegistrar interface {
	RegisterArtifact(ctx context.Context, a domain.PipelineArtifact) (domain.PipelineArtifact, error)
}

// Config carries the runner's policy and feature flags.
type Config struct {
	Bucket              string
	Thresholds          domain.PolicyThresholds
	ScoreThreshold      float64
	EnableDeduplication bool
	EnableValidation    bool
	EnablePDFReports    bool
}

// Runner executes pipeline runs. All collaborators are constructor
// injected; there is no package-level state.
type Runner struct {
	logger    *slog.Logger
	store     objectstore.Store
	catalog   *catalog.Catalog
	registrar ArtifactRegistrar
	vectors   VectorStore
	models    *embedding.Registry
	playbooks *playbook.Router
	publisher tracker.Publisher
	cfg       Config
	tracer    trace.Tracer
}

// NewRunner wires a Runner. registrar and publisher may be nil.
func NewRunner(logger *slog.Logger, store objectstore.Store, cat *catalog.Catalog, registrar ArtifactRegistrar, vectors VectorStore, models *embedding.Registry, playbooks *playbook.Router, publisher tracker.Publisher, cfg Config) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = 50
	}
	return &Runner{
		logger:    logger,
		store:     store,
		catalog:   cat,
		registrar: registrar,
		vectors:   vectors,
		models:    models,
		playbooks: playbooks,
		publisher: publisher,
		cfg:       cfg,
		tracer:    otel.Tracer("github.com/primedata-ai/aird/engine/pipeline"),
	}
}

// Run executes the full stage pipeline for productID's current version
// and returns the finished run row.
func (r *Runner) Run(ctx context.Context, productID, dagID string) (domain.PipelineRun, error) {
	product, err := r.catalog.GetProduct(ctx, productID)
	if err != nil {
		return domain.PipelineRun{}, fmt.Errorf("pipeline: load product: %w", err)
	}

	run := domain.PipelineRun{
		ID:          uuid.NewString(),
		WorkspaceID: product.WorkspaceID,
		ProductID:   product.ID,
		Version:     product.CurrentVersion,
		Status:      domain.RunQueued,
		StartedAt:   time.Now().UTC(),
		DAGID:       dagID,
		Metrics:     map[string]any{},
	}
	if err := r.catalog.CreateRun(ctx, run); err != nil {
		return domain.PipelineRun{}, fmt.Errorf("pipeline: create run: %w", err)
	}
	if err := r.catalog.SetRunStatus(ctx, run.ID, domain.RunRunning); err != nil {
		return domain.PipelineRun{}, err
	}
	trk := tracker.New(run.ID, r.catalog, r.publisher, r.logger)

	status := r.executeStages(ctx, trk, run.ID, product)
	if ctx.Err() != nil {
		// Partially-upserted points stay behind: ids are deterministic,
		// so a rerun overwrites them and stale ones are unreachable.
		if err := r.catalog.SetRunCancelled(context.WithoutCancel(ctx), run.ID, ctx.Err().Error()); err != nil {
			return domain.PipelineRun{}, err
		}
		return r.catalog.GetRun(context.WithoutCancel(ctx), run.ID)
	}
	if err := trk.Finish(ctx, status); err != nil {
		return domain.PipelineRun{}, err
	}
	return r.catalog.GetRun(ctx, run.ID)
}

// executeStages walks the ordered stage list and maps stage outcomes to
// the run's terminal status.
func (r *Runner) executeStages(ctx context.Context, trk *tracker.Tracker, runID string, product domain.Product) domain.RunStatus {
	scope := pathkey.Scope{WorkspaceID: product.WorkspaceID, ProductID: product.ID, Version: product.CurrentVersion}
	storage := stage.NewStorage(r.store, r.cfg.Bucket, scope, nil)

	pb, err := r.playbooks.Resolve(product.PlaybookID)
	if err != nil {
		r.logger.Error("pipeline: resolve playbook", "playbook", product.PlaybookID, "err", err)
		return domain.RunFailed
	}
	if r.cfg.EnableDeduplication {
		product.Chunking.PreprocessFlags.Deduplication = true
	}

	// Preprocess.
	pre := r.execute(ctx, trk, runID, stage.NewPreprocess(storage, r.catalog, r.playbooks, product))
	if pre.Status == stage.StatusFailed {
		return domain.RunFailed
	}
	files := stringSlice(pre.Metrics, "processed_file_list")
	r.transitionRawFiles(ctx, product, files, stringSlice(pre.Metrics, "failed_files"))
	boundaryRate, hasBoundary := floatValue(pre.Metrics, "mid_sentence_boundary_rate")
	if !hasBoundary {
		boundaryRate = -1
	}
	r.registerStageArtifacts(ctx, runID, product, stage.NamePreprocess, processedArtifacts(scope, files), nil)

	// Score.
	score := r.execute(ctx, trk, runID, stage.NewScore(storage, r.playbooks, product, files, scoring.DefaultWeights()))
	if score.Status == stage.StatusFailed {
		return domain.RunFailed
	}
	metricsRefs := r.registerStageArtifacts(ctx, runID, product, stage.NameScore, score.Artifacts, nil)

	// Fingerprint.
	fp := r.execute(ctx, trk, runID, stage.NewFingerprint(storage, r.catalog, product, boundaryRate))
	if fp.Status == stage.StatusFailed {
		return domain.RunFailed
	}
	fpRefs := r.registerStageArtifacts(ctx, runID, product, stage.NameFingerprint, fp.Artifacts, metricsRefs)

	// Policy.
	pol := r.execute(ctx, trk, runID, stage.NewPolicy(storage, r.catalog, product, r.cfg.Thresholds))
	if pol.Status == stage.StatusFailed {
		return domain.RunFailed
	}
	polRefs := r.registerStageArtifacts(ctx, runID, product, stage.NamePolicy, pol.Artifacts, fpRefs)
	policyStatus, _ := pol.Metrics["status"].(string)

	// Validation and reporting are side branches: a failure there fails
	// the run, but they do not gate indexing inputs.
	if r.cfg.EnableValidation {
		val := r.execute(ctx, trk, runID, stage.NewValidation(storage, product, r.cfg.ScoreThreshold))
		if val.Status == stage.StatusFailed {
			return domain.RunFailed
		}
		r.registerStageArtifacts(ctx, runID, product, stage.NameValidation, val.Artifacts, metricsRefs)
	}
	if r.cfg.EnablePDFReports {
		rep := r.execute(ctx, trk, runID, stage.NewReporting(storage, product))
		if rep.Status == stage.StatusFailed {
			return domain.RunFailed
		}
		r.registerStageArtifacts(ctx, runID, product, stage.NameReporting, rep.Artifacts, append(fpRefs, polRefs...))
	}

	// Indexing.
	modelName := r.resolveEmbeddingModel(ctx, product)
	generator := embedding.NewGenerator(r.models, product.WorkspaceID, modelName)
	idx := r.execute(ctx, trk, runID, stage.NewIndexing(storage, r.vectors, generator, product, files, pb.RAGEvaluation.RetrievalSettings, r.logger))
	if idx.Status == stage.StatusFailed {
		return domain.RunFailed
	}
	if idx.Status == stage.StatusSucceeded {
		r.registerCollectionArtifact(ctx, runID, product, idx, metricsRefs)
		r.mergeEmbeddingMetrics(ctx, storage, product, idx.Metrics)
	}

	switch domain.PolicyStatus(policyStatus) {
	case domain.PolicyFailed:
		return domain.RunFailedPolicy
	case domain.PolicyWarnings:
		return domain.RunReadyWithWarnings
	default:
		return domain.RunSucceeded
	}
}

// execute runs one stage under a span and records the result.
func (r *Runner) execute(ctx context.Context, trk *tracker.Tracker, runID string, st stage.Stage) stage.Result {
	ctx, span := r.tracer.Start(ctx, "stage/"+string(st.Name()))
	defer span.End()

	res := st.Execute(ctx)
	if err := trk.Record(ctx, res); err != nil {
		r.logger.Error("pipeline: record stage result", "stage", st.Name(), "err", err)
	}
	r.logger.Info("pipeline: stage finished",
		"run", runID, "stage", st.Name(), "status", res.Status, "error", res.Error)
	return res
}

// transitionRawFiles applies the preprocess outcome to the raw-file state
// machine: processed stems advance, failed stems fail.
func (r *Runner) transitionRawFiles(ctx context.Context, product domain.Product, processed, failed []string) {
	for _, stem := range processed {
		if err := r.catalog.SetRawFileStatusByStem(ctx, product.ID, product.CurrentVersion, stem, domain.RawFileProcessed); err != nil {
			r.logger.Warn("pipeline: mark raw file processed", "stem", stem, "err", err)
		}
	}
	for _, stem := range failed {
		if err := r.catalog.SetRawFileStatusByStem(ctx, product.ID, product.CurrentVersion, stem, domain.RawFileFailed); err != nil {
			r.logger.Warn("pipeline: mark raw file failed", "stem", stem, "err", err)
		}
	}
}

// resolveEmbeddingModel resolves the effective model: a prior run for
// this version wins, else the collection's stored dimension infers one,
// else the product's embedding config.
func (r *Runner) resolveEmbeddingModel(ctx context.Context, product domain.Product) string {
	if runs, err := r.catalog.ListRuns(ctx, product.ID, product.CurrentVersion); err == nil {
		for i := len(runs) - 1; i >= 0; i-- {
			if m := priorRunModel(runs[i].Metrics); m != "" {
				return m
			}
		}
	}
	collection := vectorstore.CollectionName(product.WorkspaceID, product.Name, product.CurrentVersion)
	if info, err := r.vectors.GetCollectionInfo(ctx, collection); err == nil && info.VectorSize > 0 {
		if int(info.VectorSize) != product.Embedding.Dimension {
			if m, ok := r.models.ModelForDimension(int(info.VectorSize)); ok {
				r.logger.Warn("pipeline: collection dimension differs from product config; reusing collection's model",
					"collection", collection, "collection_dim", info.VectorSize, "config_dim", product.Embedding.Dimension)
				return m
			}
		}
	}
	return product.Embedding.ModelName
}

func priorRunModel(metrics map[string]any) string {
	stages, _ := metrics["aird_stages"].(map[string]any)
	idx, _ := stages["indexing"].(map[string]any)
	m, _ := idx["embedding_model"].(string)
	return m
}

// mergeEmbeddingMetrics layers the indexing stage's vector dimensions
// onto the persisted fingerprint.
func (r *Runner) mergeEmbeddingMetrics(ctx context.Context, storage *stage.Storage, product domain.Product, m map[string]any) {
	fp, err := stage.LoadFingerprint(ctx, storage)
	if err != nil {
		r.logger.Warn("pipeline: merge embedding metrics: no fingerprint", "err", err)
		return
	}
	dim, _ := floatValue(m, "Embedding_Dimension_Consistency")
	success, _ := floatValue(m, "Embedding_Success_Rate")
	vqs, _ := floatValue(m, "Vector_Quality_Score")
	health, _ := floatValue(m, "Embedding_Model_Health")
	readiness, _ := floatValue(m, "Semantic_Search_Readiness")
	recall, _ := floatValue(m, "Retrieval_Recall_At_K")
	mapK, _ := floatValue(m, "Average_Precision_At_K")
	fp = fingerprint.MergeEmbeddingMetrics(fp, dim, success, vqs, health, readiness, recall, mapK)

	data, err := json.Marshal(fp)
	if err == nil {
		if _, err := storage.PutArtifact(ctx, stage.FingerprintArtifactName, data, "application/json"); err != nil {
			r.logger.Warn("pipeline: rewrite fingerprint artifact", "err", err)
		}
	}
	if err := r.catalog.SetFingerprint(ctx, product.ID, fp); err != nil {
		r.logger.Warn("pipeline: persist merged fingerprint", "err", err)
	}
}

// Promote points the production alias at version's collection and records
// the promotion on the product row. The target collection must exist and
// hold at least one point.
func (r *Runner) Promote(ctx context.Context, productID string, version int) error {
	product, err := r.catalog.GetProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("pipeline: load product: %w", err)
	}
	collection := vectorstore.CollectionName(product.WorkspaceID, product.Name, version)
	info, err := r.vectors.GetCollectionInfo(ctx, collection)
	if err != nil {
		return fmt.Errorf("pipeline: promote: collection %s missing: %w", collection, err)
	}
	if info.PointsCount == 0 {
		return fmt.Errorf("pipeline: promote: collection %s is empty: %w", collection, domain.ErrConfig)
	}
	if err := r.vectors.SetProdAlias(ctx, product.WorkspaceID, product.ID, product.Name, version); err != nil {
		return fmt.Errorf("pipeline: promote: set alias: %w", err)
	}
	if err := r.catalog.Promote(ctx, productID, version); err != nil {
		return fmt.Errorf("pipeline: promote: persist: %w", err)
	}
	r.logger.Info("pipeline: promoted", "product", productID, "version", version, "collection", collection)
	return nil
}

// CheckQueryDimension guards a production query: in strict mode a
// mismatch between the product's embedding config and the collection's
// stored dimension is a conflict and no embedding is computed; in compat
// mode the collection's dimension wins with a warning.
func (r *Runner) CheckQueryDimension(ctx context.Context, product domain.Product, collection string, strict bool) (int, error) {
	info, err := r.vectors.GetCollectionInfo(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("pipeline: collection %s: %w", collection, err)
	}
	stored := int(info.VectorSize)
	if stored > 0 && stored != product.Embedding.Dimension {
		if strict {
			return 0, domain.NewConflictError(product.Embedding.Dimension, stored)
		}
		r.logger.Warn("pipeline: query proceeding with collection dimension",
			"collection", collection, "collection_dim", stored, "config_dim", product.Embedding.Dimension)
	}
	if stored > 0 {
		return stored, nil
	}
	return product.Embedding.Dimension, nil
}

// registerStageArtifacts catalogs each named artifact a stage reported,
// returning refs downstream stages link as inputs.
func (r *Runner) registerStageArtifacts(ctx context.Context, runID string, product domain.Product, name stage.Name, artifacts map[string]string, inputs []domain.ArtifactRef) []domain.ArtifactRef {
	if r.registrar == nil || len(artifacts) == 0 {
		return nil
	}
	var refs []domain.ArtifactRef
	for artName, key := range artifacts {
		size, checksum := r.objectDigest(ctx, key)
		a := domain.PipelineArtifact{
			ID:             uuid.NewString(),
			RunID:          runID,
			WorkspaceID:    product.WorkspaceID,
			ProductID:      product.ID,
			Version:        product.CurrentVersion,
			StageName:      string(name),
			ArtifactType:   artifactTypeFor(artName),
			ArtifactName:   artName,
			Bucket:         r.cfg.Bucket,
			Key:            key,
			Size:           size,
			Checksum:       checksum,
			InputArtifacts: inputs,
			Status:         domain.ArtifactActive,
		}
		registered, err := r.registrar.RegisterArtifact(ctx, a)
		if err != nil {
			r.logger.Warn("pipeline: register artifact", "artifact", artName, "err", err)
			continue
		}
		refs = append(refs, domain.ArtifactRef{ArtifactID: registered.ID, Stage: string(name), Name: artName})
	}
	return refs
}

// registerCollectionArtifact records the vector collection itself as the
// indexing stage's output.
func (r *Runner) registerCollectionArtifact(ctx context.Context, runID string, product domain.Product, res stage.Result, inputs []domain.ArtifactRef) {
	if r.registrar == nil {
		return
	}
	collection, _ := res.Metrics["collection_name"].(string)
	if collection == "" {
		return
	}
	a := domain.PipelineArtifact{
		ID:             uuid.NewString(),
		RunID:          runID,
		WorkspaceID:    product.WorkspaceID,
		ProductID:      product.ID,
		Version:        product.CurrentVersion,
		StageName:      string(stage.NameIndexing),
		ArtifactType:   domain.ArtifactVector,
		ArtifactName:   collection,
		Key:            collection,
		InputArtifacts: inputs,
		Status:         domain.ArtifactActive,
	}
	if _, err := r.registrar.RegisterArtifact(ctx, a); err != nil {
		r.logger.Warn("pipeline: register collection artifact", "collection", collection, "err", err)
	}
}

func (r *Runner) objectDigest(ctx context.Context, key string) (int64, string) {
	data, err := r.store.GetBytes(ctx, r.cfg.Bucket, key)
	if err != nil {
		return 0, ""
	}
	sum := md5.Sum(data)
	return int64(len(data)), hex.EncodeToString(sum[:])
}

func processedArtifacts(scope pathkey.Scope, files []string) map[string]string {
	out := map[string]string{}
	for _, stem := range files {
		out[stem+".jsonl"] = scope.ProcessedJSONLKey(stem)
	}
	return out
}
