package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"testing"

	"github.com/primedata-ai/aird/engine/catalog"
	"github.com/primedata-ai/aird/engine/domain"
	"github.com/primedata-ai/aird/engine/embedding"
	"github.com/primedata-ai/aird/engine/objectstore"
	"github.com/primedata-ai/aird/engine/pathkey"
	"github.com/primedata-ai/aird/engine/playbook"
	"github.com/primedata-ai/aird/engine/stage"
	"github.com/primedata-ai/aird/engine/vectorstore"
)

// fakeVectorStore is an in-memory VectorStore with cosine search, scroll
// pagination, and alias management.
type fakeVectorStore struct {
	collections map[string]int
	points      map[string][]domain.VectorPoint
	aliases     map[string]string
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{
		collections: map[string]int{},
		points:      map[string][]domain.VectorPoint{},
		aliases:     map[string]string{},
	}
}

func (f *fakeVectorStore) EnsureCollection(_ context.Context, name string, size int) error {
	if _, ok := f.collections[name]; !ok {
		f.collections[name] = size
	}
	return nil
}

func (f *fakeVectorStore) UpsertPoints(_ context.Context, name string, pts []domain.VectorPoint) error {
	if _, ok := f.collections[name]; !ok {
		return fmt.Errorf("collection %s missing", name)
	}
	for _, p := range pts {
		replaced := false
		for i, existing := range f.points[name] {
			if existing.ID == p.ID {
				f.points[name][i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			f.points[name] = append(f.points[name], p)
		}
	}
	return nil
}

func (f *fakeVectorStore) SearchPoints(_ context.Context, name string, query []float32, limit int, _ *float32, filter *vectorstore.Filter) ([]vectorstore.SearchHit, error) {
	pts, ok := f.points[name]
	if !ok {
		if target, aliased := f.aliases[name]; aliased {
			pts = f.points[target]
		} else {
			return nil, fmt.Errorf("collection %s missing", name)
		}
	}
	var hits []vectorstore.SearchHit
	for _, p := range pts {
		if !payloadMatches(p.Payload, filter) {
			continue
		}
		hits = append(hits, vectorstore.SearchHit{ID: p.ID, Score: cosine(query, p.Vector), Payload: p.Payload})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (f *fakeVectorStore) ScrollPoints(_ context.Context, name string, limit int, offset uint64, filter *vectorstore.Filter, withVector bool) (vectorstore.ScrollPage, error) {
	pts, ok := f.points[name]
	if !ok {
		if target, aliased := f.aliases[name]; aliased {
			pts = f.points[target]
		} else {
			return vectorstore.ScrollPage{}, fmt.Errorf("collection %s missing", name)
		}
	}
	var filtered []vectorstore.ScrolledPoint
	for _, p := range pts {
		if payloadMatches(p.Payload, filter) {
			sp := vectorstore.ScrolledPoint{ID: p.ID, Payload: p.Payload}
			if withVector {
				sp.Vector = p.Vector
			}
			filtered = append(filtered, sp)
		}
	}
	start := int(offset)
	if start >= len(filtered) {
		return vectorstore.ScrollPage{}, nil
	}
	end := start + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return vectorstore.ScrollPage{
		Points:     filtered[start:end],
		NextOffset: uint64(end),
		HasMore:    end < len(filtered),
	}, nil
}

func (f *fakeVectorStore) GetCollectionInfo(_ context.Context, name string) (vectorstore.CollectionInfo, error) {
	if target, aliased := f.aliases[name]; aliased {
		name = target
	}
	size, ok := f.collections[name]
	if !ok {
		return vectorstore.CollectionInfo{}, fmt.Errorf("collection %s missing", name)
	}
	return vectorstore.CollectionInfo{
		PointsCount: uint64(len(f.points[name])),
		VectorSize:  uint64(size),
		Distance:    "Cosine",
	}, nil
}

func (f *fakeVectorStore) SetProdAlias(_ context.Context, workspaceID, _, productName string, version int) error {
	target := vectorstore.CollectionName(workspaceID, productName, version)
	if _, ok := f.collections[target]; !ok {
		return fmt.Errorf("collection %s missing", target)
	}
	f.aliases[vectorstore.ProdAliasName(workspaceID, productName)] = target
	return nil
}

func (f *fakeVectorStore) GetProdAliasCollection(_ context.Context, workspaceID, productName string) (string, error) {
	return f.aliases[vectorstore.ProdAliasName(workspaceID, productName)], nil
}

func payloadMatches(p domain.VectorPayload, f *vectorstore.Filter) bool {
	if f == nil {
		return true
	}
	for _, c := range f.Must {
		var val string
		switch c.Key {
		case "chunk_id":
			val = p.ChunkID
		case "product_id":
			val = p.ProductID
		case "document_id":
			val = p.DocumentID
		case "version":
			val = fmt.Sprintf("%d", p.Version)
		}
		if len(c.In) > 0 {
			found := false
			for _, want := range c.In {
				if val == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
			continue
		}
		if c.Value != "" && val != c.Value {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// fakeRegistrar collects artifact registrations in memory.
type fakeRegistrar struct {
	artifacts []domain.PipelineArtifact
}

func (f *fakeRegistrar) RegisterArtifact(_ context.Context, a domain.PipelineArtifact) (domain.PipelineArtifact, error) {
	f.artifacts = append(f.artifacts, a)
	return a, nil
}

type fixture struct {
	runner    *Runner
	catalog   *catalog.Catalog
	store     *objectstore.LocalStore
	vectors   *fakeVectorStore
	registrar *fakeRegistrar
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat, err := catalog.Open(":memory:")
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { _ = cat.Close() })

	store, err := objectstore.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	vectors := newFakeVectorStore()
	registrar := &fakeRegistrar{}
	runner := NewRunner(
		slog.New(slog.DiscardHandler),
		store,
		cat,
		registrar,
		vectors,
		// An empty model registry forces the deterministic hash fallback
		// (dimension 384), so no test ever reaches out to a live backend.
		embedding.NewRegistry(nil),
		playbook.NewRouter(""),
		nil,
		Config{
			Bucket:           "aird",
			Thresholds:       domain.DefaultPolicyThresholds(),
			ScoreThreshold:   50,
			EnableValidation: true,
			EnablePDFReports: true,
		},
	)
	return &fixture{runner: runner, catalog: cat, store: store, vectors: vectors, registrar: registrar}
}

const techDoc = `# Collector Setup

The collector agent ships metrics from every node to the regional gateway.
Install the package from the internal mirror and enable the systemd unit.
The agent negotiates a session token on startup and renews it hourly.

## Configuration

Configuration lives in /etc/collector/config.yaml and is reloaded on SIGHUP.
The flush interval defaults to ten seconds and may be raised for batch workloads.
Sample buffers are bounded at sixty four megabytes to protect small hosts.
Back pressure pauses ingestion instead of dropping samples on the floor.

## Operations

Operators should watch the export lag gauge and the dropped sample counter.
A sustained lag above thirty seconds usually means the gateway is saturated.
Scaling the gateway horizontally resolves saturation within a few minutes.
Retention defaults to ninety days and can be raised per workspace tier.
`

// seedProduct creates a workspace, product, and one ingested raw text
// file, returning the product.
func (fx *fixture) seedProduct(t *testing.T, text string) domain.Product {
	t.Helper()
	ctx := context.Background()
	if err := fx.catalog.CreateWorkspace(ctx, domain.Workspace{ID: "w1", Name: "Acme"}); err != nil {
		t.Fatal(err)
	}
	product := domain.Product{
		ID:             "p1",
		WorkspaceID:    "w1",
		Name:           "Field Guide",
		CurrentVersion: 1,
		PlaybookID:     domain.PlaybookTech,
		Embedding:      domain.EmbeddingConfig{ModelName: "local-minilm", Dimension: 384},
		Chunking:       domain.ChunkingConfig{Mode: domain.ChunkingModeAuto},
	}
	if err := fx.catalog.CreateProduct(ctx, product); err != nil {
		t.Fatal(err)
	}
	fx.seedRawFile(t, product, "guide", text)
	return product
}

func (fx *fixture) seedRawFile(t *testing.T, product domain.Product, stem, text string) {
	t.Helper()
	ctx := context.Background()
	scope := pathkey.Scope{WorkspaceID: product.WorkspaceID, ProductID: product.ID, Version: product.CurrentVersion}
	storage := stage.NewStorage(fx.store, "aird", scope, nil)
	if err := storage.PutRawText(ctx, stem, text); err != nil {
		t.Fatal(err)
	}
	if _, err := fx.catalog.CreateRawFile(ctx, domain.RawFile{
		ProductID:   product.ID,
		Version:     product.CurrentVersion,
		Filename:    stem + ".txt",
		FileStem:    stem,
		Bucket:      "aird",
		Key:         scope.RawTextKey(stem),
		ContentType: "text/plain",
		Status:      domain.RawFileIngested,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestRunHappyPathTechDoc(t *testing.T) {
	fx := newFixture(t)
	product := fx.seedProduct(t, techDoc)
	ctx := context.Background()

	run, err := fx.runner.Run(ctx, product.ID, "dag-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != domain.RunSucceeded {
		t.Fatalf("run status = %s, metrics = %+v", run.Status, run.Metrics)
	}
	for _, want := range []string{"preprocess", "score", "fingerprint", "policy", "validation", "reporting", "indexing"} {
		found := false
		for _, s := range run.AIRDStagesCompleted {
			if s == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("stage %s not completed: %v", want, run.AIRDStagesCompleted)
		}
	}

	// Collection exists at the embedding dimension with every chunk.
	collection := vectorstore.CollectionName("w1", "Field Guide", 1)
	info, err := fx.vectors.GetCollectionInfo(ctx, collection)
	if err != nil {
		t.Fatalf("GetCollectionInfo: %v", err)
	}
	if info.VectorSize != 384 {
		t.Fatalf("dimension = %d", info.VectorSize)
	}
	if info.PointsCount < 2 {
		t.Fatalf("points = %d, want >= 2", info.PointsCount)
	}

	// Fingerprint landed on the product row with a passing policy.
	got, err := fx.catalog.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ReadinessFP == nil || got.ReadinessFP.AITrustScore < 50 {
		t.Fatalf("fingerprint = %+v", got.ReadinessFP)
	}
	if got.PolicyStatus != domain.PolicyPassed {
		t.Fatalf("policy status = %s, violations = %v", got.PolicyStatus, got.PolicyViolations)
	}

	// Indexing-derived dimensions merged into the fingerprint.
	if got.ReadinessFP.EmbeddingSuccessRate != 100 {
		t.Fatalf("Embedding_Success_Rate = %f", got.ReadinessFP.EmbeddingSuccessRate)
	}

	// Raw file advanced through its state machine.
	rf, err := fx.catalog.GetRawFileByStem(ctx, product.ID, 1, "guide")
	if err != nil {
		t.Fatal(err)
	}
	if rf.Status != domain.RawFileProcessed {
		t.Fatalf("raw file status = %s", rf.Status)
	}

	// Artifacts registered with lineage.
	if len(fx.registrar.artifacts) == 0 {
		t.Fatal("no artifacts registered")
	}
	foundLineage := false
	for _, a := range fx.registrar.artifacts {
		if a.ArtifactName == stage.FingerprintArtifactName && len(a.InputArtifacts) > 0 {
			foundLineage = true
		}
	}
	if !foundLineage {
		t.Fatal("fingerprint artifact has no input lineage")
	}
}

func TestRunPolicyFailOnSecure(t *testing.T) {
	fx := newFixture(t)
	var b strings.Builder
	b.WriteString("# Customer Records\n\n")
	for i := 0; i < 200; i++ {
		b.WriteString("Customer SSN on file: 123-45-6789 verified for account review purposes.\n")
	}
	product := fx.seedProduct(t, b.String())
	ctx := context.Background()

	run, err := fx.runner.Run(ctx, product.ID, "dag-2")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != domain.RunFailedPolicy {
		t.Fatalf("run status = %s", run.Status)
	}

	got, err := fx.catalog.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ReadinessFP == nil || got.ReadinessFP.Secure >= 90 {
		t.Fatalf("Secure = %+v, want < 90", got.ReadinessFP)
	}
	foundSecurity := false
	for _, v := range got.PolicyViolations {
		if strings.HasPrefix(v, "security_not_full") {
			foundSecurity = true
		}
	}
	if !foundSecurity {
		t.Fatalf("violations = %v", got.PolicyViolations)
	}

	// Optimizer recommendation recorded on the run's policy slot.
	stages, _ := run.Metrics["aird_stages"].(map[string]any)
	polMetrics, _ := stages["policy"].(map[string]any)
	opt, _ := polMetrics["optimizer"].(map[string]any)
	tweaks, _ := opt["config_tweaks"].(map[string]any)
	if tweaks["redaction_strict"] != true {
		t.Fatalf("optimizer tweaks = %+v", opt)
	}
}

func TestRunWithoutRawFilesSkipsPipeline(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	if err := fx.catalog.CreateWorkspace(ctx, domain.Workspace{ID: "w1", Name: "Acme"}); err != nil {
		t.Fatal(err)
	}
	product := domain.Product{ID: "p1", WorkspaceID: "w1", Name: "Empty", CurrentVersion: 1, PlaybookID: domain.PlaybookTech}
	if err := fx.catalog.CreateProduct(ctx, product); err != nil {
		t.Fatal(err)
	}

	run, err := fx.runner.Run(ctx, product.ID, "dag-3")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// No input at all: every stage skips and the empty fingerprint fails
	// policy, so the run lands on failed_policy rather than succeeded.
	if run.Status != domain.RunFailedPolicy {
		t.Fatalf("run status = %s", run.Status)
	}
}

func TestPlaygroundQueryACLDocumentScope(t *testing.T) {
	fx := newFixture(t)
	product := fx.seedProduct(t, techDoc)
	ctx := context.Background()

	// Index three documents under distinct document ids.
	fx.seedRawFile(t, product, "doc_a", "# DocA\n\nAlpha content about collectors and gateways for testing retrieval.")
	fx.seedRawFile(t, product, "doc_b", "# DocB\n\nBeta content about retention tiers and workspace policy for testing.")
	if _, err := fx.runner.Run(ctx, product.ID, "dag-4"); err != nil {
		t.Fatal(err)
	}

	if err := fx.catalog.UpsertACL(ctx, domain.ACL{
		ID:         "acl-1",
		UserID:     "user-1",
		ProductID:  product.ID,
		AccessType: domain.ACLDocument,
		DocScope:   "doc_a,doc_b",
	}); err != nil {
		t.Fatal(err)
	}

	res, err := fx.runner.PlaygroundQuery(ctx, product.ID, "user-1", "collector gateway content", QueryOptions{TopK: 10})
	if err != nil {
		t.Fatalf("PlaygroundQuery: %v", err)
	}
	if !res.ACLApplied {
		t.Fatal("acl_applied = false")
	}
	if len(res.Hits) == 0 {
		t.Fatal("no hits")
	}
	for _, h := range res.Hits {
		if h.Payload.DocumentID != "doc_a" && h.Payload.DocumentID != "doc_b" {
			t.Fatalf("hit outside doc scope: %s", h.Payload.DocumentID)
		}
	}
}

func TestPlaygroundQueryEmptyACLReturnsNothing(t *testing.T) {
	fx := newFixture(t)
	product := fx.seedProduct(t, techDoc)
	ctx := context.Background()
	if _, err := fx.runner.Run(ctx, product.ID, "dag-5"); err != nil {
		t.Fatal(err)
	}

	res, err := fx.runner.PlaygroundQuery(ctx, product.ID, "nobody", "collector gateway", QueryOptions{TopK: 5})
	if err != nil {
		t.Fatalf("PlaygroundQuery: %v", err)
	}
	if len(res.Hits) != 0 {
		t.Fatalf("expected no hits without ACLs, got %d", len(res.Hits))
	}
}

func TestQueryDimensionConflictStrict(t *testing.T) {
	fx := newFixture(t)
	product := fx.seedProduct(t, techDoc)
	ctx := context.Background()

	collection := vectorstore.CollectionName("w1", "Field Guide", 1)
	if err := fx.vectors.EnsureCollection(ctx, collection, 1536); err != nil {
		t.Fatal(err)
	}

	_, err := fx.runner.CheckQueryDimension(ctx, product, collection, true)
	if err == nil {
		t.Fatal("expected conflict")
	}
	if !strings.Contains(err.Error(), "384") || !strings.Contains(err.Error(), "1536") {
		t.Fatalf("conflict must name both dimensions: %v", err)
	}

	// Compat mode proceeds with the collection's dimension.
	dim, err := fx.runner.CheckQueryDimension(ctx, product, collection, false)
	if err != nil {
		t.Fatalf("compat mode: %v", err)
	}
	if dim != 1536 {
		t.Fatalf("compat dim = %d", dim)
	}
}

func TestPromoteSwapsAlias(t *testing.T) {
	fx := newFixture(t)
	product := fx.seedProduct(t, techDoc)
	ctx := context.Background()

	// Index v1.
	if _, err := fx.runner.Run(ctx, product.ID, "dag-6"); err != nil {
		t.Fatal(err)
	}
	if err := fx.runner.Promote(ctx, product.ID, 1); err != nil {
		t.Fatalf("promote v1: %v", err)
	}

	// Bump to v2, ingest, index, promote.
	v2, err := fx.catalog.BumpVersion(ctx, product.ID)
	if err != nil {
		t.Fatal(err)
	}
	product.CurrentVersion = v2
	fx.seedRawFile(t, product, "guide2", techDoc+"\n## Appendix\n\nExtra appendix content for the second version of the guide.")
	if _, err := fx.runner.Run(ctx, product.ID, "dag-7"); err != nil {
		t.Fatal(err)
	}
	if err := fx.runner.Promote(ctx, product.ID, v2); err != nil {
		t.Fatalf("promote v2: %v", err)
	}

	alias, err := fx.vectors.GetProdAliasCollection(ctx, "w1", "Field Guide")
	if err != nil {
		t.Fatal(err)
	}
	want := vectorstore.CollectionName("w1", "Field Guide", v2)
	if alias != want {
		t.Fatalf("alias -> %s, want %s", alias, want)
	}

	got, err := fx.catalog.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.PromotedVersion != v2 {
		t.Fatalf("promoted_version = %d", got.PromotedVersion)
	}

	// Prod queries resolve through the alias to v2 content.
	if err := fx.catalog.UpsertACL(ctx, domain.ACL{
		ID: "acl-full", UserID: "admin", ProductID: product.ID, AccessType: domain.ACLFull,
	}); err != nil {
		t.Fatal(err)
	}
	res, err := fx.runner.PlaygroundQuery(ctx, product.ID, "admin", "appendix content second version", QueryOptions{UseProd: true, TopK: 20})
	if err != nil {
		t.Fatalf("prod query: %v", err)
	}
	if res.Collection != want {
		t.Fatalf("query collection = %s", res.Collection)
	}
	foundV2 := false
	for _, h := range res.Hits {
		if h.Payload.Version == v2 {
			foundV2 = true
		}
	}
	if !foundV2 {
		t.Fatal("prod query returned no v2 content")
	}
}

func TestPromoteEmptyCollectionRefused(t *testing.T) {
	fx := newFixture(t)
	product := fx.seedProduct(t, techDoc)
	ctx := context.Background()

	collection := vectorstore.CollectionName("w1", "Field Guide", 1)
	if err := fx.vectors.EnsureCollection(ctx, collection, 384); err != nil {
		t.Fatal(err)
	}
	if err := fx.runner.Promote(ctx, product.ID, 1); err == nil {
		t.Fatal("expected promotion of an empty collection to fail")
	}
}
