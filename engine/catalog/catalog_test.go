package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/primedata-ai/aird/engine/domain"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestWorkspaceCRUD(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	if err := c.CreateWorkspace(ctx, domain.Workspace{ID: "w1", Name: "Acme"}); err != nil {
		t.Fatalf("CreateWorkspace: %v", err)
	}
	got, err := c.GetWorkspace(ctx, "w1")
	if err != nil {
		t.Fatalf("GetWorkspace: %v", err)
	}
	if got.Name != "Acme" {
		t.Fatalf("got %+v", got)
	}

	list, err := c.ListWorkspaces(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListWorkspaces: %v %d", err, len(list))
	}
}

func TestProductVersionBump(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	_ = c.CreateWorkspace(ctx, domain.Workspace{ID: "w1", Name: "Acme"})
	p := domain.Product{ID: "p1", WorkspaceID: "w1", Name: "manuals", PlaybookID: domain.PlaybookTech}
	if err := c.CreateProduct(ctx, p); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	next, err := c.BumpVersion(ctx, "p1")
	if err != nil {
		t.Fatalf("BumpVersion: %v", err)
	}
	if next != 1 {
		t.Fatalf("expected version 1, got %d", next)
	}

	got, err := c.GetProduct(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if got.CurrentVersion != 1 {
		t.Fatalf("expected current_version=1, got %d", got.CurrentVersion)
	}

	if err := c.Promote(ctx, "p1", 1); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	got, _ = c.GetProduct(ctx, "p1")
	if got.PromotedVersion != 1 {
		t.Fatalf("expected promoted_version=1, got %d", got.PromotedVersion)
	}
}

func TestSetPolicyEvaluation(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()
	_ = c.CreateWorkspace(ctx, domain.Workspace{ID: "w1", Name: "Acme"})
	_ = c.CreateProduct(ctx, domain.Product{ID: "p1", WorkspaceID: "w1", Name: "manuals"})

	fp := domain.Fingerprint{AITrustScore: 82, Secure: 95}
	result := domain.PolicyEvaluationResult{Status: domain.PolicyPassed, PolicyPassed: true, Violations: []string{}}
	if err := c.SetPolicyEvaluation(ctx, "p1", fp, result); err != nil {
		t.Fatalf("SetPolicyEvaluation: %v", err)
	}

	got, err := c.GetProduct(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if got.ReadinessFP == nil || got.ReadinessFP.AITrustScore != 82 {
		t.Fatalf("expected readiness fingerprint round-trip, got %+v", got.ReadinessFP)
	}
	if got.PolicyStatus != domain.PolicyPassed {
		t.Fatalf("expected policy_status=passed, got %s", got.PolicyStatus)
	}
}

func TestRawFileLifecycle(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	id, err := c.CreateRawFile(ctx, domain.RawFile{
		Filename: "manual.pdf", FileStem: "manual", Bucket: "aird", Key: "ws/w1/prod/p1/v/1/raw/manual.pdf",
		Status: domain.RawFileIngested, ProductID: "p1", Version: 1,
	})
	if err != nil {
		t.Fatalf("CreateRawFile: %v", err)
	}

	if err := c.SetRawFileStatus(ctx, id, domain.RawFileProcessed); err != nil {
		t.Fatalf("SetRawFileStatus: %v", err)
	}

	rf, err := c.GetRawFileByStem(ctx, "p1", 1, "manual")
	if err != nil {
		t.Fatalf("GetRawFileByStem: %v", err)
	}
	if rf.Status != domain.RawFileProcessed {
		t.Fatalf("expected processed, got %s", rf.Status)
	}

	list, err := c.ListRawFiles(ctx, "p1", 1)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListRawFiles: %v %d", err, len(list))
	}
}

func TestRunMetricsAndStages(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	run := domain.PipelineRun{
		ID: "run1", WorkspaceID: "w1", ProductID: "p1", Version: 1,
		Status: domain.RunRunning, StartedAt: time.Now(), Metrics: map[string]any{},
	}
	if err := c.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	if err := c.MergeMetrics(ctx, "run1", "scoring", map[string]any{"chunk_count": 42.0}); err != nil {
		t.Fatalf("MergeMetrics: %v", err)
	}
	if err := c.AppendCompletedStage(ctx, "run1", "scoring"); err != nil {
		t.Fatalf("AppendCompletedStage: %v", err)
	}
	if err := c.AppendCompletedStage(ctx, "run1", "scoring"); err != nil {
		t.Fatalf("AppendCompletedStage idempotent: %v", err)
	}

	got, err := c.GetRun(ctx, "run1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if len(got.AIRDStagesCompleted) != 1 || got.AIRDStagesCompleted[0] != "scoring" {
		t.Fatalf("expected one completed stage, got %v", got.AIRDStagesCompleted)
	}
	stages, ok := got.Metrics["aird_stages"].(map[string]any)
	if !ok || stages["scoring"] == nil {
		t.Fatalf("expected aird_stages.scoring, got %+v", got.Metrics)
	}

	if err := c.RemoveCompletedStage(ctx, "run1", "scoring"); err != nil {
		t.Fatalf("RemoveCompletedStage: %v", err)
	}
	got, _ = c.GetRun(ctx, "run1")
	if len(got.AIRDStagesCompleted) != 0 {
		t.Fatalf("expected no completed stages after removal, got %v", got.AIRDStagesCompleted)
	}

	if err := c.SetRunStatus(ctx, "run1", domain.RunSucceeded); err != nil {
		t.Fatalf("SetRunStatus: %v", err)
	}
	got, _ = c.GetRun(ctx, "run1")
	if got.FinishedAt.IsZero() {
		t.Fatal("expected finished_at to be set on terminal status")
	}
}

func TestACLCRUD(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	if err := c.UpsertACL(ctx, domain.ACL{UserID: "u1", ProductID: "p1", AccessType: domain.ACLIndex, IndexScope: "p1,p2"}); err != nil {
		t.Fatalf("UpsertACL: %v", err)
	}
	got, err := c.GetACL(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("GetACL: %v", err)
	}
	if got.IndexScope != "p1,p2" {
		t.Fatalf("got %+v", got)
	}

	if err := c.UpsertACL(ctx, domain.ACL{UserID: "u1", ProductID: "p1", AccessType: domain.ACLFull}); err != nil {
		t.Fatalf("UpsertACL replace: %v", err)
	}
	got, _ = c.GetACL(ctx, "u1", "p1")
	if got.AccessType != domain.ACLFull {
		t.Fatalf("expected upsert to replace access_type, got %s", got.AccessType)
	}

	if err := c.DeleteACL(ctx, "u1", "p1"); err != nil {
		t.Fatalf("DeleteACL: %v", err)
	}
	if _, err := c.GetACL(ctx, "u1", "p1"); err == nil {
		t.Fatal("expected error after delete")
	}
}

func TestDeleteProductCascades(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	if err := c.CreateProduct(ctx, domain.Product{ID: "p1", WorkspaceID: "w1", Name: "Guide", CurrentVersion: 1}); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if _, err := c.CreateRawFile(ctx, domain.RawFile{ProductID: "p1", Version: 1, Filename: "a.txt", FileStem: "a", Bucket: "b", Key: "k", Status: domain.RawFileIngested}); err != nil {
		t.Fatalf("CreateRawFile: %v", err)
	}
	if err := c.CreateRun(ctx, domain.PipelineRun{ID: "r1", WorkspaceID: "w1", ProductID: "p1", Version: 1, Status: domain.RunQueued, StartedAt: time.Now()}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := c.UpsertACL(ctx, domain.ACL{UserID: "u1", ProductID: "p1", AccessType: domain.ACLFull}); err != nil {
		t.Fatalf("UpsertACL: %v", err)
	}

	if err := c.DeleteProduct(ctx, "p1"); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}
	if _, err := c.GetProduct(ctx, "p1"); err == nil {
		t.Fatal("product should be gone")
	}
	if files, _ := c.ListRawFiles(ctx, "p1", 1); len(files) != 0 {
		t.Fatalf("raw files remain: %d", len(files))
	}
	if runs, _ := c.ListRuns(ctx, "p1", 1); len(runs) != 0 {
		t.Fatalf("runs remain: %d", len(runs))
	}
	if _, err := c.GetACL(ctx, "u1", "p1"); err == nil {
		t.Fatal("ACL should be gone")
	}
}
