package registry

import (
	"testing"
	"time"

	"github.com/primedata-ai/aird/engine/domain"
)

func TestArtifactToMapAndBack(t *testing.T) {
	a := domain.PipelineArtifact{
		ID:           "a1",
		RunID:        "run1",
		WorkspaceID:  "w1",
		ProductID:    "p1",
		Version:      3,
		StageName:    "scoring",
		ArtifactType: domain.ArtifactJSON,
		ArtifactName: "metrics.json",
		Bucket:       "aird",
		Key:          "ws/w1/prod/p1/v/3/clean/metrics.json",
		Size:         1024,
		Status:       domain.ArtifactActive,
		Retention:    domain.RetentionKeepForever,
		InputArtifacts: []domain.ArtifactRef{
			{ArtifactID: "a0", Stage: "preprocess", Name: "chunks.jsonl"},
		},
		Metadata: map[string]any{"chunk_count": float64(42)},
	}

	m := artifactToMap(a)
	back, err := mapToArtifact(m)
	if err != nil {
		t.Fatalf("mapToArtifact: %v", err)
	}

	if back.ID != a.ID || back.StageName != a.StageName || back.Version != a.Version {
		t.Fatalf("round-trip mismatch: %+v", back)
	}
	if len(back.InputArtifacts) != 1 || back.InputArtifacts[0].ArtifactID != "a0" {
		t.Fatalf("expected input_artifacts round-trip, got %+v", back.InputArtifacts)
	}
	if back.Metadata["chunk_count"] != float64(42) {
		t.Fatalf("expected metadata round-trip, got %+v", back.Metadata)
	}
}

func TestArtifactToMapGeneratesID(t *testing.T) {
	a := domain.PipelineArtifact{ArtifactName: "x"}
	m := artifactToMap(a)
	if str(m["id"]) == "" {
		t.Fatal("expected generated id")
	}
}

func TestDefaultRetention(t *testing.T) {
	if got := defaultRetention(domain.ArtifactPDF); got != domain.RetentionKeepForever {
		t.Fatalf("pdf: got %s", got)
	}
	if got := defaultRetention(domain.ArtifactJSONL); got != domain.Retention90d {
		t.Fatalf("jsonl: got %s", got)
	}
}

func TestRetentionWindow(t *testing.T) {
	if _, bounded := retentionWindow(domain.RetentionKeepForever); bounded {
		t.Fatal("keep_forever must never expire by clock")
	}
	if _, bounded := retentionWindow(domain.RetentionDeleteOnPromote); bounded {
		t.Fatal("delete_on_promote must never expire by clock")
	}
	w, bounded := retentionWindow(domain.RetentionOnFailureKeep90)
	if !bounded || w != 90*24*time.Hour {
		t.Fatalf("on_failure_keep_90 window = %v (bounded=%v)", w, bounded)
	}
	if w, _ := retentionWindow(domain.Retention365d); w <= 0 {
		t.Fatalf("365d window = %v", w)
	}
}
