package registry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/primedata-ai/aird/engine/domain"
)

// artifactToMap flattens a PipelineArtifact into Neo4j node properties.
// input_artifacts and artifact_metadata are stored as JSON strings since
// Neo4j properties can't hold nested maps.
func artifactToMap(a domain.PipelineArtifact) map[string]any {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	m := map[string]any{
		"id":            a.ID,
		"run_id":        a.RunID,
		"workspace_id":  a.WorkspaceID,
		"product_id":    a.ProductID,
		"version":       int64(a.Version),
		"stage_name":    a.StageName,
		"artifact_type": string(a.ArtifactType),
		"artifact_name": a.ArtifactName,
		"bucket":        a.Bucket,
		"key":           a.Key,
		"size":          a.Size,
		"checksum":      a.Checksum,
		"status":        string(a.Status),
		"retention":     string(a.Retention),
	}
	if refs, err := json.Marshal(a.InputArtifacts); err == nil {
		m["input_artifacts"] = string(refs)
	}
	if meta, err := json.Marshal(a.Metadata); err == nil {
		m["artifact_metadata"] = string(meta)
	}
	if !a.DeletedAt.IsZero() {
		m["deleted_at"] = a.DeletedAt.Format(time.RFC3339)
	}
	return m
}

func artifactFromRecord(rec *neo4j.Record) (domain.PipelineArtifact, error) {
	v, ok := rec.Get("n")
	if !ok {
		return domain.PipelineArtifact{}, fmt.Errorf("registry: record missing node")
	}
	node, ok := v.(neo4j.Node)
	if !ok {
		return domain.PipelineArtifact{}, fmt.Errorf("registry: record field is not a node")
	}
	return mapToArtifact(node.Props)
}

func mapToArtifact(props map[string]any) (domain.PipelineArtifact, error) {
	a := domain.PipelineArtifact{
		ID:           str(props["id"]),
		RunID:        str(props["run_id"]),
		WorkspaceID:  str(props["workspace_id"]),
		ProductID:    str(props["product_id"]),
		Version:      int(int64Of(props["version"])),
		StageName:    str(props["stage_name"]),
		ArtifactType: domain.ArtifactType(str(props["artifact_type"])),
		ArtifactName: str(props["artifact_name"]),
		Bucket:       str(props["bucket"]),
		Key:          str(props["key"]),
		Size:         int64Of(props["size"]),
		Checksum:     str(props["checksum"]),
		Status:       domain.ArtifactStatus(str(props["status"])),
		Retention:    domain.Retention(str(props["retention"])),
	}
	if refsJSON := str(props["input_artifacts"]); refsJSON != "" {
		_ = json.Unmarshal([]byte(refsJSON), &a.InputArtifacts)
	}
	if metaJSON := str(props["artifact_metadata"]); metaJSON != "" {
		_ = json.Unmarshal([]byte(metaJSON), &a.Metadata)
	}
	if deletedAt := str(props["deleted_at"]); deletedAt != "" {
		if t, err := time.Parse(time.RFC3339, deletedAt); err == nil {
			a.DeletedAt = t
		}
	}
	return a, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func int64Of(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
