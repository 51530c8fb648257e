// Package registry is the artifact lineage graph: every
// PipelineArtifact is a node, and each declared input artifact becomes a
// DERIVED_FROM edge. Lineage queries are a graph traversal, so this is the
// one component backed by Neo4j rather than the relational catalog.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/primedata-ai/aird/engine/domain"
	"github.com/primedata-ai/aird/pkg/repo"
)

const artifactLabel = "Artifact"

// Registry wraps a generic Neo4j repository with the lineage-specific
// queries that a plain CRUD Repository can't express.
type Registry struct {
	driver neo4j.DriverWithContext
	repo   *repo.Neo4jRepo[domain.PipelineArtifact, string]
}

// New builds a Registry over driver.
func New(driver neo4j.DriverWithContext) *Registry {
	r := repo.NewNeo4jRepo[domain.PipelineArtifact, string](
		driver,
		artifactLabel,
		artifactToMap,
		artifactFromRecord,
	)
	return &Registry{driver: driver, repo: r}
}

// RegisterArtifact creates the artifact node and a DERIVED_FROM edge to
// each of its declared input artifacts. An unset retention defaults by
// artifact type alone: keep_forever for PDF and JSON artifacts, 90d for
// every other type. The run's outcome and promotion do not change it.
func (r *Registry) RegisterArtifact(ctx context.Context, a domain.PipelineArtifact) (domain.PipelineArtifact, error) {
	if a.Status == "" {
		a.Status = domain.ArtifactActive
	}
	if a.Retention == "" {
		a.Retention = defaultRetention(a.ArtifactType)
	}

	created, err := r.repo.Create(ctx, a)
	if err != nil {
		return domain.PipelineArtifact{}, fmt.Errorf("registry: create artifact %s: %w", a.ArtifactName, err)
	}

	for _, ref := range a.InputArtifacts {
		if err := r.linkDerivedFrom(ctx, created.ID, ref.ArtifactID); err != nil {
			return created, fmt.Errorf("registry: link %s -> %s: %w", created.ID, ref.ArtifactID, err)
		}
	}
	return created, nil
}

func defaultRetention(t domain.ArtifactType) domain.Retention {
	switch t {
	case domain.ArtifactPDF, domain.ArtifactJSON:
		return domain.RetentionKeepForever
	default:
		return domain.Retention90d
	}
}

func (r *Registry) linkDerivedFrom(ctx context.Context, childID, parentID string) error {
	sess := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := fmt.Sprintf(
		"MATCH (c:%s {id: $child}), (p:%s {id: $parent}) CREATE (c)-[:DERIVED_FROM]->(p)",
		artifactLabel, artifactLabel,
	)
	_, err := sess.Run(ctx, cypher, map[string]any{"child": childID, "parent": parentID})
	return err
}

// Get fetches one artifact by id.
func (r *Registry) Get(ctx context.Context, id string) (domain.PipelineArtifact, error) {
	return r.repo.Get(ctx, id)
}

// SoftDelete marks an artifact deleted without removing its node, so
// lineage queries across it still resolve.
func (r *Registry) SoftDelete(ctx context.Context, id string) error {
	a, err := r.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("registry: soft delete %s: %w", id, err)
	}
	a.Status = domain.ArtifactDeleted
	a.DeletedAt = time.Now()
	_, err = r.repo.Update(ctx, a)
	return err
}

// Purge removes an artifact node and all its edges entirely. Only called
// once an artifact's retention window has elapsed.
func (r *Registry) Purge(ctx context.Context, id string) error {
	sess := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := fmt.Sprintf("MATCH (n:%s {id: $id}) DETACH DELETE n", artifactLabel)
	_, err := sess.Run(ctx, cypher, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("registry: purge %s: %w", id, err)
	}
	return nil
}

// retentionWindow maps a named retention policy to its purge-eligibility
// window after deletion. keep_forever and delete_on_promote have no
// window, so the reaper never purges them; promotion does not purge
// delete_on_promote artifacts either.
func retentionWindow(r domain.Retention) (time.Duration, bool) {
	switch r {
	case domain.Retention30d:
		return 30 * 24 * time.Hour, true
	case domain.Retention90d, domain.RetentionOnFailureKeep90:
		return 90 * 24 * time.Hour, true
	case domain.Retention365d:
		return 365 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// ReapExpired purges soft-deleted artifacts whose retention window has
// elapsed as of now, returning how many nodes were removed. The reaper
// is meant to run periodically, never inline with a stage.
func (r *Registry) ReapExpired(ctx context.Context, now time.Time) (int, error) {
	sess := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := fmt.Sprintf(
		"MATCH (n:%s {status: $status}) RETURN n.id AS id, n.retention AS retention, n.deleted_at AS deleted_at",
		artifactLabel,
	)
	result, err := sess.Run(ctx, cypher, map[string]any{"status": string(domain.ArtifactDeleted)})
	if err != nil {
		return 0, fmt.Errorf("registry: reap scan: %w", err)
	}

	type candidate struct{ id string }
	var expired []candidate
	for result.Next(ctx) {
		rec := result.Record()
		id, _ := rec.Get("id")
		retention, _ := rec.Get("retention")
		deletedAt, _ := rec.Get("deleted_at")

		window, bounded := retentionWindow(domain.Retention(str(retention)))
		if !bounded {
			continue
		}
		t, err := time.Parse(time.RFC3339, str(deletedAt))
		if err != nil {
			continue
		}
		if now.Sub(t) >= window {
			expired = append(expired, candidate{id: str(id)})
		}
	}

	purged := 0
	for _, c := range expired {
		if err := r.Purge(ctx, c.id); err != nil {
			return purged, err
		}
		purged++
	}
	return purged, nil
}

// Lineage returns every artifact the given artifact transitively derives
// from, following DERIVED_FROM edges to their end — the "where did this
// number come from" query.
func (r *Registry) Lineage(ctx context.Context, id string) ([]domain.PipelineArtifact, error) {
	sess := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := fmt.Sprintf(
		"MATCH (n:%s {id: $id})-[:DERIVED_FROM*]->(ancestor:%s) RETURN DISTINCT ancestor",
		artifactLabel, artifactLabel,
	)
	result, err := sess.Run(ctx, cypher, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("registry: lineage %s: %w", id, err)
	}

	var out []domain.PipelineArtifact
	for result.Next(ctx) {
		rec := result.Record()
		node, ok := rec.Get("ancestor")
		if !ok {
			continue
		}
		n, ok := node.(neo4j.Node)
		if !ok {
			continue
		}
		a, err := mapToArtifact(n.Props)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Descendants returns every artifact that (transitively) derives from id —
// the forward direction, used to cascade a retroactive invalidation.
func (r *Registry) Descendants(ctx context.Context, id string) ([]domain.PipelineArtifact, error) {
	sess := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := fmt.Sprintf(
		"MATCH (n:%s {id: $id})<-[:DERIVED_FROM*]-(descendant:%s) RETURN DISTINCT descendant",
		artifactLabel, artifactLabel,
	)
	result, err := sess.Run(ctx, cypher, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("registry: descendants %s: %w", id, err)
	}

	var out []domain.PipelineArtifact
	for result.Next(ctx) {
		rec := result.Record()
		node, ok := rec.Get("descendant")
		if !ok {
			continue
		}
		n, ok := node.(neo4j.Node)
		if !ok {
			continue
		}
		a, err := mapToArtifact(n.Props)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// ListByRun returns every artifact registered under one pipeline run.
func (r *Registry) ListByRun(ctx context.Context, runID string) ([]domain.PipelineArtifact, error) {
	sess := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := fmt.Sprintf("MATCH (n:%s {run_id: $run_id}) RETURN n", artifactLabel)
	result, err := sess.Run(ctx, cypher, map[string]any{"run_id": runID})
	if err != nil {
		return nil, fmt.Errorf("registry: list by run %s: %w", runID, err)
	}

	var out []domain.PipelineArtifact
	for result.Next(ctx) {
		a, err := artifactFromRecord(result.Record())
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
