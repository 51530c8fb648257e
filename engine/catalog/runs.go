package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/primedata-ai/aird/engine/domain"
)

// CreateRun inserts a pipeline run row with the status given on r.
func (c *Catalog) CreateRun(ctx context.Context, r domain.PipelineRun) error {
	metrics, err := json.Marshal(r.Metrics)
	if err != nil {
		return err
	}
	stages, err := json.Marshal(r.AIRDStagesCompleted)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO pipeline_runs (id, workspace_id, product_id, version, status, started_at, dag_id, metrics, aird_stages_completed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.WorkspaceID, r.ProductID, r.Version, r.Status, r.StartedAt.Format(time.RFC3339), r.DAGID, string(metrics), string(stages))
	if err != nil {
		return fmt.Errorf("catalog: create run %s: %w", r.ID, err)
	}
	return nil
}

// SetRunStatus transitions a run's status, stamping finished_at on any
// terminal status.
func (c *Catalog) SetRunStatus(ctx context.Context, id string, status domain.RunStatus) error {
	var finishedAt sql.NullString
	switch status {
	case domain.RunSucceeded, domain.RunFailed, domain.RunReadyWithWarnings, domain.RunFailedPolicy:
		finishedAt = sql.NullString{String: time.Now().Format(time.RFC3339), Valid: true}
	}
	_, err := c.db.ExecContext(ctx, `UPDATE pipeline_runs SET status = ?, finished_at = ? WHERE id = ?`, status, finishedAt, id)
	if err != nil {
		return fmt.Errorf("catalog: set run %s status: %w", id, err)
	}
	return nil
}

// SetRunCancelled marks a run failed with a cancellation reason, the
// terminal transition used for a cancelled run.
func (c *Catalog) SetRunCancelled(ctx context.Context, id, reason string) error {
	_, err := c.db.ExecContext(ctx,
		`UPDATE pipeline_runs SET status = ?, cancellation_reason = ?, finished_at = ? WHERE id = ?`,
		domain.RunFailed, reason, time.Now().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("catalog: cancel run %s: %w", id, err)
	}
	return nil
}

// MergeMetrics merges new key/value pairs into a run's metrics blob,
// maintaining the metrics.aird_stages[name] slot the tracker writes.
func (c *Catalog) MergeMetrics(ctx context.Context, id, stageName string, stageMetrics map[string]any) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var metricsJSON string
	if err := tx.QueryRowContext(ctx, `SELECT metrics FROM pipeline_runs WHERE id = ?`, id).Scan(&metricsJSON); err != nil {
		return fmt.Errorf("catalog: merge metrics read %s: %w", id, err)
	}

	var metrics map[string]any
	if err := json.Unmarshal([]byte(metricsJSON), &metrics); err != nil {
		metrics = map[string]any{}
	}
	stages, _ := metrics["aird_stages"].(map[string]any)
	if stages == nil {
		stages = map[string]any{}
	}
	stages[stageName] = stageMetrics
	metrics["aird_stages"] = stages

	updated, err := json.Marshal(metrics)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE pipeline_runs SET metrics = ? WHERE id = ?`, string(updated), id); err != nil {
		return fmt.Errorf("catalog: merge metrics write %s: %w", id, err)
	}
	return tx.Commit()
}

// AppendCompletedStage appends stageName to aird_stages_completed if not
// already present.
func (c *Catalog) AppendCompletedStage(ctx context.Context, id, stageName string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var stagesJSON string
	if err := tx.QueryRowContext(ctx, `SELECT aird_stages_completed FROM pipeline_runs WHERE id = ?`, id).Scan(&stagesJSON); err != nil {
		return fmt.Errorf("catalog: append stage read %s: %w", id, err)
	}
	var stages []string
	_ = json.Unmarshal([]byte(stagesJSON), &stages)
	for _, s := range stages {
		if s == stageName {
			return tx.Commit()
		}
	}
	stages = append(stages, stageName)
	updated, err := json.Marshal(stages)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE pipeline_runs SET aird_stages_completed = ? WHERE id = ?`, string(updated), id); err != nil {
		return fmt.Errorf("catalog: append stage write %s: %w", id, err)
	}
	return tx.Commit()
}

// RemoveCompletedStage removes stageName from aird_stages_completed — used
// when a stage is re-run after a failure and its prior completion marker
// must not linger.
func (c *Catalog) RemoveCompletedStage(ctx context.Context, id, stageName string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var stagesJSON string
	if err := tx.QueryRowContext(ctx, `SELECT aird_stages_completed FROM pipeline_runs WHERE id = ?`, id).Scan(&stagesJSON); err != nil {
		return fmt.Errorf("catalog: remove stage read %s: %w", id, err)
	}
	var stages []string
	_ = json.Unmarshal([]byte(stagesJSON), &stages)
	kept := stages[:0]
	for _, s := range stages {
		if s != stageName {
			kept = append(kept, s)
		}
	}
	updated, err := json.Marshal(kept)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE pipeline_runs SET aird_stages_completed = ? WHERE id = ?`, string(updated), id); err != nil {
		return fmt.Errorf("catalog: remove stage write %s: %w", id, err)
	}
	return tx.Commit()
}

// GetRun fetches a run by id.
func (c *Catalog) GetRun(ctx context.Context, id string) (domain.PipelineRun, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT id, workspace_id, product_id, version, status, started_at, finished_at, dag_id, metrics, aird_stages_completed, cancellation_reason
		 FROM pipeline_runs WHERE id = ?`, id)
	return scanRun(row)
}

func scanRun(row rowScanner) (domain.PipelineRun, error) {
	var r domain.PipelineRun
	var startedAt string
	var finishedAt sql.NullString
	var metricsJSON, stagesJSON string

	err := row.Scan(&r.ID, &r.WorkspaceID, &r.ProductID, &r.Version, &r.Status, &startedAt, &finishedAt,
		&r.DAGID, &metricsJSON, &stagesJSON, &r.CancellationReason)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.PipelineRun{}, fmt.Errorf("catalog: run not found")
		}
		return domain.PipelineRun{}, fmt.Errorf("catalog: scan run: %w", err)
	}

	if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
		r.StartedAt = t
	}
	if finishedAt.Valid {
		if t, err := time.Parse(time.RFC3339, finishedAt.String); err == nil {
			r.FinishedAt = t
		}
	}
	if err := json.Unmarshal([]byte(metricsJSON), &r.Metrics); err != nil {
		r.Metrics = map[string]any{}
	}
	_ = json.Unmarshal([]byte(stagesJSON), &r.AIRDStagesCompleted)
	return r, nil
}

// ListRuns returns every run for (productID, version), most recent first.
func (c *Catalog) ListRuns(ctx context.Context, productID string, version int) ([]domain.PipelineRun, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, workspace_id, product_id, version, status, started_at, finished_at, dag_id, metrics, aird_stages_completed, cancellation_reason
		 FROM pipeline_runs WHERE product_id = ? AND version = ? ORDER BY started_at DESC`, productID, version)
	if err != nil {
		return nil, fmt.Errorf("catalog: list runs %s v%d: %w", productID, version, err)
	}
	defer rows.Close()

	var out []domain.PipelineRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
