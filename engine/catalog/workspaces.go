package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/primedata-ai/aird/engine/domain"
)

// CreateWorkspace inserts a new workspace row.
func (c *Catalog) CreateWorkspace(ctx context.Context, w domain.Workspace) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO workspaces (id, name) VALUES (?, ?)`, w.ID, w.Name)
	if err != nil {
		return fmt.Errorf("catalog: create workspace %s: %w", w.ID, err)
	}
	return nil
}

// GetWorkspace fetches a workspace by id.
func (c *Catalog) GetWorkspace(ctx context.Context, id string) (domain.Workspace, error) {
	var w domain.Workspace
	row := c.db.QueryRowContext(ctx, `SELECT id, name FROM workspaces WHERE id = ?`, id)
	if err := row.Scan(&w.ID, &w.Name); err != nil {
		if err == sql.ErrNoRows {
			return domain.Workspace{}, fmt.Errorf("catalog: workspace %s not found", id)
		}
		return domain.Workspace{}, fmt.Errorf("catalog: get workspace %s: %w", id, err)
	}
	return w, nil
}

// ListWorkspaces returns every workspace.
func (c *Catalog) ListWorkspaces(ctx context.Context) ([]domain.Workspace, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, name FROM workspaces`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list workspaces: %w", err)
	}
	defer rows.Close()

	var out []domain.Workspace
	for rows.Next() {
		var w domain.Workspace
		if err := rows.Scan(&w.ID, &w.Name); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
