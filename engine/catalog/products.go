package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/primedata-ai/aird/engine/domain"
)

// CreateProduct inserts a new product row with the current and promoted
// versions given on p (zero for a brand-new product).
func (c *Catalog) CreateProduct(ctx context.Context, p domain.Product) error {
	chunking, err := json.Marshal(p.Chunking)
	if err != nil {
		return err
	}
	embedding, err := json.Marshal(p.Embedding)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO products (id, workspace_id, name, current_version, promoted_version, playbook_id, chunking_config, embedding_config)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.WorkspaceID, p.Name, p.CurrentVersion, p.PromotedVersion, p.PlaybookID, string(chunking), string(embedding))
	if err != nil {
		return fmt.Errorf("catalog: create product %s: %w", p.ID, err)
	}
	return nil
}

// GetProduct fetches a product by id.
func (c *Catalog) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT id, workspace_id, name, current_version, promoted_version, playbook_id,
		        chunking_config, embedding_config, readiness_fp, policy_status, policy_violations
		 FROM products WHERE id = ?`, id)
	return scanProduct(row)
}

// BumpVersion atomically increments a product's current_version and
// returns the new value — reprocessing always creates a new version rather
// than overwriting.
func (c *Catalog) BumpVersion(ctx context.Context, productID string) (int, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var current int
	if err := tx.QueryRowContext(ctx, `SELECT current_version FROM products WHERE id = ?`, productID).Scan(&current); err != nil {
		return 0, fmt.Errorf("catalog: bump version read %s: %w", productID, err)
	}
	next := current + 1
	if _, err := tx.ExecContext(ctx, `UPDATE products SET current_version = ? WHERE id = ?`, next, productID); err != nil {
		return 0, fmt.Errorf("catalog: bump version write %s: %w", productID, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return next, nil
}

// Promote sets promoted_version, the production pointer swapped by
// engine/vectorstore's SetProdAlias.
func (c *Catalog) Promote(ctx context.Context, productID string, version int) error {
	_, err := c.db.ExecContext(ctx, `UPDATE products SET promoted_version = ? WHERE id = ?`, version, productID)
	if err != nil {
		return fmt.Errorf("catalog: promote %s to v%d: %w", productID, version, err)
	}
	return nil
}

// SetFingerprint persists the readiness fingerprint onto a product row
// after the fingerprint stage runs; the policy columns are untouched
// until the policy stage commits its own evaluation.
func (c *Catalog) SetFingerprint(ctx context.Context, productID string, fp domain.Fingerprint) error {
	fpJSON, err := json.Marshal(fp)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, `UPDATE products SET readiness_fp = ? WHERE id = ?`, string(fpJSON), productID)
	if err != nil {
		return fmt.Errorf("catalog: set fingerprint %s: %w", productID, err)
	}
	return nil
}

// SetPolicyEvaluation persists the readiness fingerprint and policy
// decision onto a product row after the policy stage runs.
func (c *Catalog) SetPolicyEvaluation(ctx context.Context, productID string, fp domain.Fingerprint, result domain.PolicyEvaluationResult) error {
	fpJSON, err := json.Marshal(fp)
	if err != nil {
		return err
	}
	violations, err := json.Marshal(result.Violations)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx,
		`UPDATE products SET readiness_fp = ?, policy_status = ?, policy_violations = ? WHERE id = ?`,
		string(fpJSON), string(result.Status), string(violations), productID)
	if err != nil {
		return fmt.Errorf("catalog: set policy evaluation %s: %w", productID, err)
	}
	return nil
}

// DeleteProduct removes a product and everything it exclusively owns:
// raw files, pipeline runs, and ACLs. Object-store bytes and the vector
// collection are the caller's to remove — the catalog only owns rows.
func (c *Catalog) DeleteProduct(ctx context.Context, productID string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM raw_files WHERE product_id = ?`,
		`DELETE FROM pipeline_runs WHERE product_id = ?`,
		`DELETE FROM acls WHERE product_id = ?`,
		`DELETE FROM products WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, productID); err != nil {
			return fmt.Errorf("catalog: delete product %s: %w", productID, err)
		}
	}
	return tx.Commit()
}

// ListProducts returns every product in a workspace.
func (c *Catalog) ListProducts(ctx context.Context, workspaceID string) ([]domain.Product, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, workspace_id, name, current_version, promoted_version, playbook_id,
		        chunking_config, embedding_config, readiness_fp, policy_status, policy_violations
		 FROM products WHERE workspace_id = ?`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list products for %s: %w", workspaceID, err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var chunkingJSON, embeddingJSON, violationsJSON string
	var readinessFP sql.NullString

	err := row.Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.CurrentVersion, &p.PromotedVersion, &p.PlaybookID,
		&chunkingJSON, &embeddingJSON, &readinessFP, &p.PolicyStatus, &violationsJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Product{}, fmt.Errorf("catalog: product not found")
		}
		return domain.Product{}, fmt.Errorf("catalog: scan product: %w", err)
	}

	if err := json.Unmarshal([]byte(chunkingJSON), &p.Chunking); err != nil {
		return domain.Product{}, err
	}
	if err := json.Unmarshal([]byte(embeddingJSON), &p.Embedding); err != nil {
		return domain.Product{}, err
	}
	if err := json.Unmarshal([]byte(violationsJSON), &p.PolicyViolations); err != nil {
		return domain.Product{}, err
	}
	if readinessFP.Valid && readinessFP.String != "" {
		var fp domain.Fingerprint
		if err := json.Unmarshal([]byte(readinessFP.String), &fp); err == nil {
			p.ReadinessFP = &fp
		}
	}
	return p, nil
}
