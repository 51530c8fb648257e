package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/primedata-ai/aird/engine/domain"
)

// UpsertACL inserts or replaces the ACL grant for (user_id, product_id).
func (c *Catalog) UpsertACL(ctx context.Context, a domain.ACL) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO acls (id, user_id, product_id, access_type, index_scope, doc_scope, field_scope)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, product_id) DO UPDATE SET
		   access_type = excluded.access_type,
		   index_scope = excluded.index_scope,
		   doc_scope = excluded.doc_scope,
		   field_scope = excluded.field_scope`,
		a.ID, a.UserID, a.ProductID, a.AccessType, a.IndexScope, a.DocScope, a.FieldScope)
	if err != nil {
		return fmt.Errorf("catalog: upsert acl %s/%s: %w", a.UserID, a.ProductID, err)
	}
	return nil
}

// GetACL fetches the ACL grant for (userID, productID).
func (c *Catalog) GetACL(ctx context.Context, userID, productID string) (domain.ACL, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT id, user_id, product_id, access_type, index_scope, doc_scope, field_scope
		 FROM acls WHERE user_id = ? AND product_id = ?`, userID, productID)

	var a domain.ACL
	err := row.Scan(&a.ID, &a.UserID, &a.ProductID, &a.AccessType, &a.IndexScope, &a.DocScope, &a.FieldScope)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.ACL{}, fmt.Errorf("catalog: no acl for user %s on product %s", userID, productID)
		}
		return domain.ACL{}, fmt.Errorf("catalog: get acl: %w", err)
	}
	return a, nil
}

// ListACLsForUser returns every grant a user holds.
func (c *Catalog) ListACLsForUser(ctx context.Context, userID string) ([]domain.ACL, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, user_id, product_id, access_type, index_scope, doc_scope, field_scope
		 FROM acls WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list acls for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []domain.ACL
	for rows.Next() {
		var a domain.ACL
		if err := rows.Scan(&a.ID, &a.UserID, &a.ProductID, &a.AccessType, &a.IndexScope, &a.DocScope, &a.FieldScope); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteACL revokes a grant.
func (c *Catalog) DeleteACL(ctx context.Context, userID, productID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM acls WHERE user_id = ? AND product_id = ?`, userID, productID)
	if err != nil {
		return fmt.Errorf("catalog: delete acl %s/%s: %w", userID, productID, err)
	}
	return nil
}
