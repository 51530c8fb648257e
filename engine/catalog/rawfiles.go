package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/primedata-ai/aird/engine/domain"
)

// CreateRawFile inserts the catalog row for one ingested byte object.
// Reprocessing never overwrites: callers bump the product version first
// and insert under the new version instead.
func (c *Catalog) CreateRawFile(ctx context.Context, rf domain.RawFile) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		`INSERT INTO raw_files (product_id, version, filename, file_stem, bucket, key, size, checksum, content_type, status, data_source_ref)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rf.ProductID, rf.Version, rf.Filename, rf.FileStem, rf.Bucket, rf.Key, rf.Size, rf.Checksum, rf.ContentType, rf.Status, rf.DataSourceRef)
	if err != nil {
		return 0, fmt.Errorf("catalog: create raw file %s: %w", rf.FileStem, err)
	}
	return res.LastInsertId()
}

// SetRawFileStatus transitions a raw file's status (ingested -> processing
// -> processed|failed).
func (c *Catalog) SetRawFileStatus(ctx context.Context, id int64, status domain.RawFileStatus) error {
	_, err := c.db.ExecContext(ctx, `UPDATE raw_files SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("catalog: set raw file %d status: %w", id, err)
	}
	return nil
}

// SetRawFileStatusByStem transitions a raw file addressed by its unique
// (product, version, file_stem) key.
func (c *Catalog) SetRawFileStatusByStem(ctx context.Context, productID string, version int, stem string, status domain.RawFileStatus) error {
	_, err := c.db.ExecContext(ctx,
		`UPDATE raw_files SET status = ? WHERE product_id = ? AND version = ? AND file_stem = ?`,
		status, productID, version, stem)
	if err != nil {
		return fmt.Errorf("catalog: set raw file %s status: %w", stem, err)
	}
	return nil
}

// ListRawFiles returns every raw file catalogued for (productID, version).
func (c *Catalog) ListRawFiles(ctx context.Context, productID string, version int) ([]domain.RawFile, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT filename, file_stem, bucket, key, size, checksum, content_type, status, product_id, version, data_source_ref
		 FROM raw_files WHERE product_id = ? AND version = ?`, productID, version)
	if err != nil {
		return nil, fmt.Errorf("catalog: list raw files %s v%d: %w", productID, version, err)
	}
	defer rows.Close()

	var out []domain.RawFile
	for rows.Next() {
		var rf domain.RawFile
		if err := rows.Scan(&rf.Filename, &rf.FileStem, &rf.Bucket, &rf.Key, &rf.Size, &rf.Checksum,
			&rf.ContentType, &rf.Status, &rf.ProductID, &rf.Version, &rf.DataSourceRef); err != nil {
			return nil, err
		}
		out = append(out, rf)
	}
	return out, rows.Err()
}

// GetRawFileByStem looks up a single raw file by its unique key.
func (c *Catalog) GetRawFileByStem(ctx context.Context, productID string, version int, stem string) (domain.RawFile, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT filename, file_stem, bucket, key, size, checksum, content_type, status, product_id, version, data_source_ref
		 FROM raw_files WHERE product_id = ? AND version = ? AND file_stem = ?`, productID, version, stem)

	var rf domain.RawFile
	err := row.Scan(&rf.Filename, &rf.FileStem, &rf.Bucket, &rf.Key, &rf.Size, &rf.Checksum,
		&rf.ContentType, &rf.Status, &rf.ProductID, &rf.Version, &rf.DataSourceRef)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.RawFile{}, fmt.Errorf("catalog: raw file %s not found in %s v%d", stem, productID, version)
		}
		return domain.RawFile{}, fmt.Errorf("catalog: get raw file %s: %w", stem, err)
	}
	return rf, nil
}
