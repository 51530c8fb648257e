// Package catalog is the relational metadata store: workspaces,
// products, raw files, pipeline runs, and ACLs — row-shaped state that the
// registry's graph model isn't a natural fit for. modernc.org/sqlite keeps
// this dependency pure Go, no cgo, matching the rest of the pipeline's
// deploy story.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Catalog wraps the sqlite connection and exposes one accessor per table.
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if absent) the sqlite database at path and applies
// the schema migration.
func Open(path string) (*Catalog, error) {
	if path == "" {
		return nil, fmt.Errorf("catalog: db path required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("catalog: mkdir for %s: %w", path, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	c := &Catalog{db: db}
	if err := c.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("catalog: migrate: %w", err)
	}
	return c, nil
}

// Close closes the underlying connection.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DB exposes the raw handle for ad-hoc queries (reporting, CLI inspection).
func (c *Catalog) DB() *sql.DB { return c.db }

func (c *Catalog) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA foreign_keys=ON;`,
		`CREATE TABLE IF NOT EXISTS workspaces (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS products (
			id                TEXT PRIMARY KEY,
			workspace_id      TEXT NOT NULL,
			name              TEXT NOT NULL,
			current_version   INTEGER NOT NULL DEFAULT 0,
			promoted_version  INTEGER NOT NULL DEFAULT 0,
			playbook_id       TEXT NOT NULL DEFAULT '',
			chunking_config   TEXT NOT NULL DEFAULT '{}',
			embedding_config  TEXT NOT NULL DEFAULT '{}',
			readiness_fp      TEXT,
			policy_status     TEXT NOT NULL DEFAULT '',
			policy_violations TEXT NOT NULL DEFAULT '[]',
			UNIQUE(workspace_id, name)
		);`,
		`CREATE TABLE IF NOT EXISTS raw_files (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			product_id      TEXT NOT NULL,
			version         INTEGER NOT NULL,
			filename        TEXT NOT NULL,
			file_stem       TEXT NOT NULL,
			bucket          TEXT NOT NULL,
			key             TEXT NOT NULL,
			size            INTEGER NOT NULL DEFAULT 0,
			checksum        TEXT NOT NULL DEFAULT '',
			content_type    TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL,
			data_source_ref TEXT NOT NULL DEFAULT '',
			UNIQUE(product_id, version, file_stem)
		);`,
		`CREATE TABLE IF NOT EXISTS pipeline_runs (
			id                    TEXT PRIMARY KEY,
			workspace_id          TEXT NOT NULL,
			product_id            TEXT NOT NULL,
			version               INTEGER NOT NULL,
			status                TEXT NOT NULL,
			started_at            TEXT NOT NULL,
			finished_at           TEXT,
			dag_id                TEXT NOT NULL DEFAULT '',
			metrics               TEXT NOT NULL DEFAULT '{}',
			aird_stages_completed TEXT NOT NULL DEFAULT '[]',
			cancellation_reason   TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS acls (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL,
			product_id  TEXT NOT NULL,
			access_type TEXT NOT NULL,
			index_scope TEXT NOT NULL DEFAULT '',
			doc_scope   TEXT NOT NULL DEFAULT '',
			field_scope TEXT NOT NULL DEFAULT '',
			UNIQUE(user_id, product_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_raw_files_product_version ON raw_files(product_id, version);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_product_version ON pipeline_runs(product_id, version);`,
	}
	for _, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
