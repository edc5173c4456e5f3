package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Execer runs a statement. *pgxpool.Pool satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Schema holds the catalog mirror and the download outcome log. Every row
// carries the run id that produced it.
const Schema = `
CREATE TABLE IF NOT EXISTS catalog_records (
	run_id TEXT NOT NULL,
	lpa_curie TEXT NOT NULL,
	lpa_name TEXT NOT NULL,
	doc_reference TEXT NOT NULL,
	doc_name TEXT NOT NULL,
	doc_types TEXT[] NOT NULL,
	file_kind TEXT NOT NULL,
	final_url TEXT NOT NULL,
	landing_url TEXT NOT NULL,
	status INTEGER NOT NULL,
	content_type TEXT NOT NULL,
	entry_date TEXT NOT NULL,
	local_plan TEXT NOT NULL,
	declared_url TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_catalog_records_run ON catalog_records(run_id);
CREATE TABLE IF NOT EXISTS download_outcomes (
	run_id TEXT NOT NULL,
	doc_reference TEXT NOT NULL,
	local_plan TEXT NOT NULL,
	url TEXT NOT NULL,
	outcome TEXT NOT NULL,
	path TEXT NOT NULL,
	bytes BIGINT NOT NULL,
	error_message TEXT,
	recorded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_download_outcomes_run ON download_outcomes(run_id, outcome);`

// EnsureSchema creates the tables if needed.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
