package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dharsanguruparan/PlanHarvest/internal/downloader"
	"github.com/dharsanguruparan/PlanHarvest/internal/model"
)

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

var catalogColumns = []string{
	"run_id", "lpa_curie", "lpa_name", "doc_reference", "doc_name", "doc_types",
	"file_kind", "final_url", "landing_url", "status", "content_type",
	"entry_date", "local_plan", "declared_url", "created_at",
}

// CatalogRepository wraps the SQL used by the crawl and download commands.
type CatalogRepository struct {
	db  DB
	now func() time.Time
}

// NewCatalogRepository constructs a repository.
func NewCatalogRepository(db DB) *CatalogRepository {
	return &CatalogRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// SaveCatalog bulk-loads the records of one crawl run with COPY.
func (r *CatalogRepository) SaveCatalog(ctx context.Context, runID string, records []model.CatalogRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	now := r.now()
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		tags := rec.DocTypes
		if tags == nil {
			tags = []string{}
		}
		rows = append(rows, []any{
			runID, rec.LPACurie, rec.LPAName, rec.DocReference, rec.DocName, tags,
			string(rec.FileKind), rec.FinalURL, rec.LandingURL, rec.Status, rec.ContentType,
			rec.EntryDate, rec.LocalPlan, rec.DeclaredURL, now,
		})
	}
	n, err := r.db.CopyFrom(ctx, pgx.Identifier{"catalog_records"}, catalogColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("copy catalog records: %w", err)
	}
	return n, nil
}

// RecordOutcome appends one downloader result to the outcome log.
func (r *CatalogRepository) RecordOutcome(ctx context.Context, runID string, rec model.CatalogRecord, res downloader.Result) error {
	var errorMsg *string
	if res.Err != nil {
		msg := res.Err.Error()
		errorMsg = &msg
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO download_outcomes (run_id, doc_reference, local_plan, url, outcome, path, bytes, error_message, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, runID, rec.DocReference, rec.LocalPlan, res.URL, string(res.Outcome), res.Path, res.Bytes, errorMsg, r.now())
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}
