// Package catalog reads and writes the catalog and failure-log CSV files.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dharsanguruparan/PlanHarvest/internal/doctypes"
	"github.com/dharsanguruparan/PlanHarvest/internal/model"
)

// Columns is the fixed column order of the catalog file.
var Columns = []string{
	"lpa_curie",
	"lpa_name",
	"doc_reference",
	"doc_name",
	"doc_types",
	"file_kind",
	"final_url",
	"landing_url",
	"status",
	"content_type",
	"entry_date",
	"local_plan",
}

var (
	// ErrEmpty is returned by writers given no rows. Nothing is written.
	ErrEmpty = errors.New("no rows to write")
	// ErrMissingColumn is returned when a catalog header lacks a column.
	ErrMissingColumn = errors.New("catalog header is missing a column")
)

// Write stores records at path atomically: readers see either the previous
// file or the complete new one.
func Write(path string, records []model.CatalogRecord) error {
	if len(records) == 0 {
		return ErrEmpty
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.LPACurie,
			r.LPAName,
			r.DocReference,
			r.DocName,
			doctypes.Join(r.DocTypes),
			string(r.FileKind),
			r.FinalURL,
			r.LandingURL,
			strconv.Itoa(r.Status),
			r.ContentType,
			r.EntryDate,
			r.LocalPlan,
		})
	}
	return writeAtomic(path, Columns, rows)
}

// Read loads and validates the whole catalog at path. Any problem is reported
// before a single record is returned.
func Read(path string) ([]model.CatalogRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses catalog CSV from r. Extra columns are ignored.
func Decode(r io.Reader) ([]model.CatalogRecord, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("catalog is empty: %w", ErrMissingColumn)
		}
		return nil, fmt.Errorf("read catalog header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range Columns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	var records []model.CatalogRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		get := func(col string) string { return strings.TrimSpace(row[idx[col]]) }

		status := 0
		if s := get("status"); s != "" {
			status, err = strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("catalog line %d: invalid status %q", line, s)
			}
		}
		kind, err := model.ParseFileKind(get("file_kind"))
		if err != nil {
			return nil, fmt.Errorf("catalog line %d: %w", line, err)
		}
		records = append(records, model.CatalogRecord{
			LPACurie:     get("lpa_curie"),
			LPAName:      get("lpa_name"),
			DocReference: get("doc_reference"),
			DocName:      get("doc_name"),
			DocTypes:     doctypes.Split(get("doc_types")),
			FileKind:     kind,
			FinalURL:     get("final_url"),
			LandingURL:   get("landing_url"),
			Status:       status,
			ContentType:  get("content_type"),
			EntryDate:    get("entry_date"),
			LocalPlan:    get("local_plan"),
		})
	}
	return records, nil
}

// writeAtomic writes header and rows to a temporary file next to path and
// renames it into place once it is fully synced.
func writeAtomic(path string, header []string, rows [][]string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
