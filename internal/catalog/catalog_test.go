package catalog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/PlanHarvest/internal/model"
)

func sampleRecords() []model.CatalogRecord {
	return []model.CatalogRecord{
		{
			LPACurie:     "local-authority:BST",
			LPAName:      "Bristol, City of",
			DocReference: "DOC-1",
			DocName:      `Core "Strategy"`,
			DocTypes:     []string{"local-plan", "site-allocations"},
			FileKind:     model.KindPDF,
			FinalURL:     "https://example.org/core.pdf",
			Status:       200,
			ContentType:  "application/pdf",
			EntryDate:    "2024-03-01",
			LocalPlan:    "LP-1",
			DeclaredURL:  "https://example.org/core.pdf",
		},
		{
			DocReference: "DOC-2",
			DocName:      "Policies map",
			FileKind:     model.KindLanding,
			LandingURL:   "https://example.org/map",
		},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "catalog.csv")
	require.NoError(t, Write(path, sampleRecords()))

	got, err := Read(path)
	require.NoError(t, err)

	want := sampleRecords()
	for i := range want {
		want[i].DeclaredURL = ""
	}
	want[1].DocTypes = nil
	assert.Equal(t, want, got)
}

func TestWriteUsesFixedHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, Write(path, sampleRecords()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "local-plan;site-allocations", rows[1][4])
	assert.Len(t, rows, 3)
}

func TestWriteEmptyWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.csv")
	assert.ErrorIs(t, Write(path, nil), ErrEmpty)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(filepath.Join(dir, "catalog.csv"), sampleRecords()))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "catalog.csv", entries[0].Name())
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecodeRejectsMissingColumn(t *testing.T) {
	_, err := Decode(strings.NewReader("lpa_curie,doc_reference\nx,y\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestDecodeRejectsEmptyInput(t *testing.T) {
	_, err := Decode(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestDecodeRejectsMalformedRows(t *testing.T) {
	header := strings.Join(Columns, ",") + "\n"

	_, err := Decode(strings.NewReader(header + "a,b,c\n"))
	assert.Error(t, err, "short row")

	_, err = Decode(strings.NewReader(header + ",,R,,,pdf,,,abc,,,\n"))
	assert.ErrorContains(t, err, "invalid status")

	_, err = Decode(strings.NewReader(header + ",,R,,,spreadsheet,,,200,,,\n"))
	assert.ErrorContains(t, err, "unknown file kind")
}

func TestDecodeToleratesReorderedAndExtraColumns(t *testing.T) {
	cols := append([]string{"extra"}, Columns...)
	cols[1], cols[3] = cols[3], cols[1]
	var b strings.Builder
	w := csv.NewWriter(&b)
	require.NoError(t, w.Write(cols))
	row := make([]string, len(cols))
	for i, c := range cols {
		switch c {
		case "doc_reference":
			row[i] = "R9"
		case "file_kind":
			row[i] = "doc"
		case "status":
			row[i] = ""
		}
	}
	require.NoError(t, w.Write(row))
	w.Flush()

	got, err := Decode(strings.NewReader(b.String()))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "R9", got[0].DocReference)
	assert.Equal(t, model.KindDoc, got[0].FileKind)
	assert.Zero(t, got[0].Status)
}

func TestWriteFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "download_failures.csv")
	assert.ErrorIs(t, WriteFailures(path, nil), ErrEmpty)

	require.NoError(t, WriteFailures(path, []model.Failure{{
		DocReference: "DOC-1", DocName: "Core", URL: "https://example.org/a.pdf",
		Error: "timeout: deadline exceeded", LPACurie: "la:X", LPAName: "X", LocalPlan: "LP",
	}}))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, FailureColumns, rows[0])
	assert.Equal(t, []string{"DOC-1", "Core", "https://example.org/a.pdf", "timeout: deadline exceeded", "la:X", "X", "LP"}, rows[1])
}

func TestWriteCrawlFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawl_failures.csv")
	require.NoError(t, WriteCrawlFailures(path, []model.CrawlFailure{{Reference: "R", Error: "boom"}}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "reference,name,organisation_entity,document_url,error\n"))
}
