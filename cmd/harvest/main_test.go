package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/PlanHarvest/internal/catalog"
	"github.com/dharsanguruparan/PlanHarvest/internal/config"
	"github.com/dharsanguruparan/PlanHarvest/internal/logger"
	"github.com/dharsanguruparan/PlanHarvest/internal/metrics"
	"github.com/dharsanguruparan/PlanHarvest/internal/model"
)

type entity map[string]any

// newRegistry serves one page of entities, then an empty page, plus the
// organisations in orgs. Unknown organisations are 404s.
func newRegistry(t *testing.T, entities func(base string) []entity, orgs map[string]entity) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/entity.json", func(w http.ResponseWriter, r *http.Request) {
		out := []entity{}
		if r.URL.Query().Get("offset") == "0" {
			out = entities(srv.URL)
		}
		json.NewEncoder(w).Encode(map[string]any{"entities": out})
	})
	mux.HandleFunc("/entity/", func(w http.ResponseWriter, r *http.Request) {
		id := filepath.Base(r.URL.Path)
		doc, ok := orgs[id[:len(id)-len(".json")]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(doc)
	})
	mux.HandleFunc("/docs/core", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 core strategy"))
	})
	mux.HandleFunc("/landing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>policies map</html>"))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

var bristol = map[string]entity{
	"10": {"prefix": "local-authority", "reference": "BST", "name": "Bristol, City of"},
}

func testApp(stdout *bytes.Buffer) *app {
	return &app{
		cfg:     &config.Config{UserAgent: "PlanHarvest-test"},
		stdout:  stdout,
		log:     logger.NewNop(),
		metrics: metrics.New(),
	}
}

func TestCrawlThenDownload(t *testing.T) {
	reg := newRegistry(t, func(base string) []entity {
		return []entity{
			{"reference": "R1", "name": "Core Strategy", "organisation-entity": 10, "local-plan": "LP1",
				"document-url": base + "/docs/core", "document-types": "local-plan;sustainability-apprasial"},
			{"reference": "R1-copy", "name": "Core Strategy (copy)", "organisation-entity": "10", "local-plan": "LP1",
				"document-url": base + "/docs/core"},
			{"reference": "R3", "name": "Policies map", "organisation-entity": 10, "local-plan": "LP1",
				"document-url": "https://drive.google.com/file/d/abc/view", "documentation-url": base + "/landing"},
		}
	}, bristol)

	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.csv")
	metricsPath := filepath.Join(dir, "harvest.prom")
	var stdout bytes.Buffer

	err := testApp(&stdout).execute(context.Background(), []string{
		"crawl", "--registry-url", reg.URL, "--out", catalogPath,
		"--page-delay", "0", "--org-delay", "0", "--workers", "2",
	})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "wrote 2 records")

	records, err := catalog.Read(catalogPath)
	require.NoError(t, err)
	require.Len(t, records, 2)

	core := records[0]
	assert.Equal(t, "local-authority:BST", core.LPACurie)
	assert.Equal(t, "Bristol, City of", core.LPAName)
	assert.Equal(t, "R1", core.DocReference)
	assert.Equal(t, model.KindPDF, core.FileKind)
	assert.Equal(t, reg.URL+"/docs/core", core.FinalURL)
	assert.Equal(t, []string{"local-plan", "sustainability-appraisal"}, core.DocTypes)

	viewer := records[1]
	assert.Equal(t, "R3", viewer.DocReference)
	assert.Equal(t, model.KindLanding, viewer.FileKind)
	assert.Empty(t, viewer.FinalURL)
	assert.Equal(t, reg.URL+"/landing", viewer.LandingURL)

	out := filepath.Join(dir, "downloads")
	stdout.Reset()
	err = testApp(&stdout).execute(context.Background(), []string{
		"download", "--catalog", catalogPath, "--out", out, "--delay", "0",
		"--kinds", "pdf", "--metrics-file", metricsPath,
		"--failure-log", filepath.Join(dir, "failures.csv"),
	})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "downloaded:        1")
	assert.Contains(t, stdout.String(), "skipped (kind):    1")

	data, err := os.ReadFile(filepath.Join(out, "LP1", "R1_Core Strategy.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 core strategy", string(data))
	assert.NoFileExists(t, filepath.Join(dir, "failures.csv"))

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `planharvest_download_outcomes_total{outcome="downloaded"} 1`)
}

func TestCrawlAbortKeepsPartialCatalog(t *testing.T) {
	reg := newRegistry(t, func(base string) []entity {
		return []entity{
			{"reference": "R1", "name": "Core Strategy", "organisation-entity": 10, "document-url": base + "/docs/core"},
			{"reference": "R2", "name": "Orphan", "organisation-entity": 99, "document-url": base + "/docs/core"},
		}
	}, bristol)

	catalogPath := filepath.Join(t.TempDir(), "catalog.csv")
	var stdout bytes.Buffer
	err := testApp(&stdout).execute(context.Background(), []string{
		"crawl", "--registry-url", reg.URL, "--out", catalogPath, "--page-delay", "0", "--org-delay", "0",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crawl aborted")

	records, rerr := catalog.Read(catalogPath)
	require.NoError(t, rerr)
	require.Len(t, records, 1)
	assert.Equal(t, "R1", records[0].DocReference)
}

func TestCrawlSkipPolicyLogsFailures(t *testing.T) {
	reg := newRegistry(t, func(base string) []entity {
		return []entity{
			{"reference": "R2", "name": "Orphan", "organisation-entity": 99, "document-url": base + "/docs/core"},
		}
	}, bristol)

	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.csv")
	failurePath := filepath.Join(dir, "crawl_failures.csv")
	var stdout bytes.Buffer
	err := testApp(&stdout).execute(context.Background(), []string{
		"crawl", "--registry-url", reg.URL, "--out", catalogPath, "--page-delay", "0", "--org-delay", "0",
		"--on-item-error", "skip", "--failure-log", failurePath,
	})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "no rows to write")
	assert.NoFileExists(t, catalogPath)
	assert.FileExists(t, failurePath)
}

func TestDownloadMissingCatalogFails(t *testing.T) {
	var stdout bytes.Buffer
	err := testApp(&stdout).execute(context.Background(), []string{
		"download", "--catalog", filepath.Join(t.TempDir(), "missing.csv"),
	})
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, stdout.String())
}

func TestUnknownPolicyAndKindAreRejected(t *testing.T) {
	var stdout bytes.Buffer
	assert.Error(t, testApp(&stdout).execute(context.Background(), []string{"crawl", "--on-item-error", "retry"}))
	assert.Error(t, testApp(&stdout).execute(context.Background(), []string{"download", "--kinds", "spreadsheet"}))
}
