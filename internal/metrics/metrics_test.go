package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/PlanHarvest/internal/model"
)

func TestObservations(t *testing.T) {
	m := New()
	m.ObserveEntry()
	m.ObserveEntry()
	m.ObserveDuplicate()
	m.ObserveRecord(model.KindPDF)
	m.ObserveOutcome(model.OutcomeFailed)
	m.AddBytes(2048)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EntriesSeen))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Duplicates))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Records.WithLabelValues("pdf")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues("failed")))
	assert.Equal(t, 2048.0, testutil.ToFloat64(m.BytesWritten))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveEntry()
	m.ObserveOutcome(model.OutcomeDownloaded)
	m.AddBytes(10)
	assert.NoError(t, m.WriteTextfile("ignored.prom"))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveOutcome(model.OutcomeDownloaded)
	path := filepath.Join(t.TempDir(), "harvest.prom")

	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `planharvest_download_outcomes_total{outcome="downloaded"} 1`)
}
