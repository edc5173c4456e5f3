// Package metrics counts crawl and download activity. Runs are batch jobs, so
// the counters are written to a node-exporter textfile at the end of a run
// rather than served.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dharsanguruparan/PlanHarvest/internal/model"
)

const namespace = "planharvest"

// Metrics holds the counters of one process. A nil *Metrics ignores every
// observation.
type Metrics struct {
	reg *prometheus.Registry

	EntriesSeen    prometheus.Counter
	Duplicates     prometheus.Counter
	Records        *prometheus.CounterVec
	CrawlFailures  prometheus.Counter
	Outcomes       *prometheus.CounterVec
	BytesWritten   prometheus.Counter
	MirrorFailures prometheus.Counter
}

// New registers all counters on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		reg: reg,
		EntriesSeen: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "crawl", Name: "entries_total",
			Help: "Registry entries read.",
		}),
		Duplicates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "crawl", Name: "duplicates_total",
			Help: "Registry entries dropped as duplicates.",
		}),
		Records: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "crawl", Name: "records_total",
			Help: "Catalog records emitted, by file kind.",
		}, []string{"kind"}),
		CrawlFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "crawl", Name: "failures_total",
			Help: "Registry entries skipped after an error.",
		}),
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "download", Name: "outcomes_total",
			Help: "Catalog rows processed by the downloader, by outcome.",
		}, []string{"outcome"}),
		BytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "download", Name: "bytes_total",
			Help: "Bytes written to downloaded files.",
		}),
		MirrorFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "download", Name: "mirror_failures_total",
			Help: "Downloaded files that could not be copied to object storage.",
		}),
	}
}

func (m *Metrics) ObserveEntry() {
	if m != nil {
		m.EntriesSeen.Inc()
	}
}

func (m *Metrics) ObserveDuplicate() {
	if m != nil {
		m.Duplicates.Inc()
	}
}

func (m *Metrics) ObserveRecord(kind model.FileKind) {
	if m != nil {
		m.Records.WithLabelValues(string(kind)).Inc()
	}
}

func (m *Metrics) ObserveCrawlFailure() {
	if m != nil {
		m.CrawlFailures.Inc()
	}
}

func (m *Metrics) ObserveOutcome(o model.Outcome) {
	if m != nil {
		m.Outcomes.WithLabelValues(string(o)).Inc()
	}
}

func (m *Metrics) AddBytes(n int64) {
	if m != nil && n > 0 {
		m.BytesWritten.Add(float64(n))
	}
}

func (m *Metrics) ObserveMirrorFailure() {
	if m != nil {
		m.MirrorFailures.Inc()
	}
}

// WriteTextfile writes the current values in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
