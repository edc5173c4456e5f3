// Package downloader fetches the documents listed in a catalog into a
// directory tree organised by local plan.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/time/rate"

	"github.com/dharsanguruparan/PlanHarvest/internal/catalog"
	"github.com/dharsanguruparan/PlanHarvest/internal/logger"
	"github.com/dharsanguruparan/PlanHarvest/internal/metrics"
	"github.com/dharsanguruparan/PlanHarvest/internal/model"
	"github.com/dharsanguruparan/PlanHarvest/internal/pace"
)

const (
	DefaultDelay      = 500 * time.Millisecond
	DefaultTimeout    = 120 * time.Second
	DefaultOutputDir  = "downloads"
	DefaultFailureLog = "download_failures.csv"
)

// Verifier checks a fully written file before it is kept.
type Verifier func(path string) error

// Mirror copies downloaded files to secondary storage.
type Mirror interface {
	Upload(ctx context.Context, key, path, contentType string) error
}

// Recorder stores the outcome of every processed row.
type Recorder interface {
	RecordOutcome(ctx context.Context, runID string, rec model.CatalogRecord, res Result) error
}

// Config tunes a download run.
type Config struct {
	OutputDir string
	// Kinds restricts downloads to these file kinds. Empty allows all.
	Kinds []model.FileKind
	// Overwrite refetches rows whose destination already exists.
	Overwrite bool
	// Max stops the run after this many successful downloads. Zero means no
	// limit.
	Max int
	// Delay is the minimum spacing between requests to document hosts. It
	// holds across goroutines sharing one Downloader.
	Delay   time.Duration
	Timeout time.Duration
	// FailureLog is where DownloadAll writes failed rows. Empty disables it.
	FailureLog string
	VerifyPDF  Verifier
	Mirror     Mirror
	Recorder   Recorder
	RunID      string
}

// Result is what happened to one catalog row.
type Result struct {
	Outcome model.Outcome
	URL     string
	Path    string
	Bytes   int64
	Err     *FetchError
	// MirrorFailed is set when the file was kept but could not be mirrored.
	MirrorFailed bool
}

// Stats aggregates one run.
type Stats struct {
	Total         int
	SkippedNoURL  int
	SkippedKind   int
	SkippedExists int
	Downloaded    int
	Failed        int
	MirrorFailed  int
	Bytes         int64
	// FailureLog is set when DownloadAll wrote a failure log.
	FailureLog string
}

func (s *Stats) add(o model.Outcome) {
	switch o {
	case model.OutcomeSkippedNoURL:
		s.SkippedNoURL++
	case model.OutcomeSkippedKind:
		s.SkippedKind++
	case model.OutcomeSkippedExists:
		s.SkippedExists++
	case model.OutcomeDownloaded:
		s.Downloaded++
	case model.OutcomeFailed:
		s.Failed++
	}
}

// Summary prints the human run summary.
func (s Stats) Summary(w io.Writer, outputDir string) {
	fmt.Fprintln(w, "Download summary")
	fmt.Fprintf(w, "  rows:              %d\n", s.Total)
	fmt.Fprintf(w, "  downloaded:        %d (%d bytes)\n", s.Downloaded, s.Bytes)
	fmt.Fprintf(w, "  skipped (no url):  %d\n", s.SkippedNoURL)
	fmt.Fprintf(w, "  skipped (kind):    %d\n", s.SkippedKind)
	fmt.Fprintf(w, "  skipped (exists):  %d\n", s.SkippedExists)
	fmt.Fprintf(w, "  failed:            %d\n", s.Failed)
	if s.MirrorFailed > 0 {
		fmt.Fprintf(w, "  mirror failures:   %d\n", s.MirrorFailed)
	}
	fmt.Fprintf(w, "  output:            %s\n", outputDir)
	if s.FailureLog != "" {
		fmt.Fprintf(w, "  failure log:       %s\n", s.FailureLog)
	}
}

// Downloader processes catalog rows one at a time.
type Downloader struct {
	http    *http.Client
	cfg     Config
	log     logger.Logger
	metrics *metrics.Metrics
	limiter *rate.Limiter
}

// New builds a Downloader. log and m may be nil.
func New(httpClient *http.Client, cfg Config, log logger.Logger, m *metrics.Metrics) *Downloader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Downloader{
		http:    httpClient,
		cfg:     cfg,
		log:     log,
		metrics: m,
		limiter: pace.NewLimiter(cfg.Delay),
	}
}

// Process handles a single row: pick a URL, filter by kind, skip existing
// files, then fetch. Successful files are mirrored when a mirror is set.
func (d *Downloader) Process(ctx context.Context, rec model.CatalogRecord) Result {
	res := d.process(ctx, rec)
	d.metrics.ObserveOutcome(res.Outcome)
	d.metrics.AddBytes(res.Bytes)
	if d.cfg.Recorder != nil {
		if err := d.cfg.Recorder.RecordOutcome(ctx, d.cfg.RunID, rec, res); err != nil {
			d.log.Warn("record outcome failed",
				logger.String("doc_reference", rec.DocReference),
				logger.Error(err),
			)
		}
	}
	return res
}

func (d *Downloader) process(ctx context.Context, rec model.CatalogRecord) Result {
	src := rec.SourceURL()
	if src == "" {
		return Result{Outcome: model.OutcomeSkippedNoURL}
	}
	res := Result{URL: src}
	if len(d.cfg.Kinds) > 0 && !slices.Contains(d.cfg.Kinds, rec.FileKind) {
		res.Outcome = model.OutcomeSkippedKind
		return res
	}

	dir := PlanDir(d.cfg.OutputDir, rec.LocalPlan)
	res.Path = filepath.Join(dir, FileName(rec, src))
	if !d.cfg.Overwrite {
		if _, err := os.Stat(res.Path); err == nil {
			res.Outcome = model.OutcomeSkippedExists
			return res
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		res.Outcome = model.OutcomeFailed
		res.Err = newFetchError(ClassWrite, err)
		return res
	}

	if err := d.limiter.Wait(ctx); err != nil {
		res.Outcome = model.OutcomeFailed
		res.Err = classifyError(ctx, err)
		return res
	}
	n, ferr := d.fetch(ctx, src, res.Path, rec.FileKind)
	if ferr != nil {
		res.Outcome = model.OutcomeFailed
		res.Err = ferr
		return res
	}
	res.Outcome = model.OutcomeDownloaded
	res.Bytes = n

	if d.cfg.Mirror != nil {
		if err := d.mirror(ctx, rec, res.Path); err != nil {
			res.MirrorFailed = true
			d.metrics.ObserveMirrorFailure()
			d.log.Warn("mirror upload failed",
				logger.String("doc_reference", rec.DocReference),
				logger.String("path", res.Path),
				logger.Error(err),
			)
		}
	}
	return res
}

func (d *Downloader) mirror(ctx context.Context, rec model.CatalogRecord, path string) error {
	rel, err := filepath.Rel(d.cfg.OutputDir, path)
	if err != nil {
		return fmt.Errorf("mirror key: %w", err)
	}
	return d.cfg.Mirror.Upload(ctx, filepath.ToSlash(rel), path, rec.ContentType)
}

// Run processes records in order. The delay follows every row that reached
// the network; the Max cutoff is checked after each such row. Rows without a
// URL are counted but never appear in the returned failures. Cancellation
// stops the run after the current row.
func (d *Downloader) Run(ctx context.Context, records []model.CatalogRecord) (Stats, []model.Failure) {
	var (
		stats    Stats
		failures []model.Failure
	)
	for i, rec := range records {
		if ctx.Err() != nil {
			break
		}
		stats.Total++
		res := d.Process(ctx, rec)
		stats.add(res.Outcome)
		stats.Bytes += res.Bytes
		if res.MirrorFailed {
			stats.MirrorFailed++
		}

		log := d.log.With(
			logger.Int("row", i+1),
			logger.Int("rows", len(records)),
			logger.String("doc_reference", rec.DocReference),
		)
		switch res.Outcome {
		case model.OutcomeDownloaded:
			log.Info("downloaded", logger.String("path", res.Path), logger.Int64("bytes", res.Bytes))
		case model.OutcomeFailed:
			log.Warn("download failed", logger.String("url", res.URL), logger.String("error", res.Err.Error()))
			failures = append(failures, model.Failure{
				DocReference: rec.DocReference,
				DocName:      rec.DocName,
				URL:          res.URL,
				Error:        res.Err.Error(),
				LPACurie:     rec.LPACurie,
				LPAName:      rec.LPAName,
				LocalPlan:    rec.LocalPlan,
			})
		default:
			log.Debug("skipped", logger.String("outcome", string(res.Outcome)))
		}

		if res.Outcome != model.OutcomeDownloaded && res.Outcome != model.OutcomeFailed {
			continue
		}
		if d.cfg.Max > 0 && stats.Downloaded >= d.cfg.Max {
			d.log.Info("download limit reached", logger.Int("max", d.cfg.Max))
			break
		}
		if i < len(records)-1 {
			_ = pace.Sleep(ctx, d.cfg.Delay)
		}
	}
	return stats, failures
}

// DownloadAll reads the catalog at path, runs every row and writes the
// failure log when one is configured and something failed. A catalog that
// cannot be read is fatal and nothing is fetched.
func (d *Downloader) DownloadAll(ctx context.Context, path string) (Stats, error) {
	records, err := catalog.Read(path)
	if err != nil {
		return Stats{}, err
	}
	d.log.Info("catalog loaded", logger.String("path", path), logger.Int("rows", len(records)))

	stats, failures := d.Run(ctx, records)
	if d.cfg.FailureLog != "" && len(failures) > 0 {
		if err := catalog.WriteFailures(d.cfg.FailureLog, failures); err != nil {
			return stats, fmt.Errorf("write failure log: %w", err)
		}
		stats.FailureLog = d.cfg.FailureLog
	}
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("download interrupted: %w", err)
	}
	return stats, nil
}

// OutputDir is the root directory files are written under.
func (d *Downloader) OutputDir() string { return d.cfg.OutputDir }
