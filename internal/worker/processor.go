package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/PlanHarvest/internal/downloader"
	"github.com/dharsanguruparan/PlanHarvest/internal/logger"
	"github.com/dharsanguruparan/PlanHarvest/internal/model"
	"github.com/dharsanguruparan/PlanHarvest/internal/queue"
)

// RowProcessor downloads one catalog row. *downloader.Downloader satisfies it.
type RowProcessor interface {
	Process(ctx context.Context, rec model.CatalogRecord) downloader.Result
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	rows     RowProcessor
	recorder downloader.Recorder
	log      logger.Logger
}

// NewProcessor constructs a worker processor. recorder may be nil.
func NewProcessor(rows RowProcessor, recorder downloader.Recorder, log logger.Logger) *Processor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Processor{rows: rows, recorder: recorder, log: log}
}

// Handler registers the download job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.DownloadDocumentTask, p.handleDownload)
	return mux
}

// handleDownload returns an error for failed rows so asynq retries them.
// Failures that a retry cannot fix skip the retry queue.
func (p *Processor) handleDownload(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.DecodeDownload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	rec := payload.Record
	log := p.log.With(logger.String("run_id", payload.RunID), logger.String("doc_reference", rec.DocReference))

	res := p.rows.Process(ctx, rec)
	if p.recorder != nil {
		if err := p.recorder.RecordOutcome(ctx, payload.RunID, rec, res); err != nil {
			log.Warn("record outcome failed", logger.Error(err))
		}
	}

	if res.Outcome != model.OutcomeFailed {
		log.Info("row processed", logger.String("outcome", string(res.Outcome)), logger.String("path", res.Path))
		return nil
	}
	log.Warn("download failed", logger.String("url", res.URL), logger.String("error", res.Err.Error()))
	if permanent(res.Err) {
		return fmt.Errorf("%w: %s", asynq.SkipRetry, res.Err)
	}
	return res.Err
}

func permanent(err *downloader.FetchError) bool {
	return err.Class == downloader.ClassHTTPStatus || err.Class == downloader.ClassInvalidPDF
}

// IsPermanent reports whether a handler error was marked as not retryable.
func IsPermanent(err error) bool { return errors.Is(err, asynq.SkipRetry) }
