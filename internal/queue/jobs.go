package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/PlanHarvest/internal/model"
)

const (
	// DownloadDocumentTask fetches one catalog row.
	DownloadDocumentTask = "catalog:download"

	maxRetry = 5
)

// DownloadPayload is serialized into the task payload so the worker has the
// whole catalog row and the run it belongs to.
type DownloadPayload struct {
	RunID  string              `json:"run_id"`
	Record model.CatalogRecord `json:"record"`
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewDownloadTask builds the task for one row. The task id is derived from the
// run and row position so re-enqueueing the same run is rejected by asynq.
func NewDownloadTask(payload DownloadPayload, row int) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(DownloadDocumentTask, data,
		asynq.MaxRetry(maxRetry),
		asynq.TaskID(fmt.Sprintf("%s:%d", payload.RunID, row)),
	), nil
}

// DecodeDownload reads a task payload.
func DecodeDownload(task *asynq.Task) (DownloadPayload, error) {
	var payload DownloadPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}

// EnqueueCatalog schedules a download task for every record that has a URL
// and, when kinds is not empty, one of the allowed file kinds. It returns how
// many were enqueued.
func EnqueueCatalog(ctx context.Context, client Enqueuer, runID string, records []model.CatalogRecord, kinds []model.FileKind) (int, error) {
	n := 0
	for i, rec := range records {
		if rec.SourceURL() == "" {
			continue
		}
		if len(kinds) > 0 && !slices.Contains(kinds, rec.FileKind) {
			continue
		}
		task, err := NewDownloadTask(DownloadPayload{RunID: runID, Record: rec}, i)
		if err != nil {
			return n, err
		}
		if _, err := client.EnqueueContext(ctx, task); err != nil {
			return n, fmt.Errorf("enqueue %s: %w", rec.DocReference, err)
		}
		n++
	}
	return n, nil
}
