// Package worker polls the job table and dispatches each leased job to its
// handler. Jobs are durable: LeaseJobs/CompleteJob/FailJob carry all retry
// state in Postgres. LeaseJobs claims only PENDING jobs, so a job whose
// worker crashes mid-run stays PROCESSING; nothing returns it to PENDING.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/loghunter/internal/cache"
	"github.com/kiranshivaraju/loghunter/internal/notify"
	"github.com/kiranshivaraju/loghunter/internal/store"
	"github.com/kiranshivaraju/loghunter/pkg/models"
)

// Handler processes a single job and returns its result payload, or an
// error to be retried (or failed terminally if retries are exhausted).
type Handler func(ctx context.Context, job *models.Job) (json.RawMessage, error)

// Worker polls store for PENDING jobs and dispatches them by type.
type Worker struct {
	store        store.Store
	cache        cache.Cache
	pollInterval time.Duration
	batchSize    int
	handlers     map[string]Handler
}

// New creates a Worker with the default handler set wired to notifier.
func New(s store.Store, c cache.Cache, notifier notify.Provider, pollInterval time.Duration, batchSize int) *Worker {
	w := &Worker{
		store:        s,
		cache:        c,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		handlers:     make(map[string]Handler),
	}
	w.Register(models.JobTypeScanAttachment, scanAttachmentHandler(s))
	w.Register(models.JobTypeSendNotification, sendNotificationHandler(notifier))
	w.Register(models.JobTypeIncidentSummary, incidentSummaryHandler(s, notifier))
	return w
}

// Register associates a job type with a handler. Exposed so tests can
// substitute handlers without rebuilding the whole worker.
func (w *Worker) Register(jobType string, h Handler) {
	w.handlers[jobType] = h
}

// Run blocks, polling for leasable jobs every pollInterval until ctx is
// cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollOnce(ctx)
		}
	}
}

func (w *Worker) pollOnce(ctx context.Context) {
	jobs, err := w.store.LeaseJobs(ctx, w.batchSize)
	if err != nil {
		slog.Error("lease jobs failed", "error", err)
		return
	}
	for _, job := range jobs {
		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *models.Job) {
	_ = w.cache.SetJobStatus(ctx, job.ID, models.JobStatusProcessing, 30*time.Minute)

	handler, ok := w.handlers[job.Type]
	if !ok {
		w.fail(ctx, job, fmt.Sprintf("no handler registered for job type %q", job.Type))
		return
	}

	result, err := runHandler(ctx, handler, job)
	if err != nil {
		w.fail(ctx, job, err.Error())
		return
	}

	if err := w.store.CompleteJob(ctx, job.ID, result); err != nil {
		slog.Error("complete job failed", "job_id", job.ID, "error", err)
		return
	}
	_ = w.cache.SetJobStatus(ctx, job.ID, models.JobStatusCompleted, 30*time.Minute)
}

// runHandler recovers from handler panics so one bad job can't crash the
// polling loop; the panic is reported as a normal job failure.
func runHandler(ctx context.Context, h Handler, job *models.Job) (result json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in handler: %v", r)
		}
	}()
	return h(ctx, job)
}

func (w *Worker) fail(ctx context.Context, job *models.Job, message string) {
	slog.Error("job failed", "job_id", job.ID, "job_type", job.Type, "error", message)
	if err := w.store.FailJob(ctx, job.ID, message); err != nil {
		slog.Error("fail job failed", "job_id", job.ID, "error", err)
		return
	}
	_ = w.cache.SetJobStatus(ctx, job.ID, models.JobStatusFailed, 30*time.Minute)
}
