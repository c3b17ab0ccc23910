// Package worker runs the extraction job loop: poll the store for queued
// jobs, claim one with a conditional update, extract memory units from the
// referenced media asset, persist them idempotently, and finalize the job.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/heirloom-app/heirloom-go/internal/extract"
	"github.com/heirloom-app/heirloom-go/internal/metrics"
	"github.com/heirloom-app/heirloom-go/internal/models"
)

// Store is the subset of database operations the worker needs.
type Store interface {
	NextQueuedJob(ctx context.Context) (*models.Job, error)
	ClaimJob(ctx context.Context, id surrealmodels.RecordID) (*models.Job, error)
	CompleteJob(ctx context.Context, id surrealmodels.RecordID) error
	FailJob(ctx context.Context, id surrealmodels.RecordID, detail string) error
	GetMediaAsset(ctx context.Context, id surrealmodels.RecordID) (*models.MediaAsset, error)
	MemoryUnitsByAsset(ctx context.Context, assetID surrealmodels.RecordID) ([]models.MemoryUnit, error)
	CreateMemoryUnit(ctx context.Context, in models.MemoryUnitInput) (*models.MemoryUnit, error)
	CreateCitation(ctx context.Context, in models.CitationInput) (*models.Citation, error)
	HasCitation(ctx context.Context, unitID surrealmodels.RecordID) (bool, error)
}

// ObjectStore is the subset of object storage operations the worker needs.
type ObjectStore interface {
	Head(ctx context.Context, key string) (int64, error)
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// JobError is a domain validation failure: expected, logged at warning level,
// and recorded verbatim as the job's error detail. Anything else that escapes
// job handling is treated as unexpected and logged at error level.
type JobError struct {
	Detail string
}

func (e *JobError) Error() string { return e.Detail }

func failf(format string, args ...any) error {
	return &JobError{Detail: fmt.Sprintf(format, args...)}
}

// Options configures a Worker.
type Options struct {
	PollInterval   time.Duration
	MaxObjectBytes int64
	Logger         *slog.Logger
	Metrics        *metrics.Collector
}

// Worker owns the poll/claim/process/finalize loop. One instance runs a
// single background goroutine; multiple processes may run workers against the
// same store, coordinated solely by the conditional claim update.
type Worker struct {
	store      Store
	objects    ObjectStore
	extractors *extract.Set

	pollInterval   time.Duration
	maxObjectBytes int64
	logger         *slog.Logger
	metrics        *metrics.Collector

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a worker. Zero option fields fall back to production defaults.
func New(store Store, objects ObjectStore, extractors *extract.Set, opts Options) *Worker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 3 * time.Second
	}
	if opts.MaxObjectBytes <= 0 {
		opts.MaxObjectBytes = 500 * 1024 * 1024
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Worker{
		store:          store,
		objects:        objects,
		extractors:     extractors,
		pollInterval:   opts.PollInterval,
		maxObjectBytes: opts.MaxObjectBytes,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
	}
}

// Start launches the background loop. Calling Start on a running worker is a
// no-op.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(ctx, w.done)
}

// Stop signals the loop to exit and waits, bounded by timeout, for any
// in-flight job attempt to finish. A claimed job is never cancelled mid-way;
// it runs to a terminal status or the process exits.
func (w *Worker) Stop(timeout time.Duration) {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-done:
	case <-time.After(timeout):
		w.logger.Warn("worker stop timed out with a job attempt still in flight")
	}
}

// run closes over its own done channel so a loop that outlives a timed-out
// Stop cannot close the channel belonging to a later Start.
func (w *Worker) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	w.logger.Info("extraction worker started", "poll_interval", w.pollInterval)

	for {
		if ctx.Err() != nil {
			w.logger.Info("extraction worker stopped")
			return
		}

		processed, err := w.ProcessNextJob(ctx)
		if err != nil {
			// A single bad iteration never kills the loop.
			w.logger.Error("unexpected error in extraction worker", "error", err)
		}
		if processed && err == nil {
			// Drain the queue without sleeping between jobs.
			continue
		}

		select {
		case <-ctx.Done():
			w.logger.Info("extraction worker stopped")
			return
		case <-time.After(w.pollInterval):
		}
	}
}

// ProcessNextJob attempts to claim and process a single queued job. It
// returns false when no job was available or the claim was lost to another
// worker. Errors from job handling are recorded on the job, not returned;
// only poll/claim failures surface as errors.
func (w *Worker) ProcessNextJob(ctx context.Context) (bool, error) {
	job, err := w.store.NextQueuedJob(ctx)
	if err != nil {
		return false, fmt.Errorf("poll queued jobs: %w", err)
	}
	if job == nil {
		return false, nil
	}

	claimed, err := w.store.ClaimJob(ctx, job.ID)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	if claimed == nil {
		// Another worker won the race; treat as "no job" this iteration.
		return false, nil
	}

	start := time.Now()
	jobID := models.RecordIDFull(claimed.ID)
	w.logger.Info("processing job", "job", jobID, "attempt", claimed.Attempt)

	if err := w.handleJob(ctx, claimed); err != nil {
		var jerr *JobError
		if errors.As(err, &jerr) {
			w.logger.Warn("job failed", "job", jobID, "detail", jerr.Detail)
			w.markFailed(ctx, claimed, jerr.Detail)
		} else {
			w.logger.Error("job failed", "job", jobID, "error", err)
			w.markFailed(ctx, claimed, fmt.Sprintf("Unexpected error: %v", err))
		}
	} else {
		w.logger.Info("job done", "job", jobID, "elapsed", time.Since(start))
	}
	w.metrics.Observe(metrics.OpJobProcess, time.Since(start))
	return true, nil
}

// handleJob validates and processes one claimed job, failing closed at every
// gate.
func (w *Worker) handleJob(ctx context.Context, job *models.Job) error {
	asset, err := w.store.GetMediaAsset(ctx, job.MediaAssetID)
	if err != nil {
		return fmt.Errorf("load media asset: %w", err)
	}
	if asset == nil {
		return &JobError{Detail: "Missing media asset"}
	}

	if !extract.IsSupported(asset.MimeType) {
		return failf("Unsupported mime type: %s", asset.MimeType)
	}

	if err := w.ensureObjectOK(ctx, asset); err != nil {
		return err
	}

	var content []byte
	if extract.ParseFamily(asset.MimeType) == extract.FamilyText {
		content, err = w.objects.GetBytes(ctx, asset.FileName)
		if err != nil {
			return fmt.Errorf("read text object: %w", err)
		}
	}

	result, err := w.extractors.Extract(asset, content)
	if err != nil {
		if errors.Is(err, extract.ErrMissingDuration) {
			return &JobError{Detail: "Missing duration_seconds"}
		}
		return fmt.Errorf("extract: %w", err)
	}
	if len(result.Units) == 0 {
		return &JobError{Detail: "No memory units produced"}
	}

	inserted, existing, err := w.persistResults(ctx, asset, result)
	if err != nil {
		return fmt.Errorf("persist memory units: %w", err)
	}
	// Guards against the persistence layer silently no-op-ing on a first run.
	if inserted == 0 && existing == 0 {
		return &JobError{Detail: "No memory units written"}
	}

	if err := w.store.CompleteJob(ctx, job.ID); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// ensureObjectOK verifies the stored object's actual size against the hard
// ceiling. Oversized objects are deleted before the job is failed, so the
// blob is not silently retained.
func (w *Worker) ensureObjectOK(ctx context.Context, asset *models.MediaAsset) error {
	if asset.FileName == "" {
		return &JobError{Detail: "Missing object key"}
	}

	size, err := w.objects.Head(ctx, asset.FileName)
	if err != nil {
		return fmt.Errorf("head object: %w", err)
	}
	if size > w.maxObjectBytes {
		if err := w.objects.Delete(ctx, asset.FileName); err != nil {
			w.logger.Warn("failed to delete oversized object", "key", asset.FileName, "error", err)
		}
		return failf("File exceeds %d MB limit", w.maxObjectBytes/(1024*1024))
	}
	return nil
}

func (w *Worker) markFailed(ctx context.Context, job *models.Job, detail string) {
	if err := w.store.FailJob(ctx, job.ID, detail); err != nil {
		w.logger.Error("failed to record job failure", "job", models.RecordIDFull(job.ID), "error", err)
	}
}
