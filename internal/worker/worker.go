// Package worker implements the background job execution loop.
package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/qnote/auto-import/internal/crawler"
	"github.com/qnote/auto-import/internal/progress"
)

// Runner executes a crawl request. *scraper.Scraper satisfies it.
type Runner interface {
	Crawl(ctx context.Context, req crawler.CrawlRequest) ([]crawler.Book, error)
}

// Worker consumes queue items and executes the crawl pipeline. It is
// the sole writer of the job records it processes.
type Worker struct {
	queue    crawler.Queue
	jobStore crawler.JobStore
	runner   Runner
	emitter  progress.Emitter
	clock    crawler.Clock
	logger   *zap.Logger
}

// New constructs a Worker. The emitter may be nil.
func New(
	queue crawler.Queue,
	jobStore crawler.JobStore,
	runner Runner,
	emitter progress.Emitter,
	clock crawler.Clock,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:    queue,
		jobStore: jobStore,
		runner:   runner,
		emitter:  emitter,
		clock:    clock,
		logger:   logger,
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		w.processJob(ctx, item)
	}
}

func (w *Worker) processJob(ctx context.Context, item crawler.QueueItem) {
	if err := w.jobStore.UpdateJobStatus(ctx, item.JobID, crawler.JobStatusRunning, ""); err != nil {
		w.logger.Error("update job status failed", zap.String("job_id", item.JobID), zap.Error(err))
		return
	}
	w.emit(item.JobID, progress.StageJobStart, "")

	books, err := w.runCrawl(ctx, item)
	if err != nil {
		w.logger.Warn("job crawl failed", zap.String("job_id", item.JobID), zap.Error(err))
		w.finish(ctx, item.JobID, crawler.JobStatusError, err.Error())
		return
	}

	if err := w.jobStore.SetJobResult(ctx, item.JobID, books); err != nil {
		w.logger.Error("set job result failed", zap.String("job_id", item.JobID), zap.Error(err))
		w.finish(ctx, item.JobID, crawler.JobStatusError, err.Error())
		return
	}
	if err := w.jobStore.UpdateJobProgress(ctx, item.JobID, 100); err != nil {
		w.logger.Error("final progress update failed", zap.String("job_id", item.JobID), zap.Error(err))
	}
	w.finish(ctx, item.JobID, crawler.JobStatusDone, "")
}

// runCrawl executes the crawl with per-book progress updates, turning
// panics into job errors rather than crashing the worker.
func (w *Worker) runCrawl(ctx context.Context, item crawler.QueueItem) (books []crawler.Book, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			w.logger.Error("crawl panicked", zap.String("job_id", item.JobID), zap.Any("panic", rec))
			books, err = nil, fmt.Errorf("crawl panicked: %v", rec)
		}
	}()

	req := item.Request
	req.OnBook = func(_ crawler.Book, completed, total int) {
		if total <= 0 {
			return
		}
		pct := completed * 100 / total
		if updateErr := w.jobStore.UpdateJobProgress(ctx, item.JobID, pct); updateErr != nil {
			w.logger.Warn("progress update failed", zap.String("job_id", item.JobID), zap.Error(updateErr))
		}
	}
	return w.runner.Crawl(ctx, req)
}

func (w *Worker) finish(ctx context.Context, jobID string, status crawler.JobStatus, errText string) {
	if err := w.jobStore.UpdateJobStatus(ctx, jobID, status, errText); err != nil {
		w.logger.Error("final job status update failed", zap.String("job_id", jobID), zap.Error(err))
	}
	switch status {
	case crawler.JobStatusDone:
		w.emit(jobID, progress.StageJobDone, "")
	case crawler.JobStatusError:
		w.emit(jobID, progress.StageJobError, errText)
	}
}

func (w *Worker) emit(jobID string, stage progress.Stage, note string) {
	if w.emitter == nil {
		return
	}
	w.emitter.Emit(progress.Event{
		JobID: jobID,
		TS:    w.clock.Now(),
		Stage: stage,
		Note:  note,
	})
}
