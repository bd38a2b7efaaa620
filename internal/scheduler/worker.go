package scheduler

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/robfig/cron/v3"

	"github.com/gymlane/gymlane/internal/config"
	"github.com/gymlane/gymlane/internal/domain/scheduledjob"
	"github.com/gymlane/gymlane/internal/logger"
	"github.com/gymlane/gymlane/internal/types"
)

const defaultClaimBatchSize = 50

// Handler executes one due job. Returning an error requeues the job with
// backoff until the attempt budget runs out.
type Handler func(ctx context.Context, job *scheduledjob.ScheduledJob) error

// Worker polls the job store for due jobs and dispatches them to registered
// handlers. Claiming happens in the store (scheduled -> running), so multiple
// workers never run the same job concurrently.
type Worker struct {
	repo     scheduledjob.Repository
	logger   *logger.Logger
	cfg      *config.Configuration
	handlers map[types.ScheduledJobKind]Handler
}

func NewWorker(repo scheduledjob.Repository, cfg *config.Configuration, log *logger.Logger) *Worker {
	return &Worker{
		repo:     repo,
		logger:   log,
		cfg:      cfg,
		handlers: make(map[types.ScheduledJobKind]Handler),
	}
}

// RegisterHandler binds a job kind to its executor. Must be called before
// Start; registering a kind twice replaces the previous handler.
func (w *Worker) RegisterHandler(kind types.ScheduledJobKind, handler Handler) {
	w.handlers[kind] = handler
}

// Start runs the poll loop until the context is cancelled
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Scheduler.PollInterval)
	defer ticker.Stop()

	w.logger.Infow("scheduler worker started", "poll_interval", w.cfg.Scheduler.PollInterval)
	for {
		select {
		case <-ctx.Done():
			w.logger.Infow("scheduler worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	jobs, err := w.repo.ListDue(ctx, time.Now().UTC(), defaultClaimBatchSize)
	if err != nil {
		w.logger.Errorw("failed to claim due jobs", "error", err)
		return
	}
	for _, job := range jobs {
		w.runJob(ctx, job)
	}
}

func (w *Worker) runJob(ctx context.Context, job *scheduledjob.ScheduledJob) {
	runCtx, cancel := context.WithTimeout(ctx, w.cfg.Scheduler.OperationTimeout)
	defer cancel()

	handler, ok := w.handlers[job.Kind]
	if !ok {
		w.logger.Errorw("no handler registered for job kind", "job_id", job.ID, "kind", job.Kind)
		w.markFailed(ctx, job, "no handler registered")
		return
	}

	now := time.Now().UTC()
	job.LastRunAt = &now
	job.Attempts++

	if err := handler(runCtx, job); err != nil {
		w.logger.Errorw("job execution failed",
			"job_id", job.ID,
			"kind", job.Kind,
			"attempt", job.Attempts,
			"error", err)
		w.requeue(ctx, job, err)
		return
	}

	w.logger.Infow("job completed", "job_id", job.ID, "kind", job.Kind)
	job.LastError = nil

	if job.IsRecurring() {
		schedule, err := cron.ParseStandard(*job.CronExpr)
		if err != nil {
			w.markFailed(ctx, job, "invalid cron expression: "+err.Error())
			return
		}
		next := schedule.Next(now)
		job.NextRunAt = &next
		job.JobStatus = types.ScheduledJobStatusScheduled
		job.Attempts = 0
	} else {
		job.NextRunAt = nil
		job.JobStatus = types.ScheduledJobStatusCompleted
	}

	if err := w.repo.Update(ctx, job); err != nil {
		w.logger.Errorw("failed to persist job result", "job_id", job.ID, "error", err)
	}
}

// requeue pushes the job back with exponential backoff, or marks it failed
// once the attempt budget is exhausted
func (w *Worker) requeue(ctx context.Context, job *scheduledjob.ScheduledJob, runErr error) {
	if job.Attempts >= w.cfg.Scheduler.MaxAttempts {
		w.markFailed(ctx, job, runErr.Error())
		return
	}

	next := time.Now().UTC().Add(retryDelay(job.Attempts))
	msg := runErr.Error()
	job.LastError = &msg
	job.NextRunAt = &next
	job.JobStatus = types.ScheduledJobStatusScheduled

	if err := w.repo.Update(ctx, job); err != nil {
		w.logger.Errorw("failed to requeue job", "job_id", job.ID, "error", err)
	}
}

func (w *Worker) markFailed(ctx context.Context, job *scheduledjob.ScheduledJob, reason string) {
	job.LastError = &reason
	job.NextRunAt = nil
	job.JobStatus = types.ScheduledJobStatusFailed

	if err := w.repo.Update(ctx, job); err != nil {
		w.logger.Errorw("failed to mark job failed", "job_id", job.ID, "error", err)
	}
}

// retryDelay returns the wait before the given attempt's retry
func retryDelay(attempts int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 30 * time.Second
	b.MaxInterval = 30 * time.Minute
	b.RandomizationFactor = 0
	// the constructor seeds the current interval from the defaults, so it has
	// to be re-seeded after the fields change
	b.Reset()

	delay := b.NextBackOff()
	for i := 1; i < attempts; i++ {
		delay = b.NextBackOff()
	}
	return delay
}
