package postgres

import (
	"context"
	"time"

	"github.com/gymlane/gymlane/internal/domain/scheduledjob"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/logger"
	"github.com/gymlane/gymlane/internal/postgres"
	"github.com/gymlane/gymlane/internal/types"
)

type scheduledJobRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewScheduledJobRepository(db *postgres.DB, logger *logger.Logger) scheduledjob.Repository {
	return &scheduledJobRepository{db: db, logger: logger}
}

// Upsert inserts the job or replaces the row with the same deterministic id.
// The conflict branch resets attempts and status, so re-scheduling revives a
// cancelled or failed job with a clean slate.
func (r *scheduledJobRepository) Upsert(ctx context.Context, job *scheduledjob.ScheduledJob) error {
	query := `
		INSERT INTO scheduled_jobs (
			id,
			kind,
			payload,
			run_at,
			cron_expr,
			job_status,
			attempts,
			last_error,
			last_run_at,
			next_run_at,
			tenant_id,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:id,
			:kind,
			:payload,
			:run_at,
			:cron_expr,
			:job_status,
			:attempts,
			:last_error,
			:last_run_at,
			:next_run_at,
			:tenant_id,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			payload = EXCLUDED.payload,
			run_at = EXCLUDED.run_at,
			cron_expr = EXCLUDED.cron_expr,
			job_status = EXCLUDED.job_status,
			attempts = EXCLUDED.attempts,
			last_error = NULL,
			next_run_at = EXCLUDED.next_run_at,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by
	`

	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to upsert scheduled job").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *scheduledJobRepository) Get(ctx context.Context, id string) (*scheduledjob.ScheduledJob, error) {
	query := `SELECT * FROM scheduled_jobs WHERE id = :id`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"id": id,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get scheduled job").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("scheduled job not found").
			WithHint("Scheduled job not found").
			WithReportableDetails(map[string]any{"job_id": id}).
			Mark(ierr.ErrNotFound)
	}

	var job scheduledjob.ScheduledJob
	if err := rows.StructScan(&job); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan scheduled job").
			Mark(ierr.ErrDatabase)
	}
	return &job, nil
}

func (r *scheduledJobRepository) Update(ctx context.Context, job *scheduledjob.ScheduledJob) error {
	job.UpdatedAt = time.Now().UTC()
	job.UpdatedBy = types.GetUserID(ctx)

	query := `
		UPDATE scheduled_jobs
		SET
			job_status = :job_status,
			attempts = :attempts,
			last_error = :last_error,
			last_run_at = :last_run_at,
			next_run_at = :next_run_at,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id
	`

	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update scheduled job").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

// Delete removes the job outright. Deleting a job that does not exist is a
// no-op: cancellation sweeps fire for jobs that may never have been scheduled.
func (r *scheduledJobRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM scheduled_jobs WHERE id = :id`

	if _, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id": id,
	}); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to delete scheduled job").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

// ListDue claims due jobs by flipping them to running in the same statement
// that selects them. Concurrent pollers racing over the same rows each claim a
// disjoint set; FOR UPDATE SKIP LOCKED keeps them from blocking each other.
func (r *scheduledJobRepository) ListDue(ctx context.Context, currentTime time.Time, limit int) ([]*scheduledjob.ScheduledJob, error) {
	query := `
		UPDATE scheduled_jobs
		SET
			job_status = :running,
			updated_at = :updated_at
		WHERE id IN (
			SELECT id FROM scheduled_jobs
			WHERE
				job_status = :scheduled AND
				next_run_at IS NOT NULL AND
				next_run_at <= :current_time
			ORDER BY next_run_at ASC
			LIMIT :limit
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *
	`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"running":      types.ScheduledJobStatusRunning,
		"updated_at":   time.Now().UTC(),
		"scheduled":    types.ScheduledJobStatusScheduled,
		"current_time": currentTime,
		"limit":        limit,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to claim due scheduled jobs").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var jobs []*scheduledjob.ScheduledJob
	for rows.Next() {
		var job scheduledjob.ScheduledJob
		if err := rows.StructScan(&job); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan scheduled job").
				Mark(ierr.ErrDatabase)
		}
		jobs = append(jobs, &job)
	}
	return jobs, nil
}
