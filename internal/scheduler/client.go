package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gymlane/gymlane/internal/domain/scheduledjob"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/logger"
	"github.com/gymlane/gymlane/internal/types"
)

// ScheduleRequest describes a job to be created or replaced. Exactly one of
// RunAt and CronExpr must be set: RunAt for a one-shot job, CronExpr for a
// calendar-aligned recurring one.
type ScheduleRequest struct {
	ID       string
	Kind     types.ScheduledJobKind
	Payload  any
	RunAt    *time.Time
	CronExpr *string
}

// Client is the scheduling surface handed to the billing services. Services
// depend on this interface, never on the job store directly, so tests can
// substitute an in-memory recorder.
type Client interface {
	// Schedule creates the job, or replaces an existing job with the same id
	Schedule(ctx context.Context, req *ScheduleRequest) error
	// Cancel removes a job; cancelling an unknown id is a no-op
	Cancel(ctx context.Context, jobID string) error
	// Lookup returns the job or a not-found error
	Lookup(ctx context.Context, jobID string) (*scheduledjob.ScheduledJob, error)
}

type client struct {
	repo   scheduledjob.Repository
	logger *logger.Logger
}

func NewClient(repo scheduledjob.Repository, log *logger.Logger) Client {
	return &client{repo: repo, logger: log}
}

func (c *client) Schedule(ctx context.Context, req *ScheduleRequest) error {
	if req.ID == "" {
		return ierr.NewError("job id is required").
			WithHint("Scheduled job id must not be empty").
			Mark(ierr.ErrValidation)
	}
	if (req.RunAt == nil) == (req.CronExpr == nil) {
		return ierr.NewError("job needs exactly one of run_at and cron_expr").
			WithHint("A job is either one-shot or recurring, not both").
			Mark(ierr.ErrValidation)
	}

	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode job payload").
			Mark(ierr.ErrSchedulingFailure)
	}

	job := &scheduledjob.ScheduledJob{
		ID:        req.ID,
		Kind:      req.Kind,
		Payload:   payload,
		RunAt:     req.RunAt,
		CronExpr:  req.CronExpr,
		JobStatus: types.ScheduledJobStatusScheduled,
		BaseModel: types.GetDefaultBaseModel(ctx),
	}

	if req.RunAt != nil {
		runAt := *req.RunAt
		job.NextRunAt = &runAt
	} else {
		schedule, err := cron.ParseStandard(*req.CronExpr)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Invalid cron expression").
				WithReportableDetails(map[string]any{"cron_expr": *req.CronExpr}).
				Mark(ierr.ErrSchedulingFailure)
		}
		next := schedule.Next(time.Now().UTC())
		job.NextRunAt = &next
	}

	if err := c.repo.Upsert(ctx, job); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to schedule job").
			WithReportableDetails(map[string]any{"job_id": req.ID}).
			Mark(ierr.ErrSchedulingFailure)
	}

	c.logger.Debugw("scheduled job", "job_id", job.ID, "kind", job.Kind, "next_run_at", job.NextRunAt)
	return nil
}

func (c *client) Cancel(ctx context.Context, jobID string) error {
	if err := c.repo.Delete(ctx, jobID); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to cancel job").
			WithReportableDetails(map[string]any{"job_id": jobID}).
			Mark(ierr.ErrSchedulingFailure)
	}
	return nil
}

func (c *client) Lookup(ctx context.Context, jobID string) (*scheduledjob.ScheduledJob, error) {
	return c.repo.Get(ctx, jobID)
}
