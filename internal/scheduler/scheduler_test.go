package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gymlane/gymlane/internal/config"
	"github.com/gymlane/gymlane/internal/domain/scheduledjob"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/logger"
	"github.com/gymlane/gymlane/internal/types"
)

// fakeJobRepo is an in-memory scheduledjob.Repository for exercising the
// client and worker without a database
type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*scheduledjob.ScheduledJob
}

var _ scheduledjob.Repository = (*fakeJobRepo)(nil)

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[string]*scheduledjob.ScheduledJob)}
}

func (r *fakeJobRepo) Upsert(ctx context.Context, job *scheduledjob.ScheduledJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *job
	stored.Attempts = 0
	stored.LastError = nil
	r.jobs[job.ID] = &stored
	return nil
}

func (r *fakeJobRepo) Get(ctx context.Context, id string) (*scheduledjob.ScheduledJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job, ok := r.jobs[id]; ok {
		return job, nil
	}
	return nil, ierr.NewError("scheduled job not found").
		WithHint("Scheduled job not found").
		Mark(ierr.ErrNotFound)
}

func (r *fakeJobRepo) Update(ctx context.Context, job *scheduledjob.ScheduledJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; !ok {
		return ierr.NewError("scheduled job not found").
			WithHint("Scheduled job not found").
			Mark(ierr.ErrNotFound)
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *fakeJobRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
	return nil
}

func (r *fakeJobRepo) ListDue(ctx context.Context, currentTime time.Time, limit int) ([]*scheduledjob.ScheduledJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []*scheduledjob.ScheduledJob
	for _, job := range r.jobs {
		if job.IsDue(currentTime) {
			due = append(due, job)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextRunAt.Before(*due[j].NextRunAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	for _, job := range due {
		job.JobStatus = types.ScheduledJobStatusRunning
	}
	return due, nil
}

func newTestLogger() *logger.Logger {
	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo
	log, err := logger.NewLogger(cfg)
	if err != nil {
		panic(err)
	}
	return log
}
