package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gymlane/gymlane/internal/domain/scheduledjob"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
)

var _ scheduledjob.Repository = (*InMemoryScheduledJobStore)(nil)

type InMemoryScheduledJobStore struct {
	mu   sync.Mutex
	jobs map[string]*scheduledjob.ScheduledJob
}

func NewInMemoryScheduledJobStore() *InMemoryScheduledJobStore {
	return &InMemoryScheduledJobStore{jobs: make(map[string]*scheduledjob.ScheduledJob)}
}

// Upsert replaces any existing row with the same id, resetting attempts and
// last_error so re-scheduling revives a cancelled or failed job.
func (s *InMemoryScheduledJobStore) Upsert(ctx context.Context, job *scheduledjob.ScheduledJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *job
	stored.Attempts = 0
	stored.LastError = nil
	s.jobs[job.ID] = &stored
	return nil
}

func (s *InMemoryScheduledJobStore) Get(ctx context.Context, id string) (*scheduledjob.ScheduledJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, ok := s.jobs[id]; ok {
		return job, nil
	}
	return nil, ierr.NewError("scheduled job not found").
		WithHint("Scheduled job not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryScheduledJobStore) Update(ctx context.Context, job *scheduledjob.ScheduledJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; !ok {
		return ierr.NewError("scheduled job not found").
			WithHint("Scheduled job not found").
			Mark(ierr.ErrNotFound)
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *InMemoryScheduledJobStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}

func (s *InMemoryScheduledJobStore) ListDue(ctx context.Context, currentTime time.Time, limit int) ([]*scheduledjob.ScheduledJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*scheduledjob.ScheduledJob
	for _, job := range s.jobs {
		if job.JobStatus != types.ScheduledJobStatusScheduled {
			continue
		}
		if job.NextRunAt == nil || job.NextRunAt.After(currentTime) {
			continue
		}
		due = append(due, job)
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].NextRunAt.Before(*due[j].NextRunAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	// claim the batch like the database does
	for _, job := range due {
		job.JobStatus = types.ScheduledJobStatusRunning
	}
	return due, nil
}

func (s *InMemoryScheduledJobStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = make(map[string]*scheduledjob.ScheduledJob)
}
