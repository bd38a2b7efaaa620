package scheduledjob

import (
	"context"
	"time"
)

// Repository defines the interface for scheduled job persistence operations
type Repository interface {
	// Upsert creates the job or replaces an existing row with the same id.
	// Replacing resets attempts and status so re-scheduling revives a
	// cancelled or failed job.
	Upsert(ctx context.Context, job *ScheduledJob) error

	// Get retrieves a scheduled job by ID
	Get(ctx context.Context, id string) (*ScheduledJob, error)

	// Update updates an existing scheduled job
	Update(ctx context.Context, job *ScheduledJob) error

	// Delete removes a scheduled job; deleting a missing job is not an error
	Delete(ctx context.Context, id string) error

	// ListDue retrieves live jobs whose next run time has passed, claiming
	// them for execution by flipping their status to running
	ListDue(ctx context.Context, currentTime time.Time, limit int) ([]*ScheduledJob, error)
}
