package scheduledjob

import (
	"encoding/json"
	"time"

	"github.com/gymlane/gymlane/internal/types"
)

// ScheduledJob is a persisted background job. The ID is deterministic, derived
// from the subscription/invoice it serves, so scheduling twice is an upsert and
// cancellation is a lookup-and-remove. A job carries either RunAt (one-shot) or
// CronExpr (calendar-aligned recurring), never both.
type ScheduledJob struct {
	ID      string                 `db:"id" json:"id"`
	Kind    types.ScheduledJobKind `db:"kind" json:"kind"`
	Payload json.RawMessage        `db:"payload" json:"payload"`

	RunAt    *time.Time `db:"run_at" json:"run_at,omitempty"`
	CronExpr *string    `db:"cron_expr" json:"cron_expr,omitempty"`

	JobStatus types.ScheduledJobStatus `db:"job_status" json:"job_status"`
	Attempts  int                      `db:"attempts" json:"attempts"`
	LastError *string                  `db:"last_error" json:"last_error,omitempty"`
	LastRunAt *time.Time               `db:"last_run_at" json:"last_run_at,omitempty"`
	NextRunAt *time.Time               `db:"next_run_at" json:"next_run_at,omitempty"`

	types.BaseModel
}

// IsDue checks if the job is due for execution
func (j *ScheduledJob) IsDue(currentTime time.Time) bool {
	if !j.JobStatus.IsLive() {
		return false
	}
	if j.NextRunAt == nil {
		return false
	}
	return !currentTime.Before(*j.NextRunAt)
}

// IsRecurring reports whether the job reschedules itself from a cron expression
func (j *ScheduledJob) IsRecurring() bool {
	return j.CronExpr != nil && *j.CronExpr != ""
}

// DecodePayload unmarshals the payload into dest
func (j *ScheduledJob) DecodePayload(dest any) error {
	if len(j.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(j.Payload, dest)
}
