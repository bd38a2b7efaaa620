package types

import (
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/samber/lo"
)

// ScheduledJobKind selects which handler a scheduled job dispatches to
type ScheduledJobKind string

const (
	ScheduledJobKindRenewal         ScheduledJobKind = "renewal"
	ScheduledJobKindInvoiceReminder ScheduledJobKind = "invoice_reminder"
	ScheduledJobKindInvoiceOverdue  ScheduledJobKind = "invoice_overdue"
	ScheduledJobKindCancellation    ScheduledJobKind = "cancellation"
)

func (k ScheduledJobKind) String() string {
	return string(k)
}

func (k ScheduledJobKind) Validate() error {
	allowed := []ScheduledJobKind{
		ScheduledJobKindRenewal,
		ScheduledJobKindInvoiceReminder,
		ScheduledJobKindInvoiceOverdue,
		ScheduledJobKindCancellation,
	}
	if !lo.Contains(allowed, k) {
		return ierr.NewError("invalid scheduled job kind").
			WithHint("Invalid scheduled job kind").
			WithReportableDetails(map[string]any{
				"kind":          k,
				"allowed_kinds": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ScheduledJobStatus is the execution state of a scheduled job
type ScheduledJobStatus string

const (
	ScheduledJobStatusScheduled ScheduledJobStatus = "scheduled"
	ScheduledJobStatusRunning   ScheduledJobStatus = "running"
	ScheduledJobStatusCompleted ScheduledJobStatus = "completed"
	ScheduledJobStatusFailed    ScheduledJobStatus = "failed"
	ScheduledJobStatusCancelled ScheduledJobStatus = "cancelled"
)

func (s ScheduledJobStatus) String() string {
	return string(s)
}

// IsLive reports whether the job can still fire
func (s ScheduledJobStatus) IsLive() bool {
	return s == ScheduledJobStatusScheduled || s == ScheduledJobStatusRunning
}
