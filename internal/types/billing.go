package types

import (
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/samber/lo"
)

// BillingInterval is the cadence unit of a pricing
type BillingInterval string

const (
	BillingIntervalDay   BillingInterval = "day"
	BillingIntervalWeek  BillingInterval = "week"
	BillingIntervalMonth BillingInterval = "month"
	BillingIntervalYear  BillingInterval = "year"
)

func (b BillingInterval) String() string {
	return string(b)
}

func (b BillingInterval) Validate() error {
	allowed := []BillingInterval{
		BillingIntervalDay,
		BillingIntervalWeek,
		BillingIntervalMonth,
		BillingIntervalYear,
	}
	if !lo.Contains(allowed, b) {
		return ierr.NewError("invalid billing interval").
			WithHint("Invalid billing interval").
			WithReportableDetails(map[string]any{
				"interval":          b,
				"allowed_intervals": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsCalendarAligned reports whether renewals for this interval/threshold pair
// can be driven by a calendar cron expression. Monthly and yearly cadences with
// a threshold of 1 follow the calendar naturally (short months, leap years);
// everything else is billed on a rolling chain of one-shot jobs.
func (b BillingInterval) IsCalendarAligned(threshold int) bool {
	if threshold != 1 {
		return false
	}
	return b == BillingIntervalMonth || b == BillingIntervalYear
}

// CollectionMethod determines how invoices are collected
type CollectionMethod string

const (
	// charge_automatically attempts a gateway charge against the stored payment
	// method when the invoice is sent
	CollectionMethodChargeAutomatically CollectionMethod = "charge_automatically"
	// send_invoice delivers the invoice and waits for an out of band payment
	CollectionMethodSendInvoice CollectionMethod = "send_invoice"
)

func (c CollectionMethod) String() string {
	return string(c)
}

func (c CollectionMethod) Validate() error {
	allowed := []CollectionMethod{
		CollectionMethodChargeAutomatically,
		CollectionMethodSendInvoice,
	}
	if !lo.Contains(allowed, c) {
		return ierr.NewError("invalid collection method").
			WithHint("Invalid collection method").
			WithReportableDetails(map[string]any{
				"collection_method": c,
				"allowed_values":    allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
