package types

import (
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/samber/lo"
)

// SubscriptionStatus is the status of a subscription
// Taking inspiration from Stripe's subscription statuses
// https://stripe.com/docs/api/subscriptions/object#subscription_object-status
type SubscriptionStatus string

const (
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusPaused            SubscriptionStatus = "paused"
	SubscriptionStatusCancelled         SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) Validate() error {
	allowed := []SubscriptionStatus{
		SubscriptionStatusIncomplete,
		SubscriptionStatusIncompleteExpired,
		SubscriptionStatusTrialing,
		SubscriptionStatusActive,
		SubscriptionStatusPastDue,
		SubscriptionStatusUnpaid,
		SubscriptionStatusPaused,
		SubscriptionStatusCancelled,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid subscription status").
			WithHint("Invalid subscription status").
			WithReportableDetails(map[string]any{
				"status":         s,
				"allowed_status": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsTerminal reports whether the status is absorbing. A cancelled or
// incomplete_expired subscription never transitions again; reactivation
// requires a new subscription record.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusCancelled || s == SubscriptionStatusIncompleteExpired
}

// PaymentType is how a subscription or invoice is settled
type PaymentType string

const (
	PaymentTypeCash   PaymentType = "cash"
	PaymentTypeCard   PaymentType = "card"
	PaymentTypeBank   PaymentType = "bank"
	PaymentTypeWallet PaymentType = "wallet"
)

func (p PaymentType) String() string {
	return string(p)
}

func (p PaymentType) Validate() error {
	allowed := []PaymentType{
		PaymentTypeCash,
		PaymentTypeCard,
		PaymentTypeBank,
		PaymentTypeWallet,
	}
	if !lo.Contains(allowed, p) {
		return ierr.NewError("invalid payment type").
			WithHint("Invalid payment type").
			WithReportableDetails(map[string]any{
				"payment_type":  p,
				"allowed_types": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// RequiresGateway reports whether settling this payment type moves money
// through the external processor
func (p PaymentType) RequiresGateway() bool {
	return p == PaymentTypeCard || p == PaymentTypeBank
}

// CancellationMode selects how a subscription cancel takes effect
type CancellationMode string

const (
	CancellationModeNow         CancellationMode = "now"
	CancellationModeEndOfPeriod CancellationMode = "end_of_period"
	CancellationModeAtDate      CancellationMode = "at_date"
)

func (c CancellationMode) String() string {
	return string(c)
}

func (c CancellationMode) Validate() error {
	allowed := []CancellationMode{
		CancellationModeNow,
		CancellationModeEndOfPeriod,
		CancellationModeAtDate,
	}
	if !lo.Contains(allowed, c) {
		return ierr.NewError("invalid cancellation mode").
			WithHint("Invalid cancellation mode").
			WithReportableDetails(map[string]any{
				"mode":          c,
				"allowed_modes": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
