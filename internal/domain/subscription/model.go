package subscription

import (
	"time"

	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
)

// Subscription is a recurring or one-off billing agreement between a member and
// a location for a given plan/pricing.
type Subscription struct {
	ID         string `db:"id" json:"id"`
	MemberID   string `db:"member_id" json:"member_id"`
	LocationID string `db:"location_id" json:"location_id"`
	PlanID     string `db:"plan_id" json:"plan_id"`
	PricingID  string `db:"pricing_id" json:"pricing_id"`
	// ParentID links family-plan children to the paying parent subscription
	ParentID *string `db:"parent_id" json:"parent_id,omitempty"`

	SubscriptionStatus types.SubscriptionStatus `db:"subscription_status" json:"subscription_status"`
	PaymentType        types.PaymentType        `db:"payment_type" json:"payment_type"`
	CollectionMethod   types.CollectionMethod   `db:"collection_method" json:"collection_method"`

	StartDate          time.Time  `db:"start_date" json:"start_date"`
	CurrentPeriodStart time.Time  `db:"current_period_start" json:"current_period_start"`
	CurrentPeriodEnd   time.Time  `db:"current_period_end" json:"current_period_end"`
	TrialEnd           *time.Time `db:"trial_end" json:"trial_end,omitempty"`
	CancelAt           *time.Time `db:"cancel_at" json:"cancel_at,omitempty"`
	CancelAtPeriodEnd  bool       `db:"cancel_at_period_end" json:"cancel_at_period_end"`
	CancelledAt        *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	EndedAt            *time.Time `db:"ended_at" json:"ended_at,omitempty"`

	// MakeUpCredits is the usage-limited carryover credit balance granted per
	// renewed period by the plan policy
	MakeUpCredits int `db:"make_up_credits" json:"make_up_credits"`

	PromoSnapshot *types.PromoSnapshot      `db:"promo_snapshot" json:"promo_snapshot,omitempty"`
	Cancellation  *types.CancellationRecord `db:"cancellation" json:"cancellation,omitempty"`
	Metadata      types.Metadata            `db:"metadata" json:"metadata,omitempty"`

	types.BaseModel
}

func (s *Subscription) Validate() error {
	if err := s.SubscriptionStatus.Validate(); err != nil {
		return err
	}
	if err := s.PaymentType.Validate(); err != nil {
		return err
	}
	if s.CurrentPeriodEnd.Before(s.CurrentPeriodStart) {
		return ierr.NewError("current period end before period start").
			WithHint("Billing period end must not precede its start").
			WithReportableDetails(map[string]any{
				"current_period_start": s.CurrentPeriodStart,
				"current_period_end":   s.CurrentPeriodEnd,
			}).
			Mark(ierr.ErrValidation)
	}
	if s.CancelAtPeriodEnd {
		if s.CancelAt == nil || !s.CancelAt.Equal(s.CurrentPeriodEnd) {
			return ierr.NewError("cancel_at_period_end requires cancel_at == current_period_end").
				WithHint("End of period cancellation must target the current period boundary").
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// IsInTrial reports whether the subscription is still inside its trial window
func (s *Subscription) IsInTrial(now time.Time) bool {
	return s.TrialEnd != nil && now.Before(*s.TrialEnd)
}

// CanTransitionTo guards the state machine. Terminal states absorb; a cancelled
// subscription never re-enters active without a new subscription record.
func (s *Subscription) CanTransitionTo(target types.SubscriptionStatus) bool {
	if s.SubscriptionStatus.IsTerminal() {
		return false
	}
	if target.IsTerminal() {
		return true
	}
	switch s.SubscriptionStatus {
	case types.SubscriptionStatusIncomplete:
		return target == types.SubscriptionStatusTrialing || target == types.SubscriptionStatusActive
	case types.SubscriptionStatusTrialing:
		return target == types.SubscriptionStatusActive || target == types.SubscriptionStatusPaused
	case types.SubscriptionStatusActive:
		return target == types.SubscriptionStatusPaused ||
			target == types.SubscriptionStatusPastDue ||
			target == types.SubscriptionStatusUnpaid
	case types.SubscriptionStatusPaused:
		return target == types.SubscriptionStatusActive || target == types.SubscriptionStatusTrialing
	case types.SubscriptionStatusPastDue:
		return target == types.SubscriptionStatusActive || target == types.SubscriptionStatusUnpaid
	case types.SubscriptionStatusUnpaid:
		return target == types.SubscriptionStatusActive
	default:
		return false
	}
}

// HasUnappliedPromo reports whether a snapshotted discount is still waiting for
// its first settled charge
func (s *Subscription) HasUnappliedPromo() bool {
	return s.PromoSnapshot != nil && !s.PromoSnapshot.Applied
}

// DiscountForCharge returns the snapshotted discount when it still applies to
// the given cycle number (1-based since activation)
func (s *Subscription) DiscountForCharge(cycle int) *types.PromoSnapshot {
	if s.PromoSnapshot == nil {
		return nil
	}
	if cycle > s.PromoSnapshot.DurationMonths {
		return nil
	}
	return s.PromoSnapshot
}
