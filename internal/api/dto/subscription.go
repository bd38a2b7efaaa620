package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gymlane/gymlane/internal/domain/subscription"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
)

// CreateSubscriptionRequest registers a new billing agreement. The subscription
// starts out incomplete; activation is a separate call.
type CreateSubscriptionRequest struct {
	MemberID         string                 `json:"member_id" binding:"required"`
	PlanID           string                 `json:"plan_id" binding:"required"`
	PricingID        string                 `json:"pricing_id" binding:"required"`
	PaymentType      types.PaymentType      `json:"payment_type" binding:"required"`
	CollectionMethod types.CollectionMethod `json:"collection_method"`
	StartDate        *time.Time             `json:"start_date,omitempty"`
	PromoCode        string                 `json:"promo_code,omitempty"`
	ParentID         *string                `json:"parent_id,omitempty"`
	Metadata         types.Metadata         `json:"metadata,omitempty"`
}

func (r *CreateSubscriptionRequest) Validate() error {
	if err := r.PaymentType.Validate(); err != nil {
		return err
	}
	if r.CollectionMethod != "" {
		if err := r.CollectionMethod.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CardActivation charges the member's stored payment method to activate
type CardActivation struct {
	// PaymentMethodID overrides the member's default payment method when set
	PaymentMethodID string `json:"payment_method_id,omitempty"`
}

// CashActivation activates with out-of-band collection: a draft invoice and its
// pending transaction are created, settlement happens at mark-paid
type CashActivation struct {
	Note string `json:"note,omitempty"`
}

// ActivateSubscriptionRequest is a tagged union: exactly one activation variant
// must be present
type ActivateSubscriptionRequest struct {
	Card *CardActivation `json:"card,omitempty"`
	Cash *CashActivation `json:"cash,omitempty"`
}

func (r *ActivateSubscriptionRequest) Validate() error {
	if (r.Card == nil) == (r.Cash == nil) {
		return ierr.NewError("exactly one activation method is required").
			WithHint("Provide either card or cash activation, not both").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// RefundOptions requests a refund alongside an immediate cancellation. A zero
// or missing amount means a full refund of the latest settled charge.
type RefundOptions struct {
	Amount decimal.Decimal `json:"amount,omitempty"`
	Reason string          `json:"reason,omitempty"`
}

// CancelSubscriptionRequest terminates a subscription in one of three modes
type CancelSubscriptionRequest struct {
	Mode     types.CancellationMode `json:"mode" binding:"required"`
	CancelAt *time.Time             `json:"cancel_at,omitempty"`
	Reason   string                 `json:"reason,omitempty"`
	Refund   *RefundOptions         `json:"refund,omitempty"`
}

func (r *CancelSubscriptionRequest) Validate() error {
	if err := r.Mode.Validate(); err != nil {
		return err
	}
	if r.Mode == types.CancellationModeAtDate && r.CancelAt == nil {
		return ierr.NewError("cancel_at is required for at_date cancellation").
			WithHint("Provide the date the subscription should cancel on").
			Mark(ierr.ErrValidation)
	}
	if r.Refund != nil && r.Mode != types.CancellationModeNow {
		return ierr.NewError("refunds are only allowed with immediate cancellation").
			WithHint("Refunds can only accompany a cancel-now request").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// UpdateSubscriptionRequest changes the mutable fields of a subscription. The
// pricing reference, periods, and status are managed by their own operations
// and cannot be set here.
type UpdateSubscriptionRequest struct {
	CollectionMethod *types.CollectionMethod `json:"collection_method,omitempty"`
	MakeUpCredits    *int                    `json:"make_up_credits,omitempty"`
	// CancelAt moves a pending deferred cancellation to a new future date
	CancelAt *time.Time `json:"cancel_at,omitempty"`
	// TrialEnd extends a running trial; it can only move later
	TrialEnd *time.Time     `json:"trial_end,omitempty"`
	Metadata types.Metadata `json:"metadata,omitempty"`
}

func (r *UpdateSubscriptionRequest) Validate() error {
	if r.CollectionMethod != nil {
		if err := r.CollectionMethod.Validate(); err != nil {
			return err
		}
	}
	if r.MakeUpCredits != nil && *r.MakeUpCredits < 0 {
		return ierr.NewError("make up credits must not be negative").
			WithHint("Make up credits must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SubscriptionResponse is the API representation of a subscription
type SubscriptionResponse struct {
	*subscription.Subscription
}

// ListSubscriptionsResponse is a paginated list of subscriptions
type ListSubscriptionsResponse struct {
	Items []*SubscriptionResponse `json:"items"`
	Total int                     `json:"total"`
}
