package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gymlane/gymlane/internal/domain/location"
	"github.com/gymlane/gymlane/internal/domain/plan"
	"github.com/gymlane/gymlane/internal/domain/pricing"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
)

// BillingService owns the pure billing math: period boundaries, trial and
// expiry resolution, and the charge breakdown. It never writes; the other
// services call into it and persist the results.
type BillingService interface {
	ResolveSchedule(pricing *pricing.Pricing, plan *plan.Plan, start time.Time) (*BillingSchedule, error)
	ComputeCharge(ctx context.Context, in *ChargeInput) (*ChargeBreakdown, error)
}

// BillingSchedule is the resolved timeline of a new subscription
type BillingSchedule struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	// TrialEnd is set when the plan grants trial days; the first period then
	// spans the trial and the first charge happens at trial end
	TrialEnd *time.Time
	// CancelAt is derived from the pricing's expire interval when configured
	CancelAt *time.Time
}

// ChargeInput names everything the charge math needs
type ChargeInput struct {
	Pricing  *pricing.Pricing
	Location *location.Location
	// Promo is the subscription's frozen discount, nil when none applies
	Promo *types.PromoSnapshot
	// Cycle is the 1-based charge number since activation, used to expire
	// repeating discounts
	Cycle int
	// FirstCharge selects the downpayment amount when the pricing has one
	FirstCharge bool
}

// ChargeBreakdown is the computed charge. Total is never negative.
type ChargeBreakdown struct {
	Currency string
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Fee      decimal.Decimal
	Total    decimal.Decimal
}

type billingService struct {
	ServiceParams
}

func NewBillingService(params ServiceParams) BillingService {
	return &billingService{ServiceParams: params}
}

func (s *billingService) ResolveSchedule(pr *pricing.Pricing, pl *plan.Plan, start time.Time) (*BillingSchedule, error) {
	schedule := &BillingSchedule{PeriodStart: start}

	if pl.TrialDays > 0 {
		trialEnd := start.AddDate(0, 0, pl.TrialDays)
		schedule.TrialEnd = &trialEnd
		// the trial spans the first period; the first charge lands at trial end
		schedule.PeriodEnd = trialEnd
	} else {
		periodEnd, err := types.NextBillingDate(start, pr.IntervalThreshold, pr.Interval)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Invalid billing cadence").
				Mark(ierr.ErrValidation)
		}
		schedule.PeriodEnd = periodEnd
	}

	if pr.ExpireInterval != nil && pr.ExpireThreshold != nil {
		cancelAt, err := types.NextBillingDate(start, *pr.ExpireThreshold, *pr.ExpireInterval)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Invalid expiry cadence").
				Mark(ierr.ErrValidation)
		}
		schedule.CancelAt = &cancelAt
	}

	return schedule, nil
}

// ComputeCharge derives the amount to collect: the pricing amount (or the
// downpayment on the first charge), minus the discount while it still applies,
// plus tax on the discounted base, plus the processing fee when the location
// passes it through to members.
func (s *billingService) ComputeCharge(_ context.Context, in *ChargeInput) (*ChargeBreakdown, error) {
	if in.Pricing == nil || in.Location == nil {
		return nil, ierr.NewError("pricing and location are required").
			WithHint("Charge computation requires pricing and location").
			Mark(ierr.ErrValidation)
	}

	subtotal := in.Pricing.Amount
	if in.FirstCharge {
		subtotal = in.Pricing.FirstChargeAmount()
	}

	discount := decimal.Zero
	if in.Promo != nil && in.Cycle <= in.Promo.DurationMonths {
		discount = in.Promo.DiscountAmount
		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}
	}

	base := subtotal.Sub(discount)
	tax := in.Location.TaxOn(base)

	fee := decimal.Zero
	if in.Location.FeePassthrough {
		fee = in.Location.FeeOn(base.Add(tax))
	}

	total := base.Add(tax).Add(fee)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return &ChargeBreakdown{
		Currency: in.Pricing.Currency,
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Fee:      fee,
		Total:    total,
	}, nil
}
