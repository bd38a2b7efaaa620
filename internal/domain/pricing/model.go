package pricing

import (
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
	"github.com/shopspring/decimal"
)

// Pricing is an immutable price/cadence option under a plan. Amounts are in the
// smallest currency unit (cents). Once a subscription references a pricing the
// row is never mutated; price changes are new pricing rows.
type Pricing struct {
	ID         string          `db:"id" json:"id"`
	PlanID     string          `db:"plan_id" json:"plan_id"`
	LocationID string          `db:"location_id" json:"location_id"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	Currency   string          `db:"currency" json:"currency"`
	// Interval and IntervalThreshold define the billing cadence, e.g.
	// week x 2 bills every two weeks
	Interval          types.BillingInterval `db:"interval" json:"interval"`
	IntervalThreshold int                   `db:"interval_threshold" json:"interval_threshold"`
	// ExpireInterval/ExpireThreshold bound the subscription lifetime when set;
	// cancel_at is derived from them at create time
	ExpireInterval  *types.BillingInterval `db:"expire_interval" json:"expire_interval,omitempty"`
	ExpireThreshold *int                   `db:"expire_threshold" json:"expire_threshold,omitempty"`
	// Downpayment, when set, replaces the full amount on the first charge
	Downpayment *decimal.Decimal `db:"downpayment" json:"downpayment,omitempty"`

	types.BaseModel
}

func (p *Pricing) Validate() error {
	if p.Amount.IsNegative() {
		return ierr.NewError("pricing amount must not be negative").
			WithHint("Pricing amount must not be negative").
			Mark(ierr.ErrValidation)
	}
	if p.Currency == "" {
		return ierr.NewError("pricing currency is required").
			WithHint("Pricing currency is required").
			Mark(ierr.ErrValidation)
	}
	if err := p.Interval.Validate(); err != nil {
		return err
	}
	if p.IntervalThreshold <= 0 {
		return ierr.NewError("interval threshold must be positive").
			WithHint("Interval threshold must be a positive integer").
			WithReportableDetails(map[string]any{
				"interval_threshold": p.IntervalThreshold,
			}).
			Mark(ierr.ErrValidation)
	}
	if p.ExpireInterval != nil {
		if err := p.ExpireInterval.Validate(); err != nil {
			return err
		}
		if p.ExpireThreshold == nil || *p.ExpireThreshold <= 0 {
			return ierr.NewError("expire threshold must be positive when expire interval is set").
				WithHint("Expire threshold must be a positive integer").
				Mark(ierr.ErrValidation)
		}
	}
	if p.Downpayment != nil && p.Downpayment.IsNegative() {
		return ierr.NewError("downpayment must not be negative").
			WithHint("Downpayment must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// FirstChargeAmount returns the downpayment when configured, else the full amount
func (p *Pricing) FirstChargeAmount() decimal.Decimal {
	if p.Downpayment != nil && p.Downpayment.IsPositive() {
		return *p.Downpayment
	}
	return p.Amount
}
