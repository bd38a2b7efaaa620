package promo

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// StringList is a JSONB-stored list of ids
type StringList []string

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to unmarshal JSONB value: %v", value)
	}
	return json.Unmarshal(bytes, l)
}

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(l)
}

// Promo is a discount code scoped to one location
type Promo struct {
	ID         string `db:"id" json:"id"`
	LocationID string `db:"location_id" json:"location_id"`
	// Code is unique per location
	Code  string          `db:"code" json:"code"`
	Type  types.PromoType `db:"type" json:"type"`
	Value decimal.Decimal `db:"value" json:"value"`
	// Duration controls how many billing cycles the discount repeats for
	Duration         types.PromoDuration `db:"duration" json:"duration"`
	DurationInMonths *int                `db:"duration_in_months" json:"duration_in_months,omitempty"`
	MaxRedemptions   *int                `db:"max_redemptions" json:"max_redemptions,omitempty"`
	RedemptionCount  int                 `db:"redemption_count" json:"redemption_count"`
	ExpiresAt        *time.Time          `db:"expires_at" json:"expires_at,omitempty"`
	IsActive         bool                `db:"is_active" json:"is_active"`
	// EligiblePricingIDs restricts the promo to specific pricings when non-empty
	EligiblePricingIDs StringList `db:"eligible_pricing_ids" json:"eligible_pricing_ids,omitempty"`

	types.BaseModel
}

func (p *Promo) Validate() error {
	if p.Code == "" {
		return ierr.NewError("promo code is required").
			WithHint("Promo code is required").
			Mark(ierr.ErrValidation)
	}
	if err := p.Type.Validate(); err != nil {
		return err
	}
	if err := p.Duration.Validate(); err != nil {
		return err
	}
	if p.Value.LessThanOrEqual(decimal.Zero) {
		return ierr.NewError("promo value must be positive").
			WithHint("Promo value must be positive").
			Mark(ierr.ErrValidation)
	}
	if p.Type == types.PromoTypePercentage && p.Value.GreaterThan(decimal.NewFromInt(100)) {
		return ierr.NewError("percentage promo cannot exceed 100").
			WithHint("Percentage promo cannot exceed 100").
			WithReportableDetails(map[string]any{
				"value": p.Value,
			}).
			Mark(ierr.ErrValidation)
	}
	if p.Duration == types.PromoDurationRepeating && (p.DurationInMonths == nil || *p.DurationInMonths <= 0) {
		return ierr.NewError("repeating promo requires duration_in_months").
			WithHint("Repeating promos require a positive duration_in_months").
			Mark(ierr.ErrValidation)
	}
	if p.MaxRedemptions != nil && *p.MaxRedemptions <= 0 {
		return ierr.NewError("max redemptions must be positive").
			WithHint("Max redemptions must be positive").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CalculateDiscount computes the discount amount for a given price. Fixed
// amounts are clamped to the price; percentages floor to whole currency units.
func (p *Promo) CalculateDiscount(price decimal.Decimal) decimal.Decimal {
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	switch p.Type {
	case types.PromoTypeFixedAmount:
		if p.Value.GreaterThan(price) {
			return price
		}
		return p.Value
	case types.PromoTypePercentage:
		return price.Mul(p.Value).Div(decimal.NewFromInt(100)).Floor()
	default:
		return decimal.Zero
	}
}

// DiscountDuration resolves how many monthly cycles the discount applies for
func (p *Promo) DiscountDuration() int {
	switch p.Duration {
	case types.PromoDurationOnce:
		return 1
	case types.PromoDurationRepeating:
		if p.DurationInMonths != nil {
			return *p.DurationInMonths
		}
		return 1
	case types.PromoDurationForever:
		return types.ForeverDurationMonths
	default:
		return 1
	}
}

// CanRedeem validates the promo for redemption against a pricing. Checks are
// ordered: active flag, expiry, redemption cap, pricing allow-list.
func (p *Promo) CanRedeem(pricingID string, now time.Time) error {
	if !p.IsActive || p.Status != types.StatusPublished {
		return ierr.NewError("promo is not active").
			WithHint("This promo code is no longer active").
			WithReportableDetails(map[string]any{
				"code": p.Code,
			}).
			Mark(ierr.ErrValidation)
	}
	if p.ExpiresAt != nil && now.After(*p.ExpiresAt) {
		return ierr.NewError("promo has expired").
			WithHint("This promo code has expired").
			WithReportableDetails(map[string]any{
				"code":       p.Code,
				"expires_at": p.ExpiresAt,
			}).
			Mark(ierr.ErrValidation)
	}
	if p.MaxRedemptions != nil && p.RedemptionCount >= *p.MaxRedemptions {
		return ierr.NewError("promo redemption limit reached").
			WithHint("This promo code has reached its redemption limit").
			WithReportableDetails(map[string]any{
				"code":            p.Code,
				"max_redemptions": *p.MaxRedemptions,
			}).
			Mark(ierr.ErrValidation)
	}
	if len(p.EligiblePricingIDs) > 0 && !lo.Contains(p.EligiblePricingIDs, pricingID) {
		return ierr.NewError("promo is not valid for this pricing").
			WithHint("This promo code cannot be used with the selected pricing").
			WithReportableDetails(map[string]any{
				"code":       p.Code,
				"pricing_id": pricingID,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Snapshot computes the discount for a price and freezes it for a subscription
func (p *Promo) Snapshot(price decimal.Decimal) *types.PromoSnapshot {
	return &types.PromoSnapshot{
		PromoID:        p.ID,
		Code:           p.Code,
		Type:           p.Type,
		DiscountAmount: p.CalculateDiscount(price),
		DurationMonths: p.DiscountDuration(),
		Applied:        false,
	}
}
