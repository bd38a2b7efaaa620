package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gymlane/gymlane/internal/domain/promo"
	"github.com/gymlane/gymlane/internal/types"
)

// CreatePromoRequest registers a discount code for the current location
type CreatePromoRequest struct {
	Code               string              `json:"code" binding:"required"`
	Type               types.PromoType     `json:"type" binding:"required"`
	Value              decimal.Decimal     `json:"value" binding:"required"`
	Duration           types.PromoDuration `json:"duration" binding:"required"`
	DurationInMonths   *int                `json:"duration_in_months,omitempty"`
	MaxRedemptions     *int                `json:"max_redemptions,omitempty"`
	ExpiresAt          *time.Time          `json:"expires_at,omitempty"`
	EligiblePricingIDs []string            `json:"eligible_pricing_ids,omitempty"`
}

// ToPromo builds the domain model; full validation happens on the model
func (r *CreatePromoRequest) ToPromo(locationID string) *promo.Promo {
	return &promo.Promo{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PROMO),
		LocationID:         locationID,
		Code:               r.Code,
		Type:               r.Type,
		Value:              r.Value,
		Duration:           r.Duration,
		DurationInMonths:   r.DurationInMonths,
		MaxRedemptions:     r.MaxRedemptions,
		ExpiresAt:          r.ExpiresAt,
		IsActive:           true,
		EligiblePricingIDs: r.EligiblePricingIDs,
	}
}

// ValidatePromoRequest checks whether a code can be redeemed against a pricing
type ValidatePromoRequest struct {
	Code      string `json:"code" binding:"required"`
	PricingID string `json:"pricing_id" binding:"required"`
}

// ValidatePromoResponse reports the validation outcome and, when valid, the
// discount the code would produce for the pricing
type ValidatePromoResponse struct {
	Valid          bool            `json:"valid"`
	Reason         string          `json:"reason,omitempty"`
	PromoID        string          `json:"promo_id,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	DurationMonths int             `json:"duration_months,omitempty"`
}

// PromoResponse is the API representation of a promo
type PromoResponse struct {
	*promo.Promo
}

// ListPromosResponse is a list of promos for a location
type ListPromosResponse struct {
	Items []*PromoResponse `json:"items"`
	Total int              `json:"total"`
}
