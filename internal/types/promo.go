package types

import (
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/samber/lo"
)

// PromoType is how a promo discount is computed
type PromoType string

const (
	PromoTypePercentage  PromoType = "percentage"
	PromoTypeFixedAmount PromoType = "fixed_amount"
)

func (t PromoType) String() string {
	return string(t)
}

func (t PromoType) Validate() error {
	allowed := []PromoType{
		PromoTypePercentage,
		PromoTypeFixedAmount,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid promo type").
			WithHint("Invalid promo type").
			WithReportableDetails(map[string]any{
				"promo_type":    t,
				"allowed_types": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PromoDuration is how long a promo discount keeps applying to a subscription
type PromoDuration string

const (
	PromoDurationOnce      PromoDuration = "once"
	PromoDurationRepeating PromoDuration = "repeating"
	PromoDurationForever   PromoDuration = "forever"
)

// ForeverDurationMonths is the effective duration used for forever promos.
// Large enough to outlive any realistic membership.
const ForeverDurationMonths = 1200

func (d PromoDuration) String() string {
	return string(d)
}

func (d PromoDuration) Validate() error {
	allowed := []PromoDuration{
		PromoDurationOnce,
		PromoDurationRepeating,
		PromoDurationForever,
	}
	if !lo.Contains(allowed, d) {
		return ierr.NewError("invalid promo duration").
			WithHint("Invalid promo duration").
			WithReportableDetails(map[string]any{
				"duration":          d,
				"allowed_durations": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
