package plan

import (
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
)

// Plan groups the pricings a location sells and carries the membership policy
// knobs that are not money related.
type Plan struct {
	ID          string `db:"id" json:"id"`
	LocationID  string `db:"location_id" json:"location_id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description,omitempty"`
	// ClassLimit caps bookable sessions per billing period, nil means unlimited
	ClassLimit *int `db:"class_limit" json:"class_limit,omitempty"`
	// MakeUpCredits is how many carryover credits a member earns per renewed period
	MakeUpCredits int `db:"make_up_credits" json:"make_up_credits"`
	// TrialDays is the free trial length granted on new subscriptions
	TrialDays int `db:"trial_days" json:"trial_days"`

	types.BaseModel
}

func (p *Plan) Validate() error {
	if p.Name == "" {
		return ierr.NewError("plan name is required").
			WithHint("Plan name is required").
			Mark(ierr.ErrValidation)
	}
	if p.TrialDays < 0 {
		return ierr.NewError("trial days must not be negative").
			WithHint("Trial days must not be negative").
			Mark(ierr.ErrValidation)
	}
	if p.MakeUpCredits < 0 {
		return ierr.NewError("make up credits must not be negative").
			WithHint("Make up credits must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}
