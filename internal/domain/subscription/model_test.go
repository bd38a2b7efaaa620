package subscription

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/gymlane/gymlane/internal/types"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from    types.SubscriptionStatus
		to      types.SubscriptionStatus
		allowed bool
	}{
		{types.SubscriptionStatusIncomplete, types.SubscriptionStatusActive, true},
		{types.SubscriptionStatusIncomplete, types.SubscriptionStatusTrialing, true},
		{types.SubscriptionStatusIncomplete, types.SubscriptionStatusPaused, false},
		{types.SubscriptionStatusTrialing, types.SubscriptionStatusActive, true},
		{types.SubscriptionStatusTrialing, types.SubscriptionStatusPaused, true},
		{types.SubscriptionStatusTrialing, types.SubscriptionStatusPastDue, false},
		{types.SubscriptionStatusActive, types.SubscriptionStatusPaused, true},
		{types.SubscriptionStatusActive, types.SubscriptionStatusPastDue, true},
		{types.SubscriptionStatusActive, types.SubscriptionStatusUnpaid, true},
		{types.SubscriptionStatusActive, types.SubscriptionStatusTrialing, false},
		{types.SubscriptionStatusPaused, types.SubscriptionStatusActive, true},
		{types.SubscriptionStatusPaused, types.SubscriptionStatusTrialing, true},
		{types.SubscriptionStatusPaused, types.SubscriptionStatusPastDue, false},
		{types.SubscriptionStatusPastDue, types.SubscriptionStatusActive, true},
		{types.SubscriptionStatusPastDue, types.SubscriptionStatusUnpaid, true},
		{types.SubscriptionStatusPastDue, types.SubscriptionStatusPaused, false},
		{types.SubscriptionStatusUnpaid, types.SubscriptionStatusActive, true},
		{types.SubscriptionStatusUnpaid, types.SubscriptionStatusPaused, false},
	}

	for _, tt := range tests {
		sub := &Subscription{SubscriptionStatus: tt.from}
		assert.Equal(t, tt.allowed, sub.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestCancelledIsAbsorbing(t *testing.T) {
	sub := &Subscription{SubscriptionStatus: types.SubscriptionStatusCancelled}

	for _, target := range []types.SubscriptionStatus{
		types.SubscriptionStatusActive,
		types.SubscriptionStatusTrialing,
		types.SubscriptionStatusPaused,
		types.SubscriptionStatusPastDue,
		types.SubscriptionStatusCancelled,
	} {
		assert.False(t, sub.CanTransitionTo(target), "cancelled -> %s", target)
	}
}

func TestAnyLiveStateCanCancel(t *testing.T) {
	for _, from := range []types.SubscriptionStatus{
		types.SubscriptionStatusIncomplete,
		types.SubscriptionStatusTrialing,
		types.SubscriptionStatusActive,
		types.SubscriptionStatusPaused,
		types.SubscriptionStatusPastDue,
		types.SubscriptionStatusUnpaid,
	} {
		sub := &Subscription{SubscriptionStatus: from}
		assert.True(t, sub.CanTransitionTo(types.SubscriptionStatusCancelled), "%s -> cancelled", from)
	}
}

func TestIsInTrial(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

	sub := &Subscription{}
	assert.False(t, sub.IsInTrial(now))

	sub.TrialEnd = lo.ToPtr(now.Add(time.Hour))
	assert.True(t, sub.IsInTrial(now))

	sub.TrialEnd = lo.ToPtr(now.Add(-time.Hour))
	assert.False(t, sub.IsInTrial(now))
}

func TestDiscountForCharge(t *testing.T) {
	sub := &Subscription{}
	assert.Nil(t, sub.DiscountForCharge(1))

	sub.PromoSnapshot = &types.PromoSnapshot{
		PromoID:        "promo_1",
		DiscountAmount: decimal.NewFromInt(1500),
		DurationMonths: 3,
	}
	assert.NotNil(t, sub.DiscountForCharge(1))
	assert.NotNil(t, sub.DiscountForCharge(3))
	assert.Nil(t, sub.DiscountForCharge(4))
}

func TestHasUnappliedPromo(t *testing.T) {
	sub := &Subscription{}
	assert.False(t, sub.HasUnappliedPromo())

	sub.PromoSnapshot = &types.PromoSnapshot{PromoID: "promo_1"}
	assert.True(t, sub.HasUnappliedPromo())

	sub.PromoSnapshot.Applied = true
	assert.False(t, sub.HasUnappliedPromo())
}

func validSubscription() *Subscription {
	periodStart := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	return &Subscription{
		ID:                 "sub_1",
		MemberID:           "member_1",
		LocationID:         "loc_1",
		PlanID:             "plan_1",
		PricingID:          "pricing_1",
		SubscriptionStatus: types.SubscriptionStatusActive,
		PaymentType:        types.PaymentTypeCard,
		StartDate:          periodStart,
		CurrentPeriodStart: periodStart,
		CurrentPeriodEnd:   periodStart.AddDate(0, 1, 0),
	}
}

func TestValidateRejectsInvertedPeriod(t *testing.T) {
	sub := validSubscription()
	sub.CurrentPeriodEnd = sub.CurrentPeriodStart.AddDate(0, 0, -1)

	assert.Error(t, sub.Validate())
}

func TestValidateEndOfPeriodCancellation(t *testing.T) {
	periodEnd := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	sub := validSubscription()
	sub.CurrentPeriodEnd = periodEnd
	sub.CancelAtPeriodEnd = true

	assert.Error(t, sub.Validate())

	sub.CancelAt = &periodEnd
	assert.NoError(t, sub.Validate())

	sub.CancelAt = lo.ToPtr(periodEnd.AddDate(0, 0, 1))
	assert.Error(t, sub.Validate())
}
