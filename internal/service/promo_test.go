package service

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/gymlane/gymlane/internal/api/dto"
	"github.com/gymlane/gymlane/internal/domain/location"
	"github.com/gymlane/gymlane/internal/domain/plan"
	"github.com/gymlane/gymlane/internal/domain/pricing"
	"github.com/gymlane/gymlane/internal/domain/promo"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/testutil"
	"github.com/gymlane/gymlane/internal/types"
)

type PromoServiceSuite struct {
	ServiceTestSuite
}

func TestPromoService(t *testing.T) {
	suite.Run(t, new(PromoServiceSuite))
}

func (s *PromoServiceSuite) TestCreatePromo() {
	ctx := types.SetLocationID(s.GetContext(), testutil.TestLocationID)

	resp, err := s.promoService.Create(ctx, &dto.CreatePromoRequest{
		Code:     "SUMMER20",
		Type:     types.PromoTypePercentage,
		Value:    decimal.NewFromInt(20),
		Duration: types.PromoDurationOnce,
	})
	s.Require().NoError(err)
	s.NotEmpty(resp.ID)
	s.Equal("SUMMER20", resp.Code)
	s.Equal(testutil.TestLocationID, resp.LocationID)
	s.True(resp.IsActive)
	s.Zero(resp.RedemptionCount)
}

func (s *PromoServiceSuite) TestCreateWithoutLocationRejected() {
	_, err := s.promoService.Create(s.GetContext(), &dto.CreatePromoRequest{
		Code:     "NOLOC",
		Type:     types.PromoTypePercentage,
		Value:    decimal.NewFromInt(10),
		Duration: types.PromoDurationOnce,
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *PromoServiceSuite) TestCreateDuplicateCodeRejected() {
	ctx := types.SetLocationID(s.GetContext(), testutil.TestLocationID)
	req := &dto.CreatePromoRequest{
		Code:     "ONCE",
		Type:     types.PromoTypeFixedAmount,
		Value:    decimal.NewFromInt(500),
		Duration: types.PromoDurationOnce,
	}

	_, err := s.promoService.Create(ctx, req)
	s.Require().NoError(err)

	_, err = s.promoService.Create(ctx, req)
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *PromoServiceSuite) TestValidateUnknownCode() {
	ctx := s.validateFixture()

	resp, err := s.promoService.Validate(ctx, &dto.ValidatePromoRequest{
		Code:      "NOPE",
		PricingID: "pricing_1",
	})
	s.Require().NoError(err)
	s.False(resp.Valid)
	s.Contains(resp.Reason, "not found")
}

func (s *PromoServiceSuite) TestValidateInactiveCode() {
	ctx := s.validateFixture()
	p := s.seedPromo(&promo.Promo{
		Code:     "OLD",
		Type:     types.PromoTypePercentage,
		Value:    decimal.NewFromInt(10),
		Duration: types.PromoDurationOnce,
	})
	p.IsActive = false
	s.Require().NoError(s.GetStores().PromoRepo.Update(ctx, p))

	resp, err := s.promoService.Validate(ctx, &dto.ValidatePromoRequest{
		Code:      "OLD",
		PricingID: "pricing_1",
	})
	s.Require().NoError(err)
	s.False(resp.Valid)
	s.Contains(resp.Reason, "not active")
}

func (s *PromoServiceSuite) TestValidateExpiredCode() {
	ctx := s.validateFixture()
	s.seedPromo(&promo.Promo{
		Code:      "EXPIRED",
		Type:      types.PromoTypePercentage,
		Value:     decimal.NewFromInt(10),
		Duration:  types.PromoDurationOnce,
		ExpiresAt: lo.ToPtr(time.Now().UTC().AddDate(0, 0, -1)),
	})

	resp, err := s.promoService.Validate(ctx, &dto.ValidatePromoRequest{
		Code:      "EXPIRED",
		PricingID: "pricing_1",
	})
	s.Require().NoError(err)
	s.False(resp.Valid)
	s.Contains(resp.Reason, "expired")
}

// an inactive code reports inactive even when it is also expired
func (s *PromoServiceSuite) TestValidateInactiveReportedBeforeExpired() {
	ctx := s.validateFixture()
	p := s.seedPromo(&promo.Promo{
		Code:      "BOTH",
		Type:      types.PromoTypePercentage,
		Value:     decimal.NewFromInt(10),
		Duration:  types.PromoDurationOnce,
		ExpiresAt: lo.ToPtr(time.Now().UTC().AddDate(0, 0, -1)),
	})
	p.IsActive = false
	s.Require().NoError(s.GetStores().PromoRepo.Update(ctx, p))

	resp, err := s.promoService.Validate(ctx, &dto.ValidatePromoRequest{
		Code:      "BOTH",
		PricingID: "pricing_1",
	})
	s.Require().NoError(err)
	s.False(resp.Valid)
	s.Contains(resp.Reason, "not active")
}

func (s *PromoServiceSuite) TestValidateCapReached() {
	ctx := s.validateFixture()
	p := s.seedPromo(&promo.Promo{
		Code:           "CAPPED",
		Type:           types.PromoTypePercentage,
		Value:          decimal.NewFromInt(10),
		Duration:       types.PromoDurationOnce,
		MaxRedemptions: lo.ToPtr(5),
	})
	p.RedemptionCount = 5
	s.Require().NoError(s.GetStores().PromoRepo.Update(ctx, p))

	resp, err := s.promoService.Validate(ctx, &dto.ValidatePromoRequest{
		Code:      "CAPPED",
		PricingID: "pricing_1",
	})
	s.Require().NoError(err)
	s.False(resp.Valid)
	s.Contains(resp.Reason, "redemption limit")
}

func (s *PromoServiceSuite) TestValidatePricingAllowList() {
	ctx := s.validateFixture()
	s.seedPromo(&promo.Promo{
		Code:               "YEARLYONLY",
		Type:               types.PromoTypePercentage,
		Value:              decimal.NewFromInt(10),
		Duration:           types.PromoDurationOnce,
		EligiblePricingIDs: promo.StringList{"pricing_yearly"},
	})

	resp, err := s.promoService.Validate(ctx, &dto.ValidatePromoRequest{
		Code:      "YEARLYONLY",
		PricingID: "pricing_1",
	})
	s.Require().NoError(err)
	s.False(resp.Valid)
	s.Contains(resp.Reason, "not valid for this pricing")
}

func (s *PromoServiceSuite) TestValidateComputesDiscount() {
	ctx := s.validateFixture()
	s.seedPromo(&promo.Promo{
		Code:             "TWELVE",
		Type:             types.PromoTypePercentage,
		Value:            decimal.NewFromInt(12),
		Duration:         types.PromoDurationRepeating,
		DurationInMonths: lo.ToPtr(3),
	})

	resp, err := s.promoService.Validate(ctx, &dto.ValidatePromoRequest{
		Code:      "TWELVE",
		PricingID: "pricing_1",
	})
	s.Require().NoError(err)
	s.True(resp.Valid)
	s.Equal("promo_1", resp.PromoID)
	// floor(10000 * 12%) = 1200
	s.True(resp.DiscountAmount.Equal(decimal.NewFromInt(1200)))
	s.Equal(3, resp.DurationMonths)
}

func (s *PromoServiceSuite) TestApplyRedemptionEnforcesCap() {
	s.seedPromo(&promo.Promo{
		Code:           "TWOONLY",
		Type:           types.PromoTypeFixedAmount,
		Value:          decimal.NewFromInt(500),
		Duration:       types.PromoDurationOnce,
		MaxRedemptions: lo.ToPtr(2),
	})

	s.NoError(s.promoService.ApplyRedemption(s.GetContext(), "promo_1"))
	s.NoError(s.promoService.ApplyRedemption(s.GetContext(), "promo_1"))

	err := s.promoService.ApplyRedemption(s.GetContext(), "promo_1")
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	p, err := s.GetStores().PromoRepo.Get(s.GetContext(), "promo_1")
	s.Require().NoError(err)
	s.Equal(2, p.RedemptionCount)
}

func (s *PromoServiceSuite) TestApplyRedemptionUncapped() {
	s.seedPromo(&promo.Promo{
		Code:     "OPEN",
		Type:     types.PromoTypeFixedAmount,
		Value:    decimal.NewFromInt(500),
		Duration: types.PromoDurationOnce,
	})

	for i := 0; i < 3; i++ {
		s.NoError(s.promoService.ApplyRedemption(s.GetContext(), "promo_1"))
	}

	p, err := s.GetStores().PromoRepo.Get(s.GetContext(), "promo_1")
	s.Require().NoError(err)
	s.Equal(3, p.RedemptionCount)
}

func (s *PromoServiceSuite) TestArchiveDeactivates() {
	ctx := s.validateFixture()
	s.seedPromo(&promo.Promo{
		Code:     "GONE",
		Type:     types.PromoTypePercentage,
		Value:    decimal.NewFromInt(10),
		Duration: types.PromoDurationOnce,
	})

	s.Require().NoError(s.promoService.Archive(ctx, "promo_1"))

	p, err := s.GetStores().PromoRepo.Get(ctx, "promo_1")
	s.Require().NoError(err)
	s.False(p.IsActive)
	s.Equal(types.StatusArchived, p.Status)

	resp, err := s.promoService.Validate(ctx, &dto.ValidatePromoRequest{
		Code:      "GONE",
		PricingID: "pricing_1",
	})
	s.Require().NoError(err)
	s.False(resp.Valid)
}

// validateFixture seeds a location, plan, and monthly pricing at 10000 and
// returns a context scoped to the test location
func (s *PromoServiceSuite) validateFixture() context.Context {
	s.seedLocation(&location.Location{})
	s.seedPlan(&plan.Plan{})
	s.seedPricing(&pricing.Pricing{Amount: decimal.NewFromInt(10000)})
	return types.SetLocationID(s.GetContext(), testutil.TestLocationID)
}
