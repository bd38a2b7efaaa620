package service

import (
	"context"
	"time"

	"github.com/samber/lo"

	"github.com/gymlane/gymlane/internal/api/dto"
	"github.com/gymlane/gymlane/internal/cache"
	"github.com/gymlane/gymlane/internal/domain/promo"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
)

// PromoService manages discount codes. Validation is read-only; the redemption
// count moves only when a discounted charge settles, inside the settlement
// transaction, so the cap holds under concurrent activations.
type PromoService interface {
	Create(ctx context.Context, req *dto.CreatePromoRequest) (*dto.PromoResponse, error)
	Get(ctx context.Context, id string) (*dto.PromoResponse, error)
	List(ctx context.Context, locationID string) (*dto.ListPromosResponse, error)
	Validate(ctx context.Context, req *dto.ValidatePromoRequest) (*dto.ValidatePromoResponse, error)
	Archive(ctx context.Context, id string) error
	// ApplyRedemption consumes one redemption under the cap. Callers must run it
	// inside the transaction that settles the discounted charge.
	ApplyRedemption(ctx context.Context, promoID string) error
}

type promoService struct {
	ServiceParams
}

func NewPromoService(params ServiceParams) PromoService {
	return &promoService{ServiceParams: params}
}

func (s *promoService) Create(ctx context.Context, req *dto.CreatePromoRequest) (*dto.PromoResponse, error) {
	locationID := types.GetLocationID(ctx)
	if locationID == "" {
		return nil, ierr.NewError("location id missing from context").
			WithHint("Location context is required").
			Mark(ierr.ErrValidation)
	}

	p := req.ToPromo(locationID)
	p.BaseModel = types.GetDefaultBaseModel(ctx)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if existing, err := s.PromoRepo.GetByCode(ctx, locationID, p.Code); err == nil && existing != nil {
		return nil, ierr.NewError("promo code already exists").
			WithHint("A promo with this code already exists for the location").
			WithReportableDetails(map[string]any{"code": p.Code}).
			Mark(ierr.ErrAlreadyExists)
	}

	if err := s.PromoRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.Infow("created promo", "promo_id", p.ID, "code", p.Code, "location_id", locationID)
	return &dto.PromoResponse{Promo: p}, nil
}

func (s *promoService) Get(ctx context.Context, id string) (*dto.PromoResponse, error) {
	p, err := s.PromoRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.PromoResponse{Promo: p}, nil
}

func (s *promoService) List(ctx context.Context, locationID string) (*dto.ListPromosResponse, error) {
	promos, err := s.PromoRepo.List(ctx, locationID)
	if err != nil {
		return nil, err
	}
	items := lo.Map(promos, func(p *promo.Promo, _ int) *dto.PromoResponse {
		return &dto.PromoResponse{Promo: p}
	})
	return &dto.ListPromosResponse{Items: items, Total: len(items)}, nil
}

// Validate runs the ordered redemption checks and reports the discount the
// code would produce. A failing check comes back as valid=false with the
// reason, not as an error.
func (s *promoService) Validate(ctx context.Context, req *dto.ValidatePromoRequest) (*dto.ValidatePromoResponse, error) {
	locationID := types.GetLocationID(ctx)

	p, err := s.PromoRepo.GetByCode(ctx, locationID, req.Code)
	if err != nil {
		if ierr.IsNotFound(err) {
			return &dto.ValidatePromoResponse{Valid: false, Reason: "promo code not found"}, nil
		}
		return nil, err
	}

	pr, err := s.lookupPricing(ctx, req.PricingID)
	if err != nil {
		return nil, err
	}

	if err := p.CanRedeem(pr.ID, time.Now().UTC()); err != nil {
		return &dto.ValidatePromoResponse{Valid: false, Reason: err.Error()}, nil
	}

	return &dto.ValidatePromoResponse{
		Valid:          true,
		PromoID:        p.ID,
		DiscountAmount: p.CalculateDiscount(pr.Amount),
		DurationMonths: p.DiscountDuration(),
	}, nil
}

func (s *promoService) Archive(ctx context.Context, id string) error {
	p, err := s.PromoRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	p.IsActive = false
	p.Status = types.StatusArchived
	if err := s.PromoRepo.Update(ctx, p); err != nil {
		return err
	}
	s.Cache.Delete(ctx, cache.GenerateKey(cache.PrefixPromo, p.LocationID, p.Code))
	return nil
}

func (s *promoService) ApplyRedemption(ctx context.Context, promoID string) error {
	ok, err := s.PromoRepo.IncrementRedemption(ctx, promoID)
	if err != nil {
		return err
	}
	if !ok {
		return ierr.NewError("promo redemption limit reached").
			WithHint("This promo code has reached its redemption limit").
			WithReportableDetails(map[string]any{"promo_id": promoID}).
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}
