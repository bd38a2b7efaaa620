package service

import (
	"context"

	"github.com/gymlane/gymlane/internal/cache"
	"github.com/gymlane/gymlane/internal/domain/location"
	"github.com/gymlane/gymlane/internal/domain/plan"
	"github.com/gymlane/gymlane/internal/domain/pricing"
)

// Cached reference-data lookups. Pricings are immutable and locations/plans
// change rarely, so every billing request reads them through the cache.

func (p ServiceParams) lookupPricing(ctx context.Context, id string) (*pricing.Pricing, error) {
	key := cache.GenerateKey(cache.PrefixPricing, id)
	if cached, ok := p.Cache.Get(ctx, key); ok {
		if pr, ok := cached.(*pricing.Pricing); ok {
			return pr, nil
		}
	}
	pr, err := p.PricingRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Cache.Set(ctx, key, pr, cache.DefaultExpiration)
	return pr, nil
}

func (p ServiceParams) lookupLocation(ctx context.Context, id string) (*location.Location, error) {
	key := cache.GenerateKey(cache.PrefixLocation, id)
	if cached, ok := p.Cache.Get(ctx, key); ok {
		if loc, ok := cached.(*location.Location); ok {
			return loc, nil
		}
	}
	loc, err := p.LocationRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Cache.Set(ctx, key, loc, cache.DefaultExpiration)
	return loc, nil
}

func (p ServiceParams) lookupPlan(ctx context.Context, id string) (*plan.Plan, error) {
	key := cache.GenerateKey(cache.PrefixPlan, id)
	if cached, ok := p.Cache.Get(ctx, key); ok {
		if pl, ok := cached.(*plan.Plan); ok {
			return pl, nil
		}
	}
	pl, err := p.PlanRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Cache.Set(ctx, key, pl, cache.DefaultExpiration)
	return pl, nil
}
