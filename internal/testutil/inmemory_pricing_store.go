package testutil

import (
	"context"
	"sync"

	"github.com/gymlane/gymlane/internal/domain/pricing"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
)

var _ pricing.Repository = (*InMemoryPricingStore)(nil)

type InMemoryPricingStore struct {
	mu       sync.RWMutex
	pricings map[string]*pricing.Pricing
}

func NewInMemoryPricingStore() *InMemoryPricingStore {
	return &InMemoryPricingStore{pricings: make(map[string]*pricing.Pricing)}
}

func (s *InMemoryPricingStore) Create(ctx context.Context, p *pricing.Pricing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pricings[p.ID] = p
	return nil
}

func (s *InMemoryPricingStore) Get(ctx context.Context, id string) (*pricing.Pricing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.pricings[id]; ok && p.Status != types.StatusDeleted {
		return p, nil
	}
	return nil, ierr.NewError("pricing not found").
		WithHint("Pricing not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryPricingStore) ListByPlan(ctx context.Context, planID string) ([]*pricing.Pricing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*pricing.Pricing
	for _, p := range s.pricings {
		if p.PlanID == planID && p.Status == types.StatusPublished {
			result = append(result, p)
		}
	}
	return result, nil
}

func (s *InMemoryPricingStore) ListByLocation(ctx context.Context, locationID string) ([]*pricing.Pricing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*pricing.Pricing
	for _, p := range s.pricings {
		if p.LocationID == locationID && p.Status == types.StatusPublished {
			result = append(result, p)
		}
	}
	return result, nil
}

func (s *InMemoryPricingStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pricings = make(map[string]*pricing.Pricing)
}
