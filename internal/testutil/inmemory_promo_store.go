package testutil

import (
	"context"
	"sync"

	"github.com/gymlane/gymlane/internal/domain/promo"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
)

var _ promo.Repository = (*InMemoryPromoStore)(nil)

type InMemoryPromoStore struct {
	mu     sync.Mutex
	promos map[string]*promo.Promo
}

func NewInMemoryPromoStore() *InMemoryPromoStore {
	return &InMemoryPromoStore{promos: make(map[string]*promo.Promo)}
}

func (s *InMemoryPromoStore) Create(ctx context.Context, p *promo.Promo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promos[p.ID] = p
	return nil
}

func (s *InMemoryPromoStore) Get(ctx context.Context, id string) (*promo.Promo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.promos[id]; ok && p.Status != types.StatusDeleted {
		return p, nil
	}
	return nil, ierr.NewError("promo not found").
		WithHint("Promo not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryPromoStore) GetByCode(ctx context.Context, locationID, code string) (*promo.Promo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.promos {
		if p.LocationID == locationID && p.Code == code && p.Status != types.StatusDeleted {
			return p, nil
		}
	}
	return nil, ierr.NewError("promo not found").
		WithHint("Promo not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryPromoStore) Update(ctx context.Context, p *promo.Promo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.promos[p.ID]; !ok {
		return ierr.NewError("promo not found").
			WithHint("Promo not found").
			Mark(ierr.ErrNotFound)
	}
	s.promos[p.ID] = p
	return nil
}

func (s *InMemoryPromoStore) List(ctx context.Context, locationID string) ([]*promo.Promo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*promo.Promo
	for _, p := range s.promos {
		if p.LocationID == locationID && p.Status != types.StatusDeleted {
			result = append(result, p)
		}
	}
	return result, nil
}

// IncrementRedemption mirrors the guarded UPDATE: the counter only moves while
// it is under the cap, and the check-and-bump happens under one lock so
// concurrent redemptions of the last slot cannot both win.
func (s *InMemoryPromoStore) IncrementRedemption(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.promos[id]
	if !ok {
		return false, nil
	}
	if p.MaxRedemptions != nil && p.RedemptionCount >= *p.MaxRedemptions {
		return false, nil
	}
	p.RedemptionCount++
	return true, nil
}

func (s *InMemoryPromoStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promos = make(map[string]*promo.Promo)
}
