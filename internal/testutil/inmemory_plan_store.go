package testutil

import (
	"context"
	"sync"

	"github.com/gymlane/gymlane/internal/domain/plan"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
)

var _ plan.Repository = (*InMemoryPlanStore)(nil)

type InMemoryPlanStore struct {
	mu    sync.RWMutex
	plans map[string]*plan.Plan
}

func NewInMemoryPlanStore() *InMemoryPlanStore {
	return &InMemoryPlanStore{plans: make(map[string]*plan.Plan)}
}

func (s *InMemoryPlanStore) Create(ctx context.Context, p *plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = p
	return nil
}

func (s *InMemoryPlanStore) Get(ctx context.Context, id string) (*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.plans[id]; ok && p.Status != types.StatusDeleted {
		return p, nil
	}
	return nil, ierr.NewError("plan not found").
		WithHint("Plan not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryPlanStore) ListByLocation(ctx context.Context, locationID string) ([]*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*plan.Plan
	for _, p := range s.plans {
		if p.LocationID == locationID && p.Status == types.StatusPublished {
			result = append(result, p)
		}
	}
	return result, nil
}

func (s *InMemoryPlanStore) Update(ctx context.Context, p *plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.plans[p.ID]; !ok {
		return ierr.NewError("plan not found").
			WithHint("Plan not found").
			Mark(ierr.ErrNotFound)
	}
	s.plans[p.ID] = p
	return nil
}

func (s *InMemoryPlanStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans = make(map[string]*plan.Plan)
}
