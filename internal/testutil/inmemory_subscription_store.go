package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gymlane/gymlane/internal/domain/subscription"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
	"github.com/samber/lo"
)

var _ subscription.Repository = (*InMemorySubscriptionStore)(nil)

type InMemorySubscriptionStore struct {
	mu   sync.RWMutex
	subs map[string]*subscription.Subscription
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{subs: make(map[string]*subscription.Subscription)}
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.ID] = sub
	return nil
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sub, ok := s.subs[id]; ok && sub.Status != types.StatusDeleted {
		return sub, nil
	}
	return nil, ierr.NewError("subscription not found").
		WithHint("Subscription not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[sub.ID]; !ok {
		return ierr.NewError("subscription not found").
			WithHint("Subscription not found").
			Mark(ierr.ErrNotFound)
	}
	s.subs[sub.ID] = sub
	return nil
}

func (s *InMemorySubscriptionStore) List(ctx context.Context, filter *subscription.ListFilter) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*subscription.Subscription
	for _, sub := range s.subs {
		if sub.Status == types.StatusDeleted {
			continue
		}
		if filter.MemberID != "" && sub.MemberID != filter.MemberID {
			continue
		}
		if filter.LocationID != "" && sub.LocationID != filter.LocationID {
			continue
		}
		if len(filter.Statuses) > 0 && !lo.Contains(filter.Statuses, string(sub.SubscriptionStatus)) {
			continue
		}
		result = append(result, sub)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *InMemorySubscriptionStore) ListExpiringTrials(ctx context.Context, cutoff time.Time) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*subscription.Subscription
	for _, sub := range s.subs {
		if sub.SubscriptionStatus != types.SubscriptionStatusTrialing {
			continue
		}
		if sub.TrialEnd == nil || sub.TrialEnd.After(cutoff) {
			continue
		}
		result = append(result, sub)
	}
	return result, nil
}

func (s *InMemorySubscriptionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = make(map[string]*subscription.Subscription)
}
