package testutil

import (
	"context"
	"sync"

	"github.com/gymlane/gymlane/internal/domain/location"
	ierr "github.com/gymlane/gymlane/internal/errors"
)

var _ location.Repository = (*InMemoryLocationStore)(nil)

type InMemoryLocationStore struct {
	mu        sync.RWMutex
	locations map[string]*location.Location
}

func NewInMemoryLocationStore() *InMemoryLocationStore {
	return &InMemoryLocationStore{locations: make(map[string]*location.Location)}
}

// Add seeds a location directly; the billing core only reads location settings
func (s *InMemoryLocationStore) Add(l *location.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[l.ID] = l
}

func (s *InMemoryLocationStore) Get(ctx context.Context, id string) (*location.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if l, ok := s.locations[id]; ok {
		return l, nil
	}
	return nil, ierr.NewError("location not found").
		WithHint("Location not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryLocationStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations = make(map[string]*location.Location)
}
