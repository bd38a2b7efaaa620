package testutil

import (
	"context"
	"sync"

	"github.com/gymlane/gymlane/internal/domain/member"
	ierr "github.com/gymlane/gymlane/internal/errors"
)

var _ member.Repository = (*InMemoryMemberStore)(nil)

type InMemoryMemberStore struct {
	mu      sync.RWMutex
	members map[string]*member.Member
}

func NewInMemoryMemberStore() *InMemoryMemberStore {
	return &InMemoryMemberStore{members: make(map[string]*member.Member)}
}

// Add seeds a member directly; the billing core never creates members
func (s *InMemoryMemberStore) Add(m *member.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[m.ID] = m
}

func (s *InMemoryMemberStore) Get(ctx context.Context, id string) (*member.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if m, ok := s.members[id]; ok {
		return m, nil
	}
	return nil, ierr.NewError("member not found").
		WithHint("Member not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryMemberStore) Update(ctx context.Context, m *member.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[m.ID]; !ok {
		return ierr.NewError("member not found").
			WithHint("Member not found").
			Mark(ierr.ErrNotFound)
	}
	s.members[m.ID] = m
	return nil
}

func (s *InMemoryMemberStore) SetMembershipActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[id]
	if !ok {
		return ierr.NewError("member not found").
			WithHint("Member not found").
			Mark(ierr.ErrNotFound)
	}
	m.MembershipActive = active
	return nil
}

func (s *InMemoryMemberStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = make(map[string]*member.Member)
}
