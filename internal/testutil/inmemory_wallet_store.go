package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/gymlane/gymlane/internal/domain/wallet"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
	"github.com/shopspring/decimal"
)

var _ wallet.Repository = (*InMemoryWalletStore)(nil)

type InMemoryWalletStore struct {
	mu      sync.Mutex
	wallets map[string]*wallet.Wallet
	usage   map[string][]*wallet.UsageEntry
}

func NewInMemoryWalletStore() *InMemoryWalletStore {
	return &InMemoryWalletStore{
		wallets: make(map[string]*wallet.Wallet),
		usage:   make(map[string][]*wallet.UsageEntry),
	}
}

func (s *InMemoryWalletStore) Create(ctx context.Context, w *wallet.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[w.ID] = w
	return nil
}

func (s *InMemoryWalletStore) Get(ctx context.Context, id string) (*wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.wallets[id]; ok && w.Status != types.StatusDeleted {
		return w, nil
	}
	return nil, ierr.NewError("wallet not found").
		WithHint("Wallet not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryWalletStore) GetByLocation(ctx context.Context, locationID string) (*wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.wallets {
		if w.LocationID == locationID && w.Status != types.StatusDeleted {
			return w, nil
		}
	}
	return nil, ierr.NewError("wallet not found").
		WithHint("Wallet not found").
		Mark(ierr.ErrNotFound)
}

// DebitBalance mirrors the guarded UPDATE: the subtraction only happens while
// the balance covers the amount, so the balance can never go negative.
func (s *InMemoryWalletStore) DebitBalance(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[id]
	if !ok {
		return decimal.Zero, false, nil
	}
	if w.Balance.LessThan(amount) {
		return decimal.Zero, false, nil
	}
	w.Balance = w.Balance.Sub(amount)
	return w.Balance, true, nil
}

func (s *InMemoryWalletStore) CreditBalance(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[id]
	if !ok {
		return decimal.Zero, ierr.NewError("wallet not found").
			WithHint("Wallet not found").
			Mark(ierr.ErrNotFound)
	}
	w.Balance = w.Balance.Add(amount)
	return w.Balance, nil
}

func (s *InMemoryWalletStore) CreateUsageEntry(ctx context.Context, entry *wallet.UsageEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[entry.WalletID] = append(s.usage[entry.WalletID], entry)
	return nil
}

func (s *InMemoryWalletStore) ListUsage(ctx context.Context, walletID string, limit int) ([]*wallet.UsageEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]*wallet.UsageEntry, len(s.usage[walletID]))
	copy(entries, s.usage[walletID])
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	if limit <= 0 {
		limit = 50
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *InMemoryWalletStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets = make(map[string]*wallet.Wallet)
	s.usage = make(map[string][]*wallet.UsageEntry)
}
