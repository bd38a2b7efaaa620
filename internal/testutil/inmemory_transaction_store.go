package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/gymlane/gymlane/internal/domain/transaction"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
)

var _ transaction.Repository = (*InMemoryTransactionStore)(nil)

type InMemoryTransactionStore struct {
	mu           sync.RWMutex
	transactions map[string]*transaction.Transaction
}

func NewInMemoryTransactionStore() *InMemoryTransactionStore {
	return &InMemoryTransactionStore{transactions: make(map[string]*transaction.Transaction)}
}

func (s *InMemoryTransactionStore) Create(ctx context.Context, txn *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[txn.ID] = txn
	return nil
}

func (s *InMemoryTransactionStore) Get(ctx context.Context, id string) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if txn, ok := s.transactions[id]; ok && txn.Status != types.StatusDeleted {
		return txn, nil
	}
	return nil, ierr.NewError("transaction not found").
		WithHint("Transaction not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryTransactionStore) Update(ctx context.Context, txn *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[txn.ID]; !ok {
		return ierr.NewError("transaction not found").
			WithHint("Transaction not found").
			Mark(ierr.ErrNotFound)
	}
	s.transactions[txn.ID] = txn
	return nil
}

// GetByInvoice returns the inbound ledger entry for an invoice; refund outbound
// rows never shadow it.
func (s *InMemoryTransactionStore) GetByInvoice(ctx context.Context, invoiceID string) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var earliest *transaction.Transaction
	for _, txn := range s.transactions {
		if txn.Status == types.StatusDeleted || txn.Type != types.TransactionTypeInbound {
			continue
		}
		if txn.InvoiceID == nil || *txn.InvoiceID != invoiceID {
			continue
		}
		if earliest == nil || txn.CreatedAt.Before(earliest.CreatedAt) {
			earliest = txn
		}
	}
	if earliest == nil {
		return nil, ierr.NewError("transaction not found").
			WithHint("Transaction not found").
			Mark(ierr.ErrNotFound)
	}
	return earliest, nil
}

func (s *InMemoryTransactionStore) ListBySubscription(ctx context.Context, subscriptionID string) ([]*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*transaction.Transaction
	for _, txn := range s.transactions {
		if txn.Status == types.StatusDeleted {
			continue
		}
		if txn.SubscriptionID == nil || *txn.SubscriptionID != subscriptionID {
			continue
		}
		result = append(result, txn)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *InMemoryTransactionStore) GetLatestPaidForSubscription(ctx context.Context, subscriptionID string) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *transaction.Transaction
	for _, txn := range s.transactions {
		if txn.Status == types.StatusDeleted || txn.Type != types.TransactionTypeInbound {
			continue
		}
		if txn.TxnStatus != types.TransactionStatusPaid || txn.Refunded {
			continue
		}
		if txn.SubscriptionID == nil || *txn.SubscriptionID != subscriptionID {
			continue
		}
		if txn.SettledAt == nil {
			continue
		}
		if latest == nil || txn.SettledAt.After(*latest.SettledAt) {
			latest = txn
		}
	}
	if latest == nil {
		return nil, ierr.NewError("transaction not found").
			WithHint("Transaction not found").
			Mark(ierr.ErrNotFound)
	}
	return latest, nil
}

// All returns every ledger row, oldest first
func (s *InMemoryTransactionStore) All() []*transaction.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*transaction.Transaction, 0, len(s.transactions))
	for _, txn := range s.transactions {
		result = append(result, txn)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (s *InMemoryTransactionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = make(map[string]*transaction.Transaction)
}
