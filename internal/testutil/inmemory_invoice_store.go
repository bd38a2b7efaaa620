package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/gymlane/gymlane/internal/domain/invoice"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
	"github.com/samber/lo"
)

var _ invoice.Repository = (*InMemoryInvoiceStore)(nil)

type InMemoryInvoiceStore struct {
	mu       sync.RWMutex
	invoices map[string]*invoice.Invoice
}

func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{invoices: make(map[string]*invoice.Invoice)}
}

func (s *InMemoryInvoiceStore) CreateWithLineItems(ctx context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[inv.ID] = inv
	return nil
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if inv, ok := s.invoices[id]; ok && inv.Status != types.StatusDeleted {
		return inv, nil
	}
	return nil, ierr.NewError("invoice not found").
		WithHint("Invoice not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.invoices[inv.ID]; !ok {
		return ierr.NewError("invoice not found").
			WithHint("Invoice not found").
			Mark(ierr.ErrNotFound)
	}
	s.invoices[inv.ID] = inv
	return nil
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *invoice.ListFilter) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*invoice.Invoice
	for _, inv := range s.invoices {
		if inv.Status == types.StatusDeleted {
			continue
		}
		if filter.MemberID != "" && inv.MemberID != filter.MemberID {
			continue
		}
		if filter.LocationID != "" && inv.LocationID != filter.LocationID {
			continue
		}
		if filter.SubscriptionID != "" {
			if inv.SubscriptionID == nil || *inv.SubscriptionID != filter.SubscriptionID {
				continue
			}
		}
		if len(filter.Statuses) > 0 && !lo.Contains(filter.Statuses, string(inv.InvoiceStatus)) {
			continue
		}
		result = append(result, inv)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *InMemoryInvoiceStore) GetDraftForSubscription(ctx context.Context, subscriptionID string) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *invoice.Invoice
	for _, inv := range s.invoices {
		if inv.Status == types.StatusDeleted || inv.InvoiceStatus != types.InvoiceStatusDraft {
			continue
		}
		if inv.SubscriptionID == nil || *inv.SubscriptionID != subscriptionID {
			continue
		}
		if latest == nil || inv.CreatedAt.After(latest.CreatedAt) {
			latest = inv
		}
	}
	if latest == nil {
		return nil, ierr.NewError("invoice not found").
			WithHint("Invoice not found").
			Mark(ierr.ErrNotFound)
	}
	return latest, nil
}

func (s *InMemoryInvoiceStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices = make(map[string]*invoice.Invoice)
}
