package transaction

import "context"

// Repository provides access to the transaction ledger
type Repository interface {
	Create(ctx context.Context, transaction *Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	Update(ctx context.Context, transaction *Transaction) error
	GetByInvoice(ctx context.Context, invoiceID string) (*Transaction, error)
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*Transaction, error)
	// GetLatestPaidForSubscription returns the most recent settled, not yet
	// refunded inbound transaction for a subscription; used by cancel-now
	// refunds
	GetLatestPaidForSubscription(ctx context.Context, subscriptionID string) (*Transaction, error)
}
