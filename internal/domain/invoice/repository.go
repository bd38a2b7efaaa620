package invoice

import "context"

// ListFilter narrows invoice queries
type ListFilter struct {
	MemberID       string
	LocationID     string
	SubscriptionID string
	Statuses       []string
	Limit          int
	Offset         int
}

// Repository provides access to invoice records and their line items
type Repository interface {
	// CreateWithLineItems persists the invoice and its line items together
	CreateWithLineItems(ctx context.Context, invoice *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
	Update(ctx context.Context, invoice *Invoice) error
	List(ctx context.Context, filter *ListFilter) ([]*Invoice, error)
	// GetDraftForSubscription returns the open draft invoice for a subscription
	// if one exists. Used to keep next-cycle drafting idempotent.
	GetDraftForSubscription(ctx context.Context, subscriptionID string) (*Invoice, error)
}
