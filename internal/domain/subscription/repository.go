package subscription

import (
	"context"
	"time"
)

// ListFilter narrows subscription queries
type ListFilter struct {
	MemberID   string
	LocationID string
	Statuses   []string
	Limit      int
	Offset     int
}

// Repository provides access to subscription records
type Repository interface {
	Create(ctx context.Context, subscription *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	Update(ctx context.Context, subscription *Subscription) error
	List(ctx context.Context, filter *ListFilter) ([]*Subscription, error)
	// ListExpiringTrials returns trialing subscriptions whose trial ends before
	// the cutoff, for the worker that converts them
	ListExpiringTrials(ctx context.Context, cutoff time.Time) ([]*Subscription, error)
}
