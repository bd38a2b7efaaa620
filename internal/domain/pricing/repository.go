package pricing

import "context"

// Repository provides access to pricing reference data
type Repository interface {
	Create(ctx context.Context, pricing *Pricing) error
	Get(ctx context.Context, id string) (*Pricing, error)
	ListByPlan(ctx context.Context, planID string) ([]*Pricing, error)
	ListByLocation(ctx context.Context, locationID string) ([]*Pricing, error)
}
