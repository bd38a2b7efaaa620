package plan

import "context"

// Repository provides access to plan reference data
type Repository interface {
	Create(ctx context.Context, plan *Plan) error
	Get(ctx context.Context, id string) (*Plan, error)
	ListByLocation(ctx context.Context, locationID string) ([]*Plan, error)
	Update(ctx context.Context, plan *Plan) error
}
