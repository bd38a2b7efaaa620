package promo

import "context"

// Repository provides access to promo records
type Repository interface {
	Create(ctx context.Context, promo *Promo) error
	Get(ctx context.Context, id string) (*Promo, error)
	GetByCode(ctx context.Context, locationID, code string) (*Promo, error)
	Update(ctx context.Context, promo *Promo) error
	List(ctx context.Context, locationID string) ([]*Promo, error)
	// IncrementRedemption bumps the redemption count only while it is still
	// under the cap; returns false when the cap was already reached. Callers
	// run this inside the settlement transaction so two concurrent activations
	// cannot both consume the last redemption.
	IncrementRedemption(ctx context.Context, id string) (bool, error)
}
