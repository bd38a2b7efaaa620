package location

import "context"

// Repository provides read access to location settings owned by the location
// subsystem
type Repository interface {
	Get(ctx context.Context, id string) (*Location, error)
}
