package member

import "context"

// Repository provides access to member records owned by the profile subsystem.
// The billing core reads identity and payment references and writes only the
// membership flag and default payment method.
type Repository interface {
	Get(ctx context.Context, id string) (*Member, error)
	Update(ctx context.Context, member *Member) error
	SetMembershipActive(ctx context.Context, id string, active bool) error
}
