package member

import (
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
)

// Member is the billing core's view of a member. Profile CRUD lives elsewhere;
// this carries only the identity and payment references the billing flows need.
type Member struct {
	ID         string `db:"id" json:"id"`
	LocationID string `db:"location_id" json:"location_id"`
	Name       string `db:"name" json:"name"`
	Email      string `db:"email" json:"email"`
	// GatewayCustomerID references the member's customer record at the payment
	// processor; empty until a card/bank payment method is stored
	GatewayCustomerID *string `db:"gateway_customer_id" json:"gateway_customer_id,omitempty"`
	// DefaultPaymentMethodID is the stored payment method used when a charge
	// request does not name one
	DefaultPaymentMethodID *string `db:"default_payment_method_id" json:"default_payment_method_id,omitempty"`
	// MembershipActive is flipped by the billing core on successful activation
	// and cancellation; the booking subsystem reads it before allowing a class
	// reservation
	MembershipActive bool `db:"membership_active" json:"membership_active"`

	types.BaseModel
}

// HasStoredPaymentMethod reports whether a gateway charge can be attempted
func (m *Member) HasStoredPaymentMethod() bool {
	return m.GatewayCustomerID != nil && *m.GatewayCustomerID != "" &&
		m.DefaultPaymentMethodID != nil && *m.DefaultPaymentMethodID != ""
}

// PaymentMethodFor returns the requested payment method or falls back to the default
func (m *Member) PaymentMethodFor(requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	if m.DefaultPaymentMethodID != nil && *m.DefaultPaymentMethodID != "" {
		return *m.DefaultPaymentMethodID, nil
	}
	return "", ierr.NewError("no payment method available").
		WithHint("Member has no stored payment method").
		WithReportableDetails(map[string]any{
			"member_id": m.ID,
		}).
		Mark(ierr.ErrValidation)
}
