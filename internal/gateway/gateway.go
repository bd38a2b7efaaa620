package gateway

import (
	"context"

	"github.com/gymlane/gymlane/internal/types"
	"github.com/shopspring/decimal"
)

// ChargeRequest describes a single off-session charge against a stored payment
// method. Amounts are in the smallest currency unit (cents).
type ChargeRequest struct {
	Amount            decimal.Decimal
	Currency          string
	GatewayCustomerID string
	PaymentMethodID   string
	Description       string
	Metadata          types.Metadata
}

// ChargeResult carries the gateway identifiers of a successful charge
type ChargeResult struct {
	PaymentIntentID string
	PaymentMethodID string
	Metadata        types.Metadata
}

// RefundResult carries the gateway identifiers of a successful refund
type RefundResult struct {
	RefundID        string
	PaymentIntentID string
	Amount          decimal.Decimal
}

// Gateway wraps the external card/bank processor. Implementations must not
// retry internally: a failure is surfaced verbatim and the caller decides
// whether to issue a new request. No local billing state is mutated by any of
// these calls.
type Gateway interface {
	// ProcessPayment charges a stored payment method and returns the payment
	// intent id on success
	ProcessPayment(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)
	// CreateRefund refunds part or all of a previously settled payment intent
	CreateRefund(ctx context.Context, paymentIntentID string, amount decimal.Decimal) (*RefundResult, error)
	// CreateCustomer registers a member with the processor and returns the
	// gateway customer id
	CreateCustomer(ctx context.Context, name, email string, metadata types.Metadata) (string, error)
}
