package testutil

import (
	"context"
	"fmt"
	"sync"

	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/gateway"
	"github.com/gymlane/gymlane/internal/types"
	"github.com/shopspring/decimal"
)

var _ gateway.Gateway = (*MockGateway)(nil)

// MockGateway records charge and refund calls and can be told to fail
type MockGateway struct {
	mu sync.Mutex

	Charges []*gateway.ChargeRequest
	Refunds []MockRefundCall

	// FailCharges makes ProcessPayment return a gateway failure
	FailCharges bool
	// FailRefunds makes CreateRefund return a gateway failure
	FailRefunds bool

	counter int
}

type MockRefundCall struct {
	PaymentIntentID string
	Amount          decimal.Decimal
}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (g *MockGateway) ProcessPayment(ctx context.Context, req *gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.FailCharges {
		return nil, ierr.NewError("card declined").
			WithHint("Your card was declined").
			Mark(ierr.ErrGatewayFailure)
	}

	g.counter++
	g.Charges = append(g.Charges, req)
	return &gateway.ChargeResult{
		PaymentIntentID: fmt.Sprintf("pi_test_%d", g.counter),
		PaymentMethodID: req.PaymentMethodID,
	}, nil
}

func (g *MockGateway) CreateRefund(ctx context.Context, paymentIntentID string, amount decimal.Decimal) (*gateway.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.FailRefunds {
		return nil, ierr.NewError("refund rejected").
			WithHint("The refund was rejected by the payment provider").
			Mark(ierr.ErrGatewayFailure)
	}

	g.counter++
	g.Refunds = append(g.Refunds, MockRefundCall{PaymentIntentID: paymentIntentID, Amount: amount})
	return &gateway.RefundResult{
		RefundID:        fmt.Sprintf("re_test_%d", g.counter),
		PaymentIntentID: paymentIntentID,
		Amount:          amount,
	}, nil
}

func (g *MockGateway) CreateCustomer(ctx context.Context, name, email string, metadata types.Metadata) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.counter++
	return fmt.Sprintf("cus_test_%d", g.counter), nil
}

// ChargeCount returns how many charges were processed
func (g *MockGateway) ChargeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Charges)
}
