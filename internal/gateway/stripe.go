package gateway

import (
	"context"

	"github.com/stripe/stripe-go/v82"

	"github.com/gymlane/gymlane/internal/config"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/logger"
	"github.com/gymlane/gymlane/internal/types"
	"github.com/shopspring/decimal"
)

// StripeGateway implements Gateway on top of the Stripe API
type StripeGateway struct {
	client *stripe.Client
	logger *logger.Logger
}

func NewStripeGateway(cfg *config.Configuration, log *logger.Logger) (Gateway, error) {
	if cfg.Stripe.SecretKey == "" {
		return nil, ierr.NewError("stripe secret key is not configured").
			WithHint("Payment gateway is not configured").
			Mark(ierr.ErrSystem)
	}
	return &StripeGateway{
		client: stripe.NewClient(cfg.Stripe.SecretKey, nil),
		logger: log,
	}, nil
}

// ProcessPayment charges the member's stored payment method off-session. The
// charge is confirmed in a single call; a declined card comes back as a
// gateway failure carrying the processor's message unchanged.
func (g *StripeGateway) ProcessPayment(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	if req.GatewayCustomerID == "" || req.PaymentMethodID == "" {
		return nil, ierr.NewError("missing gateway customer or payment method").
			WithHint("Member has no stored payment method").
			Mark(ierr.ErrValidation)
	}

	params := &stripe.PaymentIntentCreateParams{
		Amount:        stripe.Int64(req.Amount.IntPart()),
		Currency:      stripe.String(req.Currency),
		Customer:      stripe.String(req.GatewayCustomerID),
		PaymentMethod: stripe.String(req.PaymentMethodID),
		OffSession:    stripe.Bool(true),
		Confirm:       stripe.Bool(true),
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if len(req.Metadata) > 0 {
		params.Metadata = req.Metadata
	}

	paymentIntent, err := g.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok {
			g.logger.Warnw("stripe charge failed",
				"customer_id", req.GatewayCustomerID,
				"error_code", stripeErr.Code,
				"decline_code", stripeErr.DeclineCode)
			return nil, ierr.WithError(err).
				WithHint(stripeErr.Msg).
				WithReportableDetails(map[string]any{
					"error_code":   string(stripeErr.Code),
					"decline_code": stripeErr.DeclineCode,
				}).
				Mark(ierr.ErrGatewayFailure)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to process payment").
			Mark(ierr.ErrGatewayFailure)
	}

	if paymentIntent.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, ierr.NewError("payment intent did not succeed").
			WithHint("Payment was not completed").
			WithReportableDetails(map[string]any{
				"payment_intent_id": paymentIntent.ID,
				"status":            string(paymentIntent.Status),
			}).
			Mark(ierr.ErrGatewayFailure)
	}

	result := &ChargeResult{
		PaymentIntentID: paymentIntent.ID,
		PaymentMethodID: req.PaymentMethodID,
		Metadata:        paymentIntent.Metadata,
	}
	if paymentIntent.PaymentMethod != nil {
		result.PaymentMethodID = paymentIntent.PaymentMethod.ID
	}
	return result, nil
}

// CreateRefund issues a partial or full refund against a settled payment
// intent. Amount is in cents; a zero amount refunds the full charge.
func (g *StripeGateway) CreateRefund(ctx context.Context, paymentIntentID string, amount decimal.Decimal) (*RefundResult, error) {
	if paymentIntentID == "" {
		return nil, ierr.NewError("payment intent id is required").
			WithHint("Transaction has no recorded payment to refund").
			Mark(ierr.ErrValidation)
	}

	params := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	if amount.IsPositive() {
		params.Amount = stripe.Int64(amount.IntPart())
	}

	refund, err := g.client.V1Refunds.Create(ctx, params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok {
			return nil, ierr.WithError(err).
				WithHint(stripeErr.Msg).
				WithReportableDetails(map[string]any{
					"error_code":        string(stripeErr.Code),
					"payment_intent_id": paymentIntentID,
				}).
				Mark(ierr.ErrGatewayFailure)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to create refund").
			Mark(ierr.ErrGatewayFailure)
	}

	return &RefundResult{
		RefundID:        refund.ID,
		PaymentIntentID: paymentIntentID,
		Amount:          decimal.NewFromInt(refund.Amount),
	}, nil
}

// CreateCustomer registers a member with Stripe so future charges can run
// against stored payment methods
func (g *StripeGateway) CreateCustomer(ctx context.Context, name, email string, metadata types.Metadata) (string, error) {
	params := &stripe.CustomerCreateParams{}
	if name != "" {
		params.Name = stripe.String(name)
	}
	if email != "" {
		params.Email = stripe.String(email)
	}
	if len(metadata) > 0 {
		params.Metadata = metadata
	}

	customer, err := g.client.V1Customers.Create(ctx, params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok {
			return "", ierr.WithError(err).
				WithHint(stripeErr.Msg).
				Mark(ierr.ErrGatewayFailure)
		}
		return "", ierr.WithError(err).
			WithHint("Failed to create gateway customer").
			Mark(ierr.ErrGatewayFailure)
	}
	return customer.ID, nil
}
