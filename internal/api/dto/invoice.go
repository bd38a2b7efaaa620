package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gymlane/gymlane/internal/domain/invoice"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
)

// LineItemRequest is one invoice line. Quantity defaults to 1 when zero.
type LineItemRequest struct {
	Name     string          `json:"name" binding:"required"`
	Quantity decimal.Decimal `json:"quantity,omitempty"`
	Price    decimal.Decimal `json:"price" binding:"required"`
}

func (r *LineItemRequest) Validate() error {
	if r.Name == "" {
		return ierr.NewError("line item name is required").
			WithHint("Line item name is required").
			Mark(ierr.ErrValidation)
	}
	if r.Price.IsNegative() {
		return ierr.NewError("line item price must not be negative").
			WithHint("Line item price must not be negative").
			Mark(ierr.ErrValidation)
	}
	if r.Quantity.IsNegative() {
		return ierr.NewError("line item quantity must not be negative").
			WithHint("Line item quantity must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CreateInvoiceRequest creates a one-off draft invoice together with its
// pending ledger transaction
type CreateInvoiceRequest struct {
	MemberID         string                 `json:"member_id" binding:"required"`
	SubscriptionID   *string                `json:"subscription_id,omitempty"`
	Currency         string                 `json:"currency" binding:"required"`
	PaymentType      types.PaymentType      `json:"payment_type" binding:"required"`
	CollectionMethod types.CollectionMethod `json:"collection_method"`
	PromoCode        string                 `json:"promo_code,omitempty"`
	PeriodStart      *time.Time             `json:"period_start,omitempty"`
	PeriodEnd        *time.Time             `json:"period_end,omitempty"`
	LineItems        []LineItemRequest      `json:"line_items" binding:"required"`
	Metadata         types.Metadata         `json:"metadata,omitempty"`
}

func (r *CreateInvoiceRequest) Validate() error {
	if err := r.PaymentType.Validate(); err != nil {
		return err
	}
	if r.CollectionMethod != "" {
		if err := r.CollectionMethod.Validate(); err != nil {
			return err
		}
	}
	if len(r.LineItems) == 0 {
		return ierr.NewError("invoice requires at least one line item").
			WithHint("Provide at least one line item").
			Mark(ierr.ErrValidation)
	}
	for i := range r.LineItems {
		if err := r.LineItems[i].Validate(); err != nil {
			return err
		}
	}
	if r.PeriodStart != nil && r.PeriodEnd != nil && r.PeriodEnd.Before(*r.PeriodStart) {
		return ierr.NewError("period end before period start").
			WithHint("Invoice period end must not precede its start").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PreviewInvoiceRequest computes the charge breakdown for a pricing without
// persisting anything
type PreviewInvoiceRequest struct {
	MemberID    string `json:"member_id" binding:"required"`
	PricingID   string `json:"pricing_id" binding:"required"`
	PromoCode   string `json:"promo_code,omitempty"`
	FirstCharge bool   `json:"first_charge,omitempty"`
}

// PreviewInvoiceResponse is the computed charge breakdown
type PreviewInvoiceResponse struct {
	Currency string          `json:"currency"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Fee      decimal.Decimal `json:"fee"`
	Total    decimal.Decimal `json:"total"`
}

// MarkInvoicePaidRequest records an out-of-band payment against a sent invoice
type MarkInvoicePaidRequest struct {
	PaymentType types.PaymentType `json:"payment_type,omitempty"`
	Reference   string            `json:"reference,omitempty"`
}

func (r *MarkInvoicePaidRequest) Validate() error {
	if r.PaymentType != "" {
		return r.PaymentType.Validate()
	}
	return nil
}

// InvoiceResponse is the API representation of an invoice
type InvoiceResponse struct {
	*invoice.Invoice
}

// ListInvoicesResponse is a paginated list of invoices
type ListInvoicesResponse struct {
	Items []*InvoiceResponse `json:"items"`
	Total int                `json:"total"`
}
